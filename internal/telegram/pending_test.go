package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingTakeConsumes(t *testing.T) {
	p := newPendingCategories(time.Minute, 10)
	p.Set(1, "memes")

	got, ok := p.Take(1)
	require.True(t, ok)
	assert.Equal(t, "memes", got)

	_, ok = p.Take(1)
	assert.False(t, ok)
}

func TestPendingTakeMissingUser(t *testing.T) {
	p := newPendingCategories(time.Minute, 10)

	_, ok := p.Take(99)
	assert.False(t, ok)
}

func TestPendingExpiry(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := newPendingCategories(5*time.Minute, 10)
	p.now = func() time.Time { return clock }

	p.Set(1, "memes")

	clock = clock.Add(6 * time.Minute)
	_, ok := p.Take(1)
	assert.False(t, ok)
}

func TestPendingOverwrite(t *testing.T) {
	p := newPendingCategories(time.Minute, 10)
	p.Set(1, "memes")
	p.Set(1, "flood")

	got, ok := p.Take(1)
	require.True(t, ok)
	assert.Equal(t, "flood", got)
}

func TestPendingBounded(t *testing.T) {
	p := newPendingCategories(time.Minute, 2)
	p.Set(1, "a")
	p.Set(2, "b")
	p.Set(3, "c")

	_, ok := p.Take(3)
	assert.False(t, ok)

	got, ok := p.Take(1)
	require.True(t, ok)
	assert.Equal(t, "a", got)
}

func TestPendingSetEvictsExpired(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := newPendingCategories(time.Minute, 1)
	p.now = func() time.Time { return clock }

	p.Set(1, "a")

	// Once the old entry expires, the slot frees up for a new user.
	clock = clock.Add(2 * time.Minute)
	p.Set(2, "b")

	got, ok := p.Take(2)
	require.True(t, ok)
	assert.Equal(t, "b", got)
}
