package telegram

import (
	"sync"
	"time"
)

// pendingCategories remembers an admin's manually chosen category for a
// short window, so the next forwarded post is filed under it instead of
// going through the classifier. Entries expire at read time; the map is
// bounded.
type pendingCategories struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[int64]pendingEntry
	now     func() time.Time
}

type pendingEntry struct {
	category string
	setAt    time.Time
}

func newPendingCategories(ttl time.Duration, max int) *pendingCategories {
	return &pendingCategories{
		ttl:     ttl,
		max:     max,
		entries: make(map[int64]pendingEntry),
		now:     time.Now,
	}
}

// Set records a pending choice for the user, evicting expired entries to
// keep the map bounded.
func (p *pendingCategories) Set(userID int64, category string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for id, e := range p.entries {
		if now.Sub(e.setAt) > p.ttl {
			delete(p.entries, id)
		}
	}
	if len(p.entries) >= p.max {
		return
	}
	p.entries[userID] = pendingEntry{category: category, setAt: now}
}

// Take consumes the user's pending choice. Expired entries read as absent.
func (p *pendingCategories) Take(userID int64) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[userID]
	if !ok {
		return "", false
	}
	delete(p.entries, userID)

	if p.now().Sub(e.setAt) > p.ttl {
		return "", false
	}
	return e.category, true
}
