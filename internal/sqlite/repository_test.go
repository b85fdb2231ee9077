package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorDatcenko/FloodBot/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func makePost(messageID int64, category, groupID string) *domain.Post {
	return &domain.Post{
		MessageID:     messageID,
		ChannelID:     -1001,
		ChannelHandle: "nikitaFlooDed",
		Category:      category,
		Title:         "Заголовок",
		Text:          "Текст поста",
		MediaGroupID:  groupID,
	}
}

func TestCreatePostAssignsID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	post := makePost(1, "memes", "")
	require.NoError(t, repo.CreatePost(ctx, post))

	assert.NotZero(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())
}

func TestCreatePostConflictOnMessageID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreatePost(ctx, makePost(1, "memes", "")))

	err := repo.CreatePost(ctx, makePost(1, "flood", ""))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreatePostConflictOnGroupID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreatePost(ctx, makePost(1, "memes", "g1")))

	err := repo.CreatePost(ctx, makePost(2, "memes", "g1"))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreatePostAllowsManySingletons(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Posts without a media group must not collide on the nullable unique
	// column.
	require.NoError(t, repo.CreatePost(ctx, makePost(1, "memes", "")))
	require.NoError(t, repo.CreatePost(ctx, makePost(2, "memes", "")))
}

func TestLookupMissingReturnsNil(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	post, err := repo.LookupByMessageID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, post)

	post, err = repo.LookupByGroupID(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestLookupRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := makePost(5, "exercises", "g9")
	created.MediaType = domain.MediaPhoto
	created.MediaFileID = "file-5"
	created.MediaUniqueID = "uniq-5"
	require.NoError(t, repo.CreatePost(ctx, created))

	got, err := repo.LookupByGroupID(ctx, "g9")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, int64(5), got.MessageID)
	assert.Equal(t, "exercises", got.Category)
	assert.Equal(t, "Заголовок", got.Title)
	assert.Equal(t, "Текст поста", got.Text)
	assert.Equal(t, domain.MediaPhoto, got.MediaType)
	assert.Equal(t, "file-5", got.MediaFileID)
	assert.Equal(t, "g9", got.MediaGroupID)
}

func TestAddAttachmentAssignsOrdinals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	post := makePost(1, "memes", "g1")
	require.NoError(t, repo.CreatePost(ctx, post))

	for i := 0; i < 3; i++ {
		att := &domain.Attachment{
			PostID:    post.ID,
			MessageID: int64(10 + i),
			Kind:      domain.MediaPhoto,
			FileID:    "file-" + string(rune('a'+i)),
		}
		require.NoError(t, repo.AddAttachment(ctx, att))
		assert.Equal(t, i, att.Ordinal)
		assert.NotZero(t, att.ID)
	}

	n, err := repo.CountAttachments(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAddAttachmentDuplicateTuple(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	post := makePost(1, "memes", "g1")
	require.NoError(t, repo.CreatePost(ctx, post))

	att := &domain.Attachment{
		PostID:    post.ID,
		MessageID: 10,
		Kind:      domain.MediaPhoto,
		FileID:    "file-a",
	}
	require.NoError(t, repo.AddAttachment(ctx, att))

	dup := &domain.Attachment{
		PostID:    post.ID,
		MessageID: 10,
		Kind:      domain.MediaPhoto,
		FileID:    "file-a",
	}
	err := repo.AddAttachment(ctx, dup)
	require.ErrorIs(t, err, domain.ErrDuplicateAttachment)

	// A different file from the same message is a new attachment.
	other := &domain.Attachment{
		PostID:    post.ID,
		MessageID: 10,
		Kind:      domain.MediaPhoto,
		FileID:    "file-b",
	}
	require.NoError(t, repo.AddAttachment(ctx, other))
	assert.Equal(t, 1, other.Ordinal)
}

func TestListAttachmentsOrdered(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	post := makePost(1, "memes", "g1")
	require.NoError(t, repo.CreatePost(ctx, post))

	files := []string{"first", "second", "third"}
	for i, f := range files {
		require.NoError(t, repo.AddAttachment(ctx, &domain.Attachment{
			PostID:    post.ID,
			MessageID: int64(10 + i),
			Kind:      domain.MediaVideo,
			FileID:    f,
		}))
	}

	atts, err := repo.ListAttachments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, atts, 3)
	for i, att := range atts {
		assert.Equal(t, i, att.Ordinal)
		assert.Equal(t, files[i], att.FileID)
		assert.Equal(t, domain.MediaVideo, att.Kind)
	}
}

func TestListPostsByCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := int64(1); i <= 4; i++ {
		cat := "memes"
		if i == 3 {
			cat = "flood"
		}
		require.NoError(t, repo.CreatePost(ctx, makePost(i, cat, "")))
	}

	posts, err := repo.ListPostsByCategory(ctx, "memes", 50)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, int64(1), posts[0].MessageID)
	assert.Equal(t, int64(2), posts[1].MessageID)
	assert.Equal(t, int64(4), posts[2].MessageID)

	limited, err := repo.ListPostsByCategory(ctx, "memes", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := repo.ListPostsByCategory(ctx, "challenges", 50)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchPosts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := makePost(1, "memes", "")
	a.Title = "Подборка мемов"
	a.Text = "самые смешные за неделю"
	require.NoError(t, repo.CreatePost(ctx, a))

	b := makePost(2, "sport_tips", "")
	b.Title = "Совет дня"
	b.Text = "про мемы здесь ни слова"
	require.NoError(t, repo.CreatePost(ctx, b))

	c := makePost(3, "flood", "")
	c.Title = "Оффтоп"
	c.Text = "просто болтовня"
	require.NoError(t, repo.CreatePost(ctx, c))

	found, err := repo.SearchPosts(ctx, "мем", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(1), found[0].MessageID)
	assert.Equal(t, int64(2), found[1].MessageID)

	none, err := repo.SearchPosts(ctx, "штанга", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCategoryStatsAndTotal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, cat := range []string{"memes", "memes", "memes", "flood", "flood", "other"} {
		require.NoError(t, repo.CreatePost(ctx, makePost(int64(i+1), cat, "")))
	}

	counts, err := repo.CategoryStats(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, domain.CategoryCount{Category: "memes", Count: 3}, counts[0])
	assert.Equal(t, domain.CategoryCount{Category: "flood", Count: 2}, counts[1])
	assert.Equal(t, domain.CategoryCount{Category: "other", Count: 1}, counts[2])

	total, err := repo.TotalPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
}

func TestDeletePostCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	post := makePost(1, "memes", "g1")
	require.NoError(t, repo.CreatePost(ctx, post))
	require.NoError(t, repo.AddAttachment(ctx, &domain.Attachment{
		PostID:    post.ID,
		MessageID: 10,
		Kind:      domain.MediaPhoto,
		FileID:    "file-a",
	}))

	deleted, err := repo.DeletePost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.LookupByMessageID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := repo.CountAttachments(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	deleted, err = repo.DeletePost(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
