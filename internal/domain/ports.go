package domain

import "context"

// PostRepository defines the persistence operations the reconciler and the
// browse layer need. Each operation is independently atomic.
//
// Lookups return (nil, nil) when nothing matches; errors are reserved for
// genuine failures.
type PostRepository interface {
	// LookupByMessageID finds the post created from the given source
	// message id.
	LookupByMessageID(ctx context.Context, messageID int64) (*Post, error)

	// LookupByGroupID finds the post owning the given media group.
	LookupByGroupID(ctx context.Context, groupID string) (*Post, error)

	// CreatePost inserts a new post and fills in its assigned ID. The
	// store enforces message id and media group id uniqueness and returns
	// ErrConflict on a violation, so concurrent creators lose cleanly.
	CreatePost(ctx context.Context, post *Post) error

	// CountAttachments returns how many attachments the post currently has.
	CountAttachments(ctx context.Context, postID int64) (int, error)

	// AddAttachment inserts one attachment. The Ordinal on the passed value
	// is the caller's requested position; the store assigns the
	// authoritative ordinal atomically (serializing concurrent inserts for
	// the same post) and writes it back along with the ID. Returns
	// ErrDuplicateAttachment when the (post, message, type, file) tuple is
	// already recorded.
	AddAttachment(ctx context.Context, att *Attachment) error

	// ListAttachments returns the post's attachments in ordinal order.
	ListAttachments(ctx context.Context, postID int64) ([]Attachment, error)

	// ListPostsByCategory returns posts in insertion order, oldest first.
	ListPostsByCategory(ctx context.Context, category string, limit int) ([]Post, error)

	// SearchPosts matches the query against titles and bodies, oldest
	// first.
	SearchPosts(ctx context.Context, query string, limit int) ([]Post, error)

	// CategoryStats returns post counts per category, largest first.
	CategoryStats(ctx context.Context) ([]CategoryCount, error)

	// TotalPosts returns the overall post count.
	TotalPosts(ctx context.Context) (int, error)

	// DeletePost removes a post and, by cascade, its attachments. Reports
	// whether a row was deleted. Operator action only; posts are never
	// deleted automatically.
	DeletePost(ctx context.Context, id int64) (bool, error)
}

// Classifier assigns a category key to post text. Implementations must be
// pure: no side effects, identical output for identical input.
type Classifier interface {
	Classify(text, title string) string
}
