// Package sqlite implements domain.PostRepository on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/EgorDatcenko/FloodBot/internal/domain"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Repository stores posts and their attachments in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the database at path, verifies
// the connection and applies the schema. The caller should Close it when
// done.
func NewRepository(path string) (*Repository, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &Repository{db: db}
	if err := r.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return r, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER NOT NULL UNIQUE,
		channel_id INTEGER NOT NULL,
		channel_handle TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL DEFAULT '',
		media_file_id TEXT NOT NULL DEFAULT '',
		media_unique_id TEXT NOT NULL DEFAULT '',
		media_group_id TEXT UNIQUE,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS post_media (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		message_id INTEGER NOT NULL,
		media_type TEXT NOT NULL,
		media_file_id TEXT NOT NULL,
		media_unique_id TEXT NOT NULL DEFAULT '',
		ordinal INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (post_id, message_id, media_type, media_file_id)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_category ON posts (category, created_at);
	CREATE INDEX IF NOT EXISTS idx_post_media_post ON post_media (post_id, ordinal);
	`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

// CreatePost inserts a new post and fills in its ID and CreatedAt. The
// message id and media group id uniqueness constraints arbitrate concurrent
// creators: the loser gets domain.ErrConflict.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	now := time.Now().UTC()

	var groupID sql.NullString
	if post.MediaGroupID != "" {
		groupID = sql.NullString{String: post.MediaGroupID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO posts (message_id, channel_id, channel_handle, category,
		                   title, text, media_type, media_file_id,
		                   media_unique_id, media_group_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		post.MessageID,
		post.ChannelID,
		post.ChannelHandle,
		post.Category,
		post.Title,
		post.Text,
		string(post.MediaType),
		post.MediaFileID,
		post.MediaUniqueID,
		groupID,
		now.Unix(),
	).Scan(&post.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create post %d: %w", post.MessageID, domain.ErrConflict)
		}
		return wrapErr("create post", err)
	}

	post.CreatedAt = time.Unix(now.Unix(), 0).UTC()
	return nil
}

// LookupByMessageID returns the post created from messageID, or (nil, nil).
func (r *Repository) LookupByMessageID(ctx context.Context, messageID int64) (*domain.Post, error) {
	return r.lookup(ctx, `WHERE message_id = ?`, messageID)
}

// LookupByGroupID returns the post owning the media group, or (nil, nil).
func (r *Repository) LookupByGroupID(ctx context.Context, groupID string) (*domain.Post, error) {
	return r.lookup(ctx, `WHERE media_group_id = ?`, groupID)
}

const postColumns = `id, message_id, channel_id, channel_handle, category,
	title, text, media_type, media_file_id, media_unique_id, media_group_id,
	created_at`

func (r *Repository) lookup(ctx context.Context, where string, arg any) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts `+where, arg)

	post, err := scanPost(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("lookup post", err)
	}
	return post, nil
}

// CountAttachments returns the number of attachments recorded for a post.
func (r *Repository) CountAttachments(ctx context.Context, postID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM post_media WHERE post_id = ?`, postID,
	).Scan(&n)
	if err != nil {
		return 0, wrapErr("count attachments", err)
	}
	return n, nil
}

// AddAttachment inserts one attachment. The ordinal is computed inside the
// INSERT from the current attachment count, so concurrent inserts for the
// same post serialize in the storage engine. The assigned ordinal and ID
// are written back to att.
func (r *Repository) AddAttachment(ctx context.Context, att *domain.Attachment) error {
	now := time.Now().UTC()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO post_media (post_id, message_id, media_type,
		                        media_file_id, media_unique_id, ordinal,
		                        created_at)
		VALUES (?, ?, ?, ?, ?,
		        (SELECT COUNT(*) FROM post_media WHERE post_id = ?), ?)
		RETURNING id, ordinal`,
		att.PostID,
		att.MessageID,
		string(att.Kind),
		att.FileID,
		att.UniqueID,
		att.PostID,
		now.Unix(),
	).Scan(&att.ID, &att.Ordinal)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("add attachment to post %d: %w", att.PostID, domain.ErrDuplicateAttachment)
		}
		return wrapErr("add attachment", err)
	}

	att.CreatedAt = time.Unix(now.Unix(), 0).UTC()
	return nil
}

// ListAttachments returns a post's attachments in ordinal order.
func (r *Repository) ListAttachments(ctx context.Context, postID int64) ([]domain.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, post_id, message_id, media_type, media_file_id,
		       media_unique_id, ordinal, created_at
		FROM post_media
		WHERE post_id = ?
		ORDER BY ordinal ASC, id ASC`,
		postID,
	)
	if err != nil {
		return nil, wrapErr("list attachments", err)
	}
	defer rows.Close()

	var atts []domain.Attachment
	for rows.Next() {
		var (
			a         domain.Attachment
			kind      string
			createdAt int64
		)
		err := rows.Scan(&a.ID, &a.PostID, &a.MessageID, &kind, &a.FileID,
			&a.UniqueID, &a.Ordinal, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		a.Kind = domain.MediaKind(kind)
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		atts = append(atts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate attachments", err)
	}
	return atts, nil
}

// ListPostsByCategory returns a category's posts in insertion order, oldest
// first.
func (r *Repository) ListPostsByCategory(ctx context.Context, category string, limit int) ([]domain.Post, error) {
	return r.listPosts(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE category = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`,
		category, limit)
}

// SearchPosts matches query as a substring of titles and bodies, oldest
// first.
func (r *Repository) SearchPosts(ctx context.Context, query string, limit int) ([]domain.Post, error) {
	like := "%" + query + "%"
	return r.listPosts(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE title LIKE ? OR text LIKE ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`,
		like, like, limit)
}

func (r *Repository) listPosts(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query posts", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate posts", err)
	}
	return posts, nil
}

// CategoryStats returns post counts per category, largest first.
func (r *Repository) CategoryStats(ctx context.Context) ([]domain.CategoryCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS count
		FROM posts
		GROUP BY category
		ORDER BY count DESC, category ASC`,
	)
	if err != nil {
		return nil, wrapErr("query stats", err)
	}
	defer rows.Close()

	var counts []domain.CategoryCount
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate stats", err)
	}
	return counts, nil
}

// TotalPosts returns the overall post count.
func (r *Repository) TotalPosts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, wrapErr("count posts", err)
	}
	return n, nil
}

// DeletePost removes a post by id; attachments go with it via cascade.
func (r *Repository) DeletePost(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return false, wrapErr("delete post", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	return affected > 0, nil
}

func scanPost(scan func(dest ...any) error) (*domain.Post, error) {
	var (
		post      domain.Post
		mediaType string
		groupID   sql.NullString
		createdAt int64
	)
	err := scan(&post.ID, &post.MessageID, &post.ChannelID,
		&post.ChannelHandle, &post.Category, &post.Title, &post.Text,
		&mediaType, &post.MediaFileID, &post.MediaUniqueID, &groupID,
		&createdAt)
	if err != nil {
		return nil, err
	}

	post.MediaType = domain.MediaKind(mediaType)
	post.MediaGroupID = groupID.String
	post.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &post, nil
}

// wrapErr maps transient SQLite contention to domain.ErrStorageUnavailable
// and wraps everything else with context.
func wrapErr(op string, err error) error {
	if isBusy(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT
}

func isBusy(err error) bool {
	switch primaryCode(err) {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// primaryCode extracts the primary SQLite result code (the low byte of the
// extended code), or -1 for non-SQLite errors.
func primaryCode(err error) int {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return -1
	}
	return se.Code() & 0xff
}
