package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Action describes what Reconcile did with an inbound post.
type Action string

const (
	// ActionCreated: a new post was recorded, no attachment rows added.
	ActionCreated Action = "created"

	// ActionCreatedWithMedia: a new media-group post was recorded together
	// with the event's attachments.
	ActionCreatedWithMedia Action = "created_with_media"

	// ActionAttached: the event continued an existing media group; only
	// attachments were added.
	ActionAttached Action = "attached"

	// ActionDuplicate: the event was already processed. No-op.
	ActionDuplicate Action = "duplicate"
)

// ReconcileResult reports the outcome of processing one inbound post.
type ReconcileResult struct {
	Action           Action
	PostID           int64
	Category         string
	AttachmentsAdded int
}

// Service is the core domain service. It owns the transition logic that
// turns a stream of inbound channel events into classified posts with
// correctly grouped attachments, and serves the browse operations on top of
// the repository.
type Service struct {
	classifier Classifier
	repo       PostRepository
	backoff    Backoff
	logger     *slog.Logger
}

// NewService wires the classifier and repository into a Service. The backoff
// policy wraps every repository call.
func NewService(classifier Classifier, repo PostRepository, backoff Backoff, logger *slog.Logger) *Service {
	return &Service{
		classifier: classifier,
		repo:       repo,
		backoff:    backoff,
		logger:     logger,
	}
}

// Reconcile processes one inbound post: the first event of a message or
// media group creates a post, later events of the same group attach their
// media, and re-deliveries are reported as duplicates. Safe to call
// concurrently for events of the same group; the repository's uniqueness
// constraints arbitrate the create race.
func (s *Service) Reconcile(ctx context.Context, in *InboundPost) (*ReconcileResult, error) {
	return s.reconcile(ctx, in, "")
}

// ReconcileManual is Reconcile with an operator-chosen category overriding
// the classifier. The override only applies when a new post is created;
// group continuations keep the frozen category either way.
func (s *Service) ReconcileManual(ctx context.Context, in *InboundPost, category string) (*ReconcileResult, error) {
	return s.reconcile(ctx, in, category)
}

func (s *Service) reconcile(ctx context.Context, in *InboundPost, forced string) (*ReconcileResult, error) {
	if in.MediaGroupID != "" {
		return s.reconcileGrouped(ctx, in, forced)
	}
	return s.reconcileSingleton(ctx, in, forced)
}

func (s *Service) reconcileSingleton(ctx context.Context, in *InboundPost, forced string) (*ReconcileResult, error) {
	existing, err := s.lookupByMessageID(ctx, in.MessageID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ReconcileResult{Action: ActionDuplicate, PostID: existing.ID, Category: existing.Category}, nil
	}

	post := s.buildPost(in, forced)
	if err := s.createPost(ctx, post); err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost a race against another delivery of the same message.
			return s.duplicateOf(ctx, in.MessageID)
		}
		return nil, err
	}

	return &ReconcileResult{Action: ActionCreated, PostID: post.ID, Category: post.Category}, nil
}

func (s *Service) reconcileGrouped(ctx context.Context, in *InboundPost, forced string) (*ReconcileResult, error) {
	target, err := s.lookupByGroupID(ctx, in.MediaGroupID)
	if err != nil {
		return nil, err
	}

	action := ActionAttached
	if target == nil {
		post := s.buildPost(in, forced)
		switch err := s.createPost(ctx, post); {
		case err == nil:
			target = post
			action = ActionCreatedWithMedia
		case errors.Is(err, ErrConflict):
			// Another event of this group created the post first; fall
			// through to attach-only against its record.
			target, err = s.lookupByGroupID(ctx, in.MediaGroupID)
			if err != nil {
				return nil, err
			}
			if target == nil {
				// The conflict was on the message id, not the group id:
				// this exact event was already processed.
				return s.duplicateOf(ctx, in.MessageID)
			}
		default:
			return nil, err
		}
	}

	// The category decided at group creation is authoritative; later
	// events may carry different or partial captions and are never
	// reclassified.
	added := s.attachAll(ctx, target, in)

	return &ReconcileResult{
		Action:           action,
		PostID:           target.ID,
		Category:         target.Category,
		AttachmentsAdded: added,
	}, nil
}

// attachAll records the event's attachments on the target post. Failures
// are logged and skipped per attachment so one bad file never aborts the
// rest; duplicates from re-delivery are silently ignored.
func (s *Service) attachAll(ctx context.Context, target *Post, in *InboundPost) int {
	added := 0
	for _, ref := range ExtractAll(in) {
		ordinal, err := s.countAttachments(ctx, target.ID)
		if err != nil {
			s.logger.Error("failed to count attachments",
				"post_id", target.ID, "message_id", in.MessageID, "error", err)
			continue
		}

		att := &Attachment{
			PostID:    target.ID,
			MessageID: in.MessageID,
			Kind:      ref.Kind,
			FileID:    ref.FileID,
			UniqueID:  ref.UniqueID,
			Ordinal:   ordinal,
		}
		switch err := s.addAttachment(ctx, att); {
		case err == nil:
			added++
		case errors.Is(err, ErrDuplicateAttachment):
			s.logger.Debug("attachment already recorded",
				"post_id", target.ID, "message_id", in.MessageID, "kind", ref.Kind)
		default:
			s.logger.Error("failed to add attachment",
				"post_id", target.ID, "message_id", in.MessageID, "kind", ref.Kind, "error", err)
		}
	}
	return added
}

func (s *Service) buildPost(in *InboundPost, forced string) *Post {
	title, body := SplitTitle(in.Text)

	category := forced
	if category == "" {
		category = s.classifier.Classify(body, title)
	}

	post := &Post{
		MessageID:     in.MessageID,
		ChannelID:     in.ChannelID,
		ChannelHandle: in.ChannelHandle,
		Category:      category,
		Title:         title,
		Text:          body,
		MediaGroupID:  in.MediaGroupID,
	}
	if ref, ok := ExtractPrimary(in); ok {
		post.MediaType = ref.Kind
		post.MediaFileID = ref.FileID
		post.MediaUniqueID = ref.UniqueID
	}
	return post
}

func (s *Service) duplicateOf(ctx context.Context, messageID int64) (*ReconcileResult, error) {
	existing, err := s.lookupByMessageID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	res := &ReconcileResult{Action: ActionDuplicate}
	if existing != nil {
		res.PostID = existing.ID
		res.Category = existing.Category
	}
	return res, nil
}

// MediaFor returns the media to render for a post: its attachment rows when
// it has any, otherwise the primary media captured at creation.
func (s *Service) MediaFor(ctx context.Context, post *Post) ([]MediaRef, error) {
	atts, err := s.listAttachments(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	if len(atts) == 0 {
		if post.MediaType == "" {
			return nil, nil
		}
		return []MediaRef{{Kind: post.MediaType, FileID: post.MediaFileID, UniqueID: post.MediaUniqueID}}, nil
	}

	refs := make([]MediaRef, len(atts))
	for i, a := range atts {
		refs[i] = MediaRef{Kind: a.Kind, FileID: a.FileID, UniqueID: a.UniqueID}
	}
	return refs, nil
}

// PostsByCategory returns a category's posts, oldest first.
func (s *Service) PostsByCategory(ctx context.Context, category string, limit int) ([]Post, error) {
	var posts []Post
	err := Retry(ctx, s.backoff, func() (err error) {
		posts, err = s.repo.ListPostsByCategory(ctx, category, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list posts by category: %w", err)
	}
	return posts, nil
}

// SearchPosts finds posts whose title or body matches the query.
func (s *Service) SearchPosts(ctx context.Context, query string, limit int) ([]Post, error) {
	var posts []Post
	err := Retry(ctx, s.backoff, func() (err error) {
		posts, err = s.repo.SearchPosts(ctx, query, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, nil
}

// Stats returns post counts per category plus the overall total.
func (s *Service) Stats(ctx context.Context) ([]CategoryCount, int, error) {
	var (
		counts []CategoryCount
		total  int
	)
	err := Retry(ctx, s.backoff, func() (err error) {
		if counts, err = s.repo.CategoryStats(ctx); err != nil {
			return err
		}
		total, err = s.repo.TotalPosts(ctx)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("category stats: %w", err)
	}
	return counts, total, nil
}

// DeletePost removes a post and its attachments on explicit operator
// request.
func (s *Service) DeletePost(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := Retry(ctx, s.backoff, func() (err error) {
		deleted, err = s.repo.DeletePost(ctx, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	return deleted, nil
}

// Repository call wrappers with the injected retry policy.

func (s *Service) lookupByMessageID(ctx context.Context, messageID int64) (*Post, error) {
	var post *Post
	err := Retry(ctx, s.backoff, func() (err error) {
		post, err = s.repo.LookupByMessageID(ctx, messageID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("lookup by message id: %w", err)
	}
	return post, nil
}

func (s *Service) lookupByGroupID(ctx context.Context, groupID string) (*Post, error) {
	var post *Post
	err := Retry(ctx, s.backoff, func() (err error) {
		post, err = s.repo.LookupByGroupID(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("lookup by group id: %w", err)
	}
	return post, nil
}

func (s *Service) createPost(ctx context.Context, post *Post) error {
	return Retry(ctx, s.backoff, func() error {
		return s.repo.CreatePost(ctx, post)
	})
}

func (s *Service) countAttachments(ctx context.Context, postID int64) (int, error) {
	var n int
	err := Retry(ctx, s.backoff, func() (err error) {
		n, err = s.repo.CountAttachments(ctx, postID)
		return err
	})
	return n, err
}

func (s *Service) addAttachment(ctx context.Context, att *Attachment) error {
	return Retry(ctx, s.backoff, func() error {
		return s.repo.AddAttachment(ctx, att)
	})
}

func (s *Service) listAttachments(ctx context.Context, postID int64) ([]Attachment, error) {
	var atts []Attachment
	err := Retry(ctx, s.backoff, func() (err error) {
		atts, err = s.repo.ListAttachments(ctx, postID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return atts, nil
}
