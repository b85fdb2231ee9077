package domain

import "errors"

var (
	// ErrConflict is returned by CreatePost when a post with the same
	// message id or media group id already exists. Callers re-run the
	// lookup and attach instead of failing.
	ErrConflict = errors.New("post already exists")

	// ErrDuplicateAttachment is returned by AddAttachment when the same
	// (post, message, type, file) tuple was already recorded. Benign.
	ErrDuplicateAttachment = errors.New("attachment already recorded")

	// ErrStorageUnavailable marks transient storage contention. Callers
	// retry with bounded backoff.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
