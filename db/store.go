package db

import (
	"context"

	"github.com/techagentng/imagegallery/models"
)

// Store is the document store the gallery persists into. Posts are top level
// documents; reactions and comments are children of a post.
//
// Every backend returns errs.ErrNotFound (possibly wrapped) for a missing
// post and errs.ErrConflict once a transaction has exhausted its retries.
type Store interface {
	// CreatePost assigns post.ID and post.CreatedAt and persists it.
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	// QueryPosts returns matching posts, newest first.
	QueryPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error)
	// GetReaction returns the user's reaction, or the zero Reaction if the
	// user never reacted.
	GetReaction(ctx context.Context, postID, userID string) (models.Reaction, error)
	// RunTransaction runs fn atomically. fn may be invoked more than once when
	// the backend detects a write conflict, so it must not have side effects
	// outside tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// AddComment appends a comment to the post's thread. The store assigns
	// comment.ID and comment.Timestamp at commit time.
	AddComment(ctx context.Context, postID string, comment *models.Comment) error
	// ListComments returns the thread ordered by timestamp ascending.
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	Close() error
}

// Tx is the view of the store inside RunTransaction. All reads must happen
// before the first write.
type Tx interface {
	GetPost(id string) (*models.Post, error)
	GetReaction(postID, userID string) (models.Reaction, error)
	UpdateCounters(postID string, likes, dislikes int) error
	SetReaction(postID, userID string, reaction models.Reaction) error
	UpdateDetails(postID string, details models.PostDetails) error
	// DeletePost removes the post with all its reactions and comments.
	DeletePost(postID string) error
}
