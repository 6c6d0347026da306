package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/techagentng/imagegallery/db"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"go.uber.org/zap"
)

// LikeService reconciles like/dislike clicks against a post's counters.
type LikeService interface {
	// ApplyReaction records a like (wantsLike) or dislike by userID on the
	// post and returns the post's counters with the user's resulting state.
	ApplyReaction(ctx context.Context, postID, userID string, wantsLike bool) (*models.ReactionResult, error)
	// GetReactionState returns the same shape as ApplyReaction without
	// writing anything. An empty userID yields neither flag set.
	GetReactionState(ctx context.Context, postID, userID string) (*models.ReactionResult, error)
}

type likeService struct {
	store  db.Store
	logger *zap.Logger
}

func NewLikeService(store db.Store, logger *zap.Logger) LikeService {
	return &likeService{
		store:  store,
		logger: logger,
	}
}

func (l *likeService) ApplyReaction(ctx context.Context, postID, userID string, wantsLike bool) (*models.ReactionResult, error) {
	if userID == "" {
		return nil, errors.Wrap(errs.ErrUnauthorized, "sign in to react to images")
	}

	var result models.ReactionResult
	err := l.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		post, err := tx.GetPost(postID)
		if err != nil {
			return err
		}
		current, err := tx.GetReaction(postID, userID)
		if err != nil {
			return err
		}

		likes, dislikes, next := Reconcile(post.Likes, post.Dislikes, current, wantsLike)
		result = models.ReactionResult{Likes: likes, Dislikes: dislikes, Like: next.Like, Dislike: next.Dislike}
		if likes == post.Likes && dislikes == post.Dislikes && next.Like == current.Like && next.Dislike == current.Dislike {
			return nil
		}

		if err := tx.UpdateCounters(postID, likes, dislikes); err != nil {
			return err
		}
		return tx.SetReaction(postID, userID, next)
	})
	if err != nil {
		l.logger.Debug("reaction not applied",
			zap.String("post_id", postID),
			zap.String("user_id", userID),
			zap.Bool("like", wantsLike),
			zap.Error(err))
		return nil, err
	}
	return &result, nil
}

func (l *likeService) GetReactionState(ctx context.Context, postID, userID string) (*models.ReactionResult, error) {
	post, err := l.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	result := &models.ReactionResult{Likes: post.Likes, Dislikes: post.Dislikes}
	if userID == "" {
		return result, nil
	}

	reaction, err := l.store.GetReaction(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if reaction.Valid() {
		result.Like = reaction.Like
		result.Dislike = reaction.Dislike
	}
	return result, nil
}
