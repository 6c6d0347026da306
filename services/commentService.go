package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/techagentng/imagegallery/db"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"go.uber.org/zap"
)

type CommentService interface {
	AddComment(ctx context.Context, postID, authorID, text string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
}

type commentService struct {
	store  db.Store
	logger *zap.Logger
}

func NewCommentService(store db.Store, logger *zap.Logger) CommentService {
	return &commentService{
		store:  store,
		logger: logger,
	}
}

// AddComment appends text to the post's thread. The comment is stored with
// its text trimmed and its timestamp assigned by the store.
func (s *commentService) AddComment(ctx context.Context, postID, authorID, text string) (*models.Comment, error) {
	if authorID == "" {
		return nil, errors.Wrap(errs.ErrUnauthorized, "sign in to comment")
	}
	in := models.CommentInput{Text: text}
	if problems := models.ValidateStruct(&in); len(problems) > 0 {
		return nil, validationError(problems)
	}

	comment := &models.Comment{Author: authorID, Text: in.Text}
	if err := s.store.AddComment(ctx, postID, comment); err != nil {
		return nil, err
	}
	s.logger.Debug("comment added", zap.String("post_id", postID), zap.String("comment_id", comment.ID))
	return comment, nil
}

func (s *commentService) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	return s.store.ListComments(ctx, postID)
}
