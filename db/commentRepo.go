package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/imagegallery/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddComment leaves Timestamp zero so postgres fills it from the column
// default; the RETURNING clause copies it back into comment.
func (g *GormStore) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).Select("id").Where("id = ?", postID).First(&post).Error
		if err != nil {
			return notFound(err, "post %s", postID)
		}

		comment.ID = uuid.NewString()
		comment.PostID = postID
		comment.Seq = 0
		comment.Timestamp = time.Time{}
		if err := tx.Create(comment).Error; err != nil {
			return errors.Wrapf(err, "add comment to post %s", postID)
		}
		return nil
	})
}

func (g *GormStore) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := g.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := g.DB.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("posted_at ASC, seq ASC").
		Find(&comments).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list comments of post %s", postID)
	}
	return comments, nil
}
