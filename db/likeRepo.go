package db

import (
	"context"

	"github.com/pkg/errors"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (g *GormStore) GetReaction(ctx context.Context, postID, userID string) (models.Reaction, error) {
	if _, err := g.GetPost(ctx, postID); err != nil {
		return models.Reaction{}, err
	}
	return findReaction(g.DB.WithContext(ctx), postID, userID)
}

func (t *gormTx) GetReaction(postID, userID string) (models.Reaction, error) {
	return findReaction(t.DB, postID, userID)
}

func findReaction(db *gorm.DB, postID, userID string) (models.Reaction, error) {
	var reaction models.Reaction
	err := db.Where("post_id = ? AND user_id = ?", postID, userID).First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Reaction{}, nil
	}
	if err != nil {
		return models.Reaction{}, errors.Wrapf(err, "find reaction of %s on post %s", userID, postID)
	}
	return reaction, nil
}

func (t *gormTx) SetReaction(postID, userID string, reaction models.Reaction) error {
	if !reaction.Valid() {
		return errors.Wrap(errs.ErrValidation, "reaction cannot be both like and dislike")
	}
	reaction.PostID = postID
	reaction.UserID = userID
	err := t.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"liked", "disliked"}),
	}).Create(&reaction).Error
	if err != nil {
		return errors.Wrapf(err, "save reaction of %s on post %s", userID, postID)
	}
	return nil
}
