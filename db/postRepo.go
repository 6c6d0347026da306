package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"gorm.io/gorm/clause"
)

func (g *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()
	if err := post.Validate(); err != nil {
		return errors.Wrap(errs.ErrValidation, err.Error())
	}
	if err := g.DB.WithContext(ctx).Create(post).Error; err != nil {
		return errors.Wrap(err, "create post")
	}
	return nil
}

func (g *GormStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := g.DB.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, notFound(err, "post %s", id)
	}
	return &post, nil
}

func (g *GormStore) QueryPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	query := g.DB.WithContext(ctx).Model(&models.Post{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Uploader != "" {
		query = query.Where("uploader = ?", filter.Uploader)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC, id ASC").Find(&posts).Error; err != nil {
		return nil, errors.Wrap(err, "query posts")
	}
	return posts, nil
}

// GetPost locks the post row so concurrent reactions on it queue up behind
// this transaction instead of aborting at commit.
func (t *gormTx) GetPost(id string) (*models.Post, error) {
	var post models.Post
	err := t.DB.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&post).Error
	if err != nil {
		return nil, notFound(err, "post %s", id)
	}
	return &post, nil
}

func (t *gormTx) UpdateCounters(postID string, likes, dislikes int) error {
	res := t.DB.Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]interface{}{
		"likes":    likes,
		"dislikes": dislikes,
	})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update counters of post %s", postID)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(errs.ErrNotFound, "post %s", postID)
	}
	return nil
}

func (t *gormTx) UpdateDetails(postID string, details models.PostDetails) error {
	res := t.DB.Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]interface{}{
		"name":        details.Name,
		"category":    details.Category,
		"author":      details.Author,
		"description": details.Description,
	})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update details of post %s", postID)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(errs.ErrNotFound, "post %s", postID)
	}
	return nil
}

// DeletePost removes the post and its children inside the surrounding
// transaction, so either everything goes or nothing does.
func (t *gormTx) DeletePost(postID string) error {
	if err := t.DB.Where("post_id = ?", postID).Delete(&models.Reaction{}).Error; err != nil {
		return errors.Wrapf(err, "delete reactions of post %s", postID)
	}
	if err := t.DB.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return errors.Wrapf(err, "delete comments of post %s", postID)
	}
	res := t.DB.Where("id = ?", postID).Delete(&models.Post{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete post %s", postID)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(errs.ErrNotFound, "post %s", postID)
	}
	return nil
}
