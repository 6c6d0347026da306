package services

import (
	"context"

	"github.com/techagentng/imagegallery/db"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"go.uber.org/zap"
)

// GalleryCard is a post as shown to one viewer.
type GalleryCard struct {
	models.Post
	ViewerLike    bool `json:"viewer_like"`
	ViewerDislike bool `json:"viewer_dislike"`
}

type GallerySection struct {
	Category models.Category `json:"category"`
	Cards    []GalleryCard   `json:"cards"`
}

type GalleryService interface {
	// Gallery returns one section per category in display order, newest
	// post first within a section. viewerID may be empty.
	Gallery(ctx context.Context, viewerID string) ([]GallerySection, error)
}

type galleryService struct {
	store  db.Store
	logger *zap.Logger
}

func NewGalleryService(store db.Store, logger *zap.Logger) GalleryService {
	return &galleryService{store: store, logger: logger}
}

func (g *galleryService) Gallery(ctx context.Context, viewerID string) ([]GallerySection, error) {
	posts, err := g.store.QueryPosts(ctx, models.PostFilter{})
	if err != nil {
		return nil, err
	}

	byCategory := make(map[models.Category][]GalleryCard, len(models.Categories))
	for _, post := range posts {
		card := GalleryCard{Post: post}
		if viewerID != "" {
			reaction, err := g.store.GetReaction(ctx, post.ID, viewerID)
			if errs.IsNotFound(err) {
				// deleted since the listing
				continue
			}
			if err != nil {
				return nil, err
			}
			card.ViewerLike = reaction.Like && reaction.Valid()
			card.ViewerDislike = reaction.Dislike && reaction.Valid()
		}
		byCategory[post.Category] = append(byCategory[post.Category], card)
	}

	sections := make([]GallerySection, 0, len(models.Categories))
	for _, category := range models.Categories {
		cards := byCategory[category]
		if cards == nil {
			cards = []GalleryCard{}
		}
		sections = append(sections, GallerySection{Category: category, Cards: cards})
	}
	return sections, nil
}
