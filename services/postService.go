package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/techagentng/imagegallery/db"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"github.com/techagentng/imagegallery/storage"
	"go.uber.org/zap"
)

// UploadRequest is an image file with the metadata filled in by the uploader.
type UploadRequest struct {
	Filename string
	Data     []byte
	Metadata models.UploadMetadata
}

type PostService interface {
	Upload(ctx context.Context, req UploadRequest, uploader string) (*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error)
	ListByCategory(ctx context.Context, category models.Category) ([]models.Post, error)
	ListByUploader(ctx context.Context, uploader string) ([]models.Post, error)
	UpdatePostDetails(ctx context.Context, postID, userID string, details models.PostDetails) (*models.Post, error)
	DeletePost(ctx context.Context, postID, userID string) error
}

type postService struct {
	store  db.Store
	files  storage.BinaryStore
	media  MediaService
	logger *zap.Logger
}

func NewPostService(store db.Store, files storage.BinaryStore, media MediaService, logger *zap.Logger) PostService {
	return &postService{
		store:  store,
		files:  files,
		media:  media,
		logger: logger,
	}
}

// Upload stores the image and its thumbnail and then creates the post that
// points at them. If any step after the first write fails, the binaries
// already written are removed again.
func (p *postService) Upload(ctx context.Context, req UploadRequest, uploader string) (*models.Post, error) {
	if uploader == "" {
		return nil, errors.Wrap(errs.ErrUnauthorized, "sign in to upload images")
	}
	meta := req.Metadata
	if problems := models.ValidateStruct(&meta); len(problems) > 0 {
		return nil, validationError(problems)
	}

	img, err := p.media.Process(req.Data)
	if err != nil {
		return nil, err
	}

	name := generateUniqueFilename(img.Extension)
	imagePath := "images/" + name
	thumbPath := "thumbnails/" + name + ".jpg"

	var written []string
	url, err := p.files.Put(ctx, imagePath, img.Data, img.ContentType)
	if err != nil {
		return nil, errors.Wrap(err, "store image")
	}
	written = append(written, imagePath)

	thumbURL, err := p.files.Put(ctx, thumbPath, img.Thumbnail, "image/jpeg")
	if err != nil {
		p.removeFiles(ctx, written)
		return nil, errors.Wrap(err, "store thumbnail")
	}
	written = append(written, thumbPath)

	post := &models.Post{
		Name:          meta.Name,
		Category:      meta.Category,
		Author:        meta.Author,
		Description:   meta.Description,
		Uploader:      uploader,
		URL:           url,
		ThumbnailURL:  thumbURL,
		StoragePath:   imagePath,
		ThumbnailPath: thumbPath,
	}
	if err := p.store.CreatePost(ctx, post); err != nil {
		p.logger.Error("create post failed, removing uploaded files",
			zap.String("filename", req.Filename),
			zap.String("user_id", uploader),
			zap.Error(err))
		p.removeFiles(ctx, written)
		return nil, err
	}

	p.logger.Info("image uploaded",
		zap.String("post_id", post.ID),
		zap.String("user_id", uploader),
		zap.String("category", post.Category.String()),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height))
	return post, nil
}

// removeFiles deletes binaries nothing refers to. Failures are logged with
// the path so the orphan can be collected later.
func (p *postService) removeFiles(ctx context.Context, paths []string) {
	ctx = context.WithoutCancel(ctx)
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := p.files.Delete(ctx, path); err != nil {
			p.logger.Error("orphaned binary", zap.String("path", path), zap.Error(err))
		}
	}
}

func (p *postService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return p.store.GetPost(ctx, id)
}

// ListPosts returns the posts matching filter, newest first.
func (p *postService) ListPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, errors.Wrapf(errs.ErrValidation, "unknown category %q", filter.Category)
	}
	return p.store.QueryPosts(ctx, filter)
}

func (p *postService) ListByCategory(ctx context.Context, category models.Category) ([]models.Post, error) {
	if !category.Valid() {
		return nil, errors.Wrapf(errs.ErrValidation, "unknown category %q", category)
	}
	return p.ListPosts(ctx, models.PostFilter{Category: category})
}

func (p *postService) ListByUploader(ctx context.Context, uploader string) ([]models.Post, error) {
	if uploader == "" {
		return nil, errors.Wrap(errs.ErrValidation, "uploader is required")
	}
	return p.ListPosts(ctx, models.PostFilter{Uploader: uploader})
}

// UpdatePostDetails lets the uploader change the descriptive fields of a
// post. Counters and files are left alone.
func (p *postService) UpdatePostDetails(ctx context.Context, postID, userID string, details models.PostDetails) (*models.Post, error) {
	if userID == "" {
		return nil, errors.Wrap(errs.ErrUnauthorized, "sign in to edit images")
	}
	if problems := models.ValidateStruct(&details); len(problems) > 0 {
		return nil, validationError(problems)
	}

	var updated models.Post
	err := p.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		post, err := tx.GetPost(postID)
		if err != nil {
			return err
		}
		if post.Uploader != userID {
			return errors.Wrapf(errs.ErrUnauthorized, "only the uploader can edit post %s", postID)
		}
		if err := tx.UpdateDetails(postID, details); err != nil {
			return err
		}
		updated = *post
		updated.Name = details.Name
		updated.Category = details.Category
		updated.Author = details.Author
		updated.Description = details.Description
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletePost removes a post with all its reactions and comments in one
// transaction. Only the uploader may delete. The binaries are removed after
// the commit.
func (p *postService) DeletePost(ctx context.Context, postID, userID string) error {
	if userID == "" {
		return errors.Wrap(errs.ErrUnauthorized, "sign in to delete images")
	}

	var deleted models.Post
	err := p.store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		post, err := tx.GetPost(postID)
		if err != nil {
			return err
		}
		if post.Uploader != userID {
			return errors.Wrapf(errs.ErrUnauthorized, "only the uploader can delete post %s", postID)
		}
		deleted = *post
		return tx.DeletePost(postID)
	})
	if err != nil {
		return err
	}

	p.logger.Info("post deleted", zap.String("post_id", postID), zap.String("user_id", userID))
	p.removeFiles(ctx, []string{deleted.StoragePath, deleted.ThumbnailPath})
	return nil
}
