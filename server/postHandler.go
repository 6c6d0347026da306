package server

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"github.com/techagentng/imagegallery/server/response"
	"github.com/techagentng/imagegallery/services"
)

func (s *Server) handleUploadImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			s.respondError(c, errors.Wrap(errs.ErrValidation, "image file is required"))
			return
		}
		if fileHeader.Size > s.Config.MaxUploadBytes {
			s.respondError(c, errors.Wrapf(errs.ErrValidation, "image is %d bytes, the limit is %d", fileHeader.Size, s.Config.MaxUploadBytes))
			return
		}

		var meta models.UploadMetadata
		if err := c.ShouldBind(&meta); err != nil {
			s.respondError(c, errors.Wrap(errs.ErrValidation, err.Error()))
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			s.respondError(c, errors.Wrap(err, "open uploaded file"))
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, s.Config.MaxUploadBytes+1))
		if err != nil {
			s.respondError(c, errors.Wrap(err, "read uploaded file"))
			return
		}

		req := services.UploadRequest{Filename: fileHeader.Filename, Data: data, Metadata: meta}
		ctx := context.WithoutCancel(c.Request.Context())
		post, err := s.PostService.Upload(ctx, req, userIDFromContext(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "image uploaded", http.StatusCreated, post, nil)
	}
}

func (s *Server) handleListImages() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.PostFilter{Uploader: c.Query("uploader")}
		if raw := c.Query("category"); raw != "" {
			category, err := models.ParseCategory(raw)
			if err != nil {
				s.respondError(c, errors.Wrap(errs.ErrValidation, err.Error()))
				return
			}
			filter.Category = category
		}

		posts, err := s.PostService.ListPosts(c.Request.Context(), filter)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if posts == nil {
			posts = []models.Post{}
		}
		response.JSON(c, "images retrieved", http.StatusOK, posts, nil)
	}
}

func (s *Server) handleGetImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := s.PostService.GetPost(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "image retrieved", http.StatusOK, post, nil)
	}
}

func (s *Server) handleUpdateImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		var details models.PostDetails
		if err := c.ShouldBindJSON(&details); err != nil {
			s.respondError(c, errors.Wrap(errs.ErrValidation, err.Error()))
			return
		}

		post, err := s.PostService.UpdatePostDetails(c.Request.Context(), c.Param("id"), userIDFromContext(c), details)
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "image updated", http.StatusOK, post, nil)
	}
}

func (s *Server) handleDeleteImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithoutCancel(c.Request.Context())
		if err := s.PostService.DeletePost(ctx, c.Param("id"), userIDFromContext(c)); err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "image deleted", http.StatusOK, nil, nil)
	}
}
