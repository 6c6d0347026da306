package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"github.com/techagentng/imagegallery/server/response"
)

func (s *Server) handleAddComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in models.CommentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			s.respondError(c, errors.Wrap(errs.ErrValidation, err.Error()))
			return
		}

		comment, err := s.CommentService.AddComment(c.Request.Context(), c.Param("id"), userIDFromContext(c), in.Text)
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "comment added", http.StatusCreated, comment, nil)
	}
}

func (s *Server) handleListComments() gin.HandlerFunc {
	return func(c *gin.Context) {
		comments, err := s.CommentService.ListComments(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "comments retrieved", http.StatusOK, comments, nil)
	}
}
