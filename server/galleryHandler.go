package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/imagegallery/models"
	"github.com/techagentng/imagegallery/server/response"
)

func (s *Server) handleGallery() gin.HandlerFunc {
	return func(c *gin.Context) {
		sections, err := s.GalleryService.Gallery(c.Request.Context(), userIDFromContext(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "gallery retrieved", http.StatusOK, sections, nil)
	}
}

func (s *Server) handleGetCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.JSON(c, "categories retrieved", http.StatusOK, models.Categories, nil)
	}
}
