package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/imagegallery/server/response"
)

// handleReaction records a like or dislike. The transaction runs detached
// from the request so a client that goes away mid-request cannot leave it
// half applied.
func (s *Server) handleReaction(wantsLike bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := userIDFromContext(c)
		postID := c.Param("id")

		ctx := context.WithoutCancel(c.Request.Context())
		result, err := s.LikeService.ApplyReaction(ctx, postID, userID, wantsLike)
		if err != nil {
			s.respondError(c, err)
			return
		}

		message := "image disliked"
		if wantsLike {
			message = "image liked"
		}
		response.JSON(c, message, http.StatusOK, result, nil)
	}
}

func (s *Server) handleGetReaction() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := s.LikeService.GetReactionState(c.Request.Context(), c.Param("id"), userIDFromContext(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "reaction retrieved", http.StatusOK, result, nil)
	}
}
