package server

import (
	"net/http"
	"strings"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/server/response"
	"go.uber.org/zap"
)

const userIDKey = "userID"

// Authorize rejects requests without a valid bearer token and stores the
// caller's id under "userID".
func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		if accessToken == "" {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		userID, err := s.Verifier.Verify(c.Request.Context(), accessToken)
		if err != nil {
			s.Logger.Debug("token rejected", zap.Error(err))
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalAuthorize identifies the caller when a valid token is present and
// lets anonymous requests through otherwise.
func (s *Server) OptionalAuthorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if accessToken := getTokenFromHeader(c); accessToken != "" {
			if userID, err := s.Verifier.Verify(c.Request.Context(), accessToken); err == nil {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}

func (s *Server) limitRate(store ratelimit.Store) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errs.ErrorHandler,
		KeyFunc:      keyFunc,
	})
}

// keyFunc buckets signed-in users by id and everyone else by address.
func keyFunc(c *gin.Context) string {
	if userID := userIDFromContext(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

func userIDFromContext(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// respondAndAbort calls response.JSON and aborts the Context
func respondAndAbort(c *gin.Context, message string, status int, data interface{}, e *errs.Error) {
	response.JSON(c, message, status, data, e)
	c.Abort()
}

// getTokenFromHeader returns the token string in the authorization header
func getTokenFromHeader(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// respondError reports err with the status its kind maps to. Unclassified
// errors are logged and hidden behind a generic 500.
func (s *Server) respondError(c *gin.Context, err error) {
	status := errs.StatusOf(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		err = errs.ErrInternalServerError
	}
	response.JSON(c, "", status, nil, err)
}
