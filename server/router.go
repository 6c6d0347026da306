package server

import (
	"fmt"
	"net/http"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		r.Use(gin.Recovery())
		s.defineRoutes(r)
		return r
	}

	r := gin.New()

	// LoggerWithFormatter middleware will write the logs to gin.DefaultWriter
	// By default gin.DefaultWriter = os.Stdout
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if s.Config.AccessControlAllowOrigin != "" {
		corsConfig.AllowOrigins = []string{s.Config.AccessControlAllowOrigin}
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))
	r.MaxMultipartMemory = s.Config.MaxUploadBytes + 1<<20
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	store := s.RateLimitStore
	if store == nil {
		store = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Minute,
			Limit: s.Config.RateLimitPerMinute,
		})
	}
	limitRate := s.limitRate(store)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apirouter := router.Group("/api/v1")
	apirouter.GET("/categories", s.handleGetCategories())
	apirouter.GET("/images", s.handleListImages())
	apirouter.GET("/images/:id", s.handleGetImage())
	apirouter.GET("/images/:id/comments", s.handleListComments())
	apirouter.GET("/gallery", s.OptionalAuthorize(), s.handleGallery())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.POST("/images", limitRate, s.handleUploadImage())
	authorized.PATCH("/images/:id", limitRate, s.handleUpdateImage())
	authorized.DELETE("/images/:id", limitRate, s.handleDeleteImage())
	authorized.PUT("/images/:id/like", limitRate, s.handleReaction(true))
	authorized.PUT("/images/:id/dislike", limitRate, s.handleReaction(false))
	authorized.GET("/images/:id/reaction", s.handleGetReaction())
	authorized.POST("/images/:id/comments", limitRate, s.handleAddComment())
}
