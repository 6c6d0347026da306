package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/techagentng/imagegallery/config"
	"github.com/techagentng/imagegallery/services"
	"go.uber.org/zap"
)

// Server wires the gallery services to HTTP.
type Server struct {
	Config         *config.Config
	Logger         *zap.Logger
	Verifier       IdentityVerifier
	LikeService    services.LikeService
	CommentService services.CommentService
	PostService    services.PostService
	GalleryService services.GalleryService
	// RateLimitStore backs the limiter on write routes. An in-memory store
	// is used when nil.
	RateLimitStore ratelimit.Store
}

// Start serves until SIGINT or SIGTERM and then drains in-flight requests.
func (s *Server) Start() {
	r := s.setupRouter()

	PORT := fmt.Sprintf(":%d", s.Config.Port)
	srv := &http.Server{
		Addr:              PORT,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.Logger.Info("server started", zap.String("addr", PORT))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.Logger.Error("server forced to shutdown", zap.Error(err))
	}
	s.Logger.Info("server exiting")
}
