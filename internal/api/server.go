package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/bidwatch/internal/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// NewRouter wires the handlers onto a gin engine.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/crawl", h.StartCrawl)
		v1.GET("/crawl/status", h.CrawlStatus)
		v1.GET("/bids", h.ListBids)
		v1.PATCH("/bids/:id/status", h.UpdateBidStatus)
		v1.GET("/stats", h.Stats)
	}
	return router
}

// Server runs the HTTP API.
type Server struct {
	srv    *http.Server
	logger logger.Interface
}

// NewServer builds a server listening on addr.
func NewServer(addr string, h *Handler, log logger.Interface) *Server {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(h),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: log.WithComponent("server"),
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
