// Package httpapi exposes the OpenAI-compatible chat-completions
// façade over the chat driver.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/shenjinti/fgpt/internal/driver"
	"github.com/shenjinti/fgpt/pkg/safego"
)

// Server is the gin-backed HTTP façade.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	logger *zap.Logger
}

// NewServer builds the façade, mounting its routes under prefix
// (e.g. "/v1"). disableCORS skips the permissive CORS middleware
// entirely.
func NewServer(addr, prefix string, disableCORS bool, d *driver.Driver, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), ginLogger(logger))

	handler := &openaiHandler{runner: d.Run, logger: logger}

	group := engine.Group(prefix)
	group.POST("/chat/completions", handler.ChatCompletions)
	group.GET("/models", handler.Models)

	var h http.Handler = engine
	if !disableCORS {
		h = cors.AllowAll().Handler(engine)
	}

	return &Server{
		engine: engine,
		srv:    &http.Server{Addr: addr, Handler: h},
		logger: logger,
	}
}

// Start runs the façade until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	safego.Go(s.logger, "facade-listener", func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
