// Package api exposes the engine as a small REST parameter panel.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cbegin/sonic-go"
)

// Synth is the part of the engine the panel drives.
type Synth interface {
	Initialized() bool
	NoteOn(sonic.NoteID) error
	NoteOff(sonic.NoteID) error
	UpdateGlobalParameter(sonic.ParamKind, any) error
	Snapshot() sonic.Snapshot
}

type paramRequest struct {
	Value any `json:"value"`
}

// NewRouter wires the routes:
//
//	GET  /health
//	GET  /api/v1/params
//	PUT  /api/v1/params/:kind     {"value": ...}
//	POST /api/v1/notes/:id/on
//	POST /api/v1/notes/:id/off
func NewRouter(synth Synth, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"service":     "sonic",
			"initialized": synth.Initialized(),
		})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/params", func(c *gin.Context) {
			c.JSON(http.StatusOK, synth.Snapshot())
		})
		v1.PUT("/params/:kind", func(c *gin.Context) {
			var req paramRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			kind := sonic.ParamKind(c.Param("kind"))
			if err := synth.UpdateGlobalParameter(kind, req.Value); err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, synth.Snapshot().Params)
		})
		v1.POST("/notes/:id/on", func(c *gin.Context) {
			noteCall(c, synth.NoteOn)
		})
		v1.POST("/notes/:id/off", func(c *gin.Context) {
			noteCall(c, synth.NoteOff)
		})
	}
	return r
}

func noteCall(c *gin.Context, call func(sonic.NoteID) error) {
	id := sonic.NoteID(c.Param("id"))
	if err := call(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"note": id})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sonic.ErrEngineNotInitialized):
		status = http.StatusServiceUnavailable
	case errors.Is(err, sonic.ErrUnknownParameter):
		status = http.StatusNotFound
	case errors.Is(err, sonic.ErrInvalidNote), errors.Is(err, sonic.ErrInvalidParameter):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Serve runs the panel on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("http panel listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
