// Package httpapi exposes the interview and CV analysis workflows over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/session"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/workflow"
)

const (
	DefaultAddr = ":8080"

	shutdownTimeout = 10 * time.Second
)

// Interviewer runs interview turns for a session.
type Interviewer interface {
	Start(ctx context.Context, s *session.Session) (*workflow.Opening, error)
	Answer(ctx context.Context, s *session.Session, answer string) (*workflow.Turn, error)
}

// Analyzer compares a CV against job requirements.
type Analyzer interface {
	Run(ctx context.Context, cv, requirements string) (*workflow.Analysis, error)
}

// Config carries the server settings and its dependencies.
type Config struct {
	Addr            string `mapstructure:"addr"`
	Mode            string `mapstructure:"mode"`
	RateLimitPerMin int    `mapstructure:"rate-limit-per-min"`

	Interviewer Interviewer    `mapstructure:"-"`
	Analyzer    Analyzer       `mapstructure:"-"`
	Store       *session.Store `mapstructure:"-"`
}

type Server struct {
	gin         *gin.Engine
	logger      *zap.Logger
	addr        string
	interviewer Interviewer
	analyzer    Analyzer
	store       *session.Store
	limiter     *rateLimiter
}

func New(log *zap.Logger, cfg Config) (*Server, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	srv := &Server{
		gin:         gin.New(),
		logger:      log,
		addr:        cfg.Addr,
		interviewer: cfg.Interviewer,
		analyzer:    cfg.Analyzer,
		store:       cfg.Store,
	}
	if cfg.RateLimitPerMin > 0 {
		srv.limiter = newRateLimiter(cfg.RateLimitPerMin)
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}

	srv.mapHandlers()
	return srv, nil
}

func (srv *Server) validate() error {
	if srv.logger == nil {
		return errors.New("logger is required")
	}
	if srv.interviewer == nil {
		return errors.New("interviewer is required")
	}
	if srv.analyzer == nil {
		return errors.New("analyzer is required")
	}
	if srv.store == nil {
		return errors.New("session store is required")
	}
	return nil
}

func (srv *Server) Handler() http.Handler {
	return srv.gin
}

func (srv *Server) Addr() string {
	return srv.addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              srv.addr,
		Handler:           srv.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info("http server listening", zap.String("addr", srv.addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	srv.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (srv *Server) mapHandlers() {
	srv.gin.Use(gin.Recovery(), srv.requestLogger())

	srv.gin.GET("/health", srv.healthCheck)

	api := srv.gin.Group("/api/v1")
	if srv.limiter != nil {
		api.Use(srv.limiter.middleware())
	}

	api.POST("/sessions", srv.createSession)
	api.POST("/sessions/:id/answers", srv.answer)
	api.GET("/sessions/:id/messages", srv.messages)
	api.DELETE("/sessions/:id", srv.closeSession)
	api.POST("/analyses", srv.analyze)
}

func (srv *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Error(c.Errors.Last().Err))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			srv.logger.Error("request failed", fields...)
			return
		}
		srv.logger.Debug("request served", fields...)
	}
}
