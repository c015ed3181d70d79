// Package server exposes recorded worker reports over HTTP. It is
// read-only; the manager is controlled through its named pipes.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"syncd/internal/logger"
	"syncd/internal/model"
	"syncd/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	defaultHistoryN = 20
	maxHistoryN     = 1000
)

type HistorySource interface {
	GetRecent(limit int) ([]model.History, error)
	GetBySrc(src string, limit int) ([]model.History, error)
	GetStats() (repository.Stats, error)
}

type Server struct {
	echo *echo.Echo
	hist HistorySource
	addr string
}

func New(hist HistorySource, addr string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo: e,
		hist: hist,
		addr: addr,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)

	g := s.echo.Group("/history")
	g.GET("", s.handleHistory)
	g.GET("/stats", s.handleStats)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() {
	go func() {
		logger.Log.Info("history server started",
			zap.String("addr", s.addr))

		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("history server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHistory(c echo.Context) error {
	n := defaultHistoryN
	if nStr := c.QueryParam("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
		}
		n = min(parsed, maxHistoryN)
	}

	var (
		histories []model.History
		err       error
	)
	if src := c.QueryParam("src"); src != "" {
		histories, err = s.hist.GetBySrc(src, n)
	} else {
		histories, err = s.hist.GetRecent(n)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, histories)
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.hist.GetStats()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, stats)
}
