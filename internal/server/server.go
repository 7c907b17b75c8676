package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/StockPredictor/internal/service"
	"github.com/Alias1177/StockPredictor/models"
)

// Analyzer runs one analysis request
type Analyzer interface {
	Analyze(ctx context.Context, req service.Request) (*models.Report, error)
}

// AnalysisQuery is the query string of GET /api/v1/analysis/:symbol
type AnalysisQuery struct {
	Lookback string `query:"lookback"`
	Forecast string `query:"forecast" validate:"omitempty,oneof=true false 1 0"`
	Horizon  int    `query:"horizon" validate:"gte=0,lte=365"`
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Server wraps the Echo API
type Server struct {
	echo     *echo.Echo
	analyzer Analyzer
	validate *validator.Validate
	logger   zerolog.Logger
}

// New builds the router
func New(analyzer Analyzer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		analyzer: analyzer,
		validate: validator.New(),
		logger:   log.With().Str("component", "http_server").Logger(),
	}

	e.Use(s.recoverer)
	e.Use(s.requestLogger)

	e.GET("/healthz", s.health)
	e.GET("/api/v1/analysis/:symbol", s.analysis)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens until the server is shut down
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analysis(c echo.Context) error {
	var q AnalysisQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	if err := s.validate.StructCtx(c.Request().Context(), q); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}

	req := service.Request{
		Symbol:   c.Param("symbol"),
		Lookback: q.Lookback,
		Horizon:  q.Horizon,
	}
	if q.Forecast != "" {
		forecast := q.Forecast == "true" || q.Forecast == "1"
		req.Forecast = &forecast
	}

	report, err := s.analyzer.Analyze(c.Request().Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error().Err(err).Str("symbol", c.Param("symbol")).Msg("Analysis failed")
		}
		return writeError(c, status, err)
	}

	return c.JSON(http.StatusOK, report)
}

// statusFor maps analysis errors to HTTP statuses
func statusFor(err error) int {
	var insufficient *models.InsufficientHistoryError
	var fetchErr *models.DataFetchError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, models.ErrInvalidSymbol), errors.Is(err, models.ErrInvalidLookback):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEmptySeries):
		return http.StatusNotFound
	case errors.As(err, &insufficient), errors.As(err, &validationErrs):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, ErrorResponse{Status: status, Message: err.Error()})
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		s.logger.Debug().
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Int("status", c.Response().Status).
			Dur("latency", time.Since(start)).
			Msg("Request handled")

		return err
	}
}

func (s *Server) recoverer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Str("uri", c.Request().RequestURI).Msg("Recovered from panic")
				err = c.JSON(http.StatusInternalServerError, ErrorResponse{
					Status:  http.StatusInternalServerError,
					Message: "internal error",
				})
			}
		}()
		return next(c)
	}
}
