package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/globaltime"
)

// Projector is the narrow search-projection contract the editorial handler
// needs; gnaoua.dev/catalog/internal/searchindex.Synchronizer satisfies it.
type Projector interface {
	UpsertEvent(ctx context.Context, eventID int64) error
	DeleteEvent(ctx context.Context, eventID int64) error
	EnqueueRetry(ctx context.Context, eventID int64, operation string, cause error) error
}

// EditorialHandler is the command surface the server dispatches HTTP
// requests into; gnaoua.dev/catalog/internal/editorial.Handler satisfies it.
type EditorialHandler interface {
	Verify(ctx context.Context, actor string, eventID int64, flag bool, notes *string) error
	Pin(ctx context.Context, actor string, eventID int64, flag bool, reason *string) error
	SetSignificance(ctx context.Context, actor string, eventID int64, score int) error
	UpdateStatus(ctx context.Context, actor string, eventID int64, status string, sourceURL *string) error
	Merge(ctx context.Context, actor string, keepID, loseID int64) error
	Archive(ctx context.Context, actor string, eventID int64, reason *string) error
}

type Options struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	AdminAllowlist     map[string]struct{}
	AdminPasswordHash  string
}

type Server struct {
	pool              *db.Pool
	editorial         EditorialHandler
	logger            zerolog.Logger
	opts              Options
	adminAllowlist    map[string]struct{}
	adminPasswordHash string
}

type verifyRequest struct {
	Flag  bool    `json:"flag"`
	Notes *string `json:"notes"`
}

type pinRequest struct {
	Flag   bool    `json:"flag"`
	Reason *string `json:"reason"`
}

type setSignificanceRequest struct {
	Score int `json:"score"`
}

type updateStatusRequest struct {
	Status    string  `json:"status"`
	SourceURL *string `json:"source_url"`
}

type mergeRequest struct {
	KeepID int64 `json:"keep_id"`
	LoseID int64 `json:"lose_id"`
}

type archiveRequest struct {
	Reason *string `json:"reason"`
}

func NewServer(pool *db.Pool, editorialHandler EditorialHandler, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	allowlist := opts.AdminAllowlist
	if allowlist == nil {
		allowlist = map[string]struct{}{}
	}

	return &Server{
		pool:              pool,
		editorial:         editorialHandler,
		logger:            logger,
		adminAllowlist:    allowlist,
		adminPasswordHash: opts.AdminPasswordHash,
		opts: Options{
			Host:               host,
			Port:               port,
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			ShutdownTimeout:    shutdownTimeout,
			CORSAllowedOrigins: opts.CORSAllowedOrigins,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	corsOrigins := s.opts.CORSAllowedOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	admin := api.Group("/events", s.requireAdmin())
	admin.POST("/:event_id/verify", s.handleVerify)
	admin.POST("/:event_id/pin", s.handlePin)
	admin.POST("/:event_id/significance", s.handleSetSignificance)
	admin.POST("/:event_id/status", s.handleUpdateStatus)
	admin.POST("/:event_id/archive", s.handleArchive)
	admin.POST("/merge", s.handleMerge)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("catalog api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("catalog api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status == http.StatusUnauthorized {
		_ = unauthorizedResponse(c)
		return
	}
	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	var ok int
	if err := s.pool.QueryRow(c.Request().Context(), `SELECT 1`).Scan(&ok); err != nil {
		s.logger.Error().Err(err).Msg("health check database query failed")
		return internalError(c, "Database unavailable")
	}
	return success(c, map[string]any{
		"service": "catalog",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) eventIDParam(c echo.Context) (int64, error) {
	raw := strings.TrimSpace(c.Param("event_id"))
	eventID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || eventID <= 0 {
		return 0, fmt.Errorf("event_id must be a positive integer")
	}
	return eventID, nil
}

func (s *Server) handleVerify(c echo.Context) error {
	eventID, err := s.eventIDParam(c)
	if err != nil {
		return failValidation(c, map[string]string{"event_id": err.Error()})
	}
	var req verifyRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	if err := s.editorial.Verify(c.Request().Context(), actorFromContext(c), eventID, req.Flag, req.Notes); err != nil {
		return s.editorialError(c, eventID, err)
	}
	return success(c, map[string]any{"event_id": eventID, "is_verified": req.Flag})
}

func (s *Server) handlePin(c echo.Context) error {
	eventID, err := s.eventIDParam(c)
	if err != nil {
		return failValidation(c, map[string]string{"event_id": err.Error()})
	}
	var req pinRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	if err := s.editorial.Pin(c.Request().Context(), actorFromContext(c), eventID, req.Flag, req.Reason); err != nil {
		return s.editorialError(c, eventID, err)
	}
	return success(c, map[string]any{"event_id": eventID, "is_pinned": req.Flag})
}

func (s *Server) handleSetSignificance(c echo.Context) error {
	eventID, err := s.eventIDParam(c)
	if err != nil {
		return failValidation(c, map[string]string{"event_id": err.Error()})
	}
	var req setSignificanceRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if req.Score < 0 || req.Score > 10 {
		return failValidation(c, map[string]string{"score": "must be between 0 and 10"})
	}

	if err := s.editorial.SetSignificance(c.Request().Context(), actorFromContext(c), eventID, req.Score); err != nil {
		return s.editorialError(c, eventID, err)
	}
	return success(c, map[string]any{"event_id": eventID, "cultural_significance": req.Score})
}

func (s *Server) handleUpdateStatus(c echo.Context) error {
	eventID, err := s.eventIDParam(c)
	if err != nil {
		return failValidation(c, map[string]string{"event_id": err.Error()})
	}
	var req updateStatusRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if strings.TrimSpace(req.Status) == "" {
		return failValidation(c, map[string]string{"status": "is required"})
	}

	if err := s.editorial.UpdateStatus(c.Request().Context(), actorFromContext(c), eventID, req.Status, req.SourceURL); err != nil {
		return s.editorialError(c, eventID, err)
	}
	return success(c, map[string]any{"event_id": eventID, "status": req.Status})
}

func (s *Server) handleArchive(c echo.Context) error {
	eventID, err := s.eventIDParam(c)
	if err != nil {
		return failValidation(c, map[string]string{"event_id": err.Error()})
	}
	var req archiveRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	if err := s.editorial.Archive(c.Request().Context(), actorFromContext(c), eventID, req.Reason); err != nil {
		return s.editorialError(c, eventID, err)
	}
	return success(c, map[string]any{"event_id": eventID, "status": "archived"})
}

func (s *Server) handleMerge(c echo.Context) error {
	var req mergeRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if req.KeepID <= 0 || req.LoseID <= 0 {
		return failValidation(c, map[string]string{"keep_id": "keep_id and lose_id are required"})
	}

	if err := s.editorial.Merge(c.Request().Context(), actorFromContext(c), req.KeepID, req.LoseID); err != nil {
		return s.editorialError(c, req.LoseID, err)
	}
	return success(c, map[string]any{"keep_id": req.KeepID, "lose_id": req.LoseID})
}

func (s *Server) editorialError(c echo.Context, eventID int64, err error) error {
	if errors.Is(err, db.ErrNoRows) {
		return failNotFound(c, "Event not found")
	}
	s.logger.Error().Err(err).Int64("event_id", eventID).Msg("editorial command failed")
	return internalError(c, "Failed to apply editorial command")
}

func decodeJSONBody(c echo.Context, dest any) error {
	if c.Request().Body == nil {
		return fmt.Errorf("request body is required")
	}
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
