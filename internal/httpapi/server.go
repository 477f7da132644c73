// Package httpapi is the thin HTTP adapter over the chat service: Echo
// routes that delegate every room-mutating action to the core gate and the
// media pipeline, plus static serving for durable uploads and emote images.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"pollchat/internal/core"
	"pollchat/internal/media"
)

// Server is the Echo application.
type Server struct {
	echo    *echo.Echo
	service *core.Service
	media   *media.Pipeline
}

// Options tunes the HTTP surface.
type Options struct {
	// ContentDir is served at /uploads; empty disables static serving.
	ContentDir string
	// EmotesDir is served at /emotes; empty disables static serving.
	EmotesDir string
	// MaxUploadBytes caps request bodies; zero or less means no cap.
	MaxUploadBytes int64
}

// New constructs the Echo app. pipeline may be nil, in which case uploads are
// rejected with 503.
func New(service *core.Service, pipeline *media.Pipeline, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	if opts.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(opts.MaxUploadBytes, 10)))
	}

	s := &Server{echo: e, service: service, media: pipeline}
	s.registerRoutes(opts)
	return s
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes(opts Options) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/create-room", s.handleCreateRoom)
	s.echo.GET("/messages", s.handleMessages)
	s.echo.POST("/join", s.handleJoin)
	s.echo.POST("/leave", s.handleLeave)
	s.echo.POST("/typing", s.handleTyping)
	s.echo.POST("/send", s.handleSend)
	s.echo.POST("/upload", s.handleUpload)

	if opts.ContentDir != "" {
		s.echo.Static("/uploads", opts.ContentDir)
	}
	if opts.EmotesDir != "" {
		s.echo.Static("/emotes", opts.EmotesDir)
	}
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

// httpError maps service and pipeline errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrBadRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrRoomNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrPolicyViolation):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, media.ErrUnsupportedMedia):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, media.ErrTranscodeFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal failure")
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Rooms:  s.service.RoomCount(),
	})
}

func (s *Server) handleCreateRoom(c echo.Context) error {
	if err := s.service.CreateRoom(c.FormValue("name")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}

type messagesResponse struct {
	Messages []core.Entry `json:"messages"`
	Users    []string     `json:"users"`
}

func (s *Server) handleMessages(c echo.Context) error {
	messages, users := s.service.ListMessages(c.QueryParam("room"))
	return c.JSON(http.StatusOK, messagesResponse{Messages: messages, Users: users})
}

func (s *Server) handleJoin(c echo.Context) error {
	if err := s.service.Join(c.FormValue("room"), c.FormValue("user")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleLeave(c echo.Context) error {
	if err := s.service.Leave(c.FormValue("room"), c.FormValue("user")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleTyping(c echo.Context) error {
	typing, _ := strconv.ParseBool(c.FormValue("typing"))
	if err := s.service.SetTyping(c.FormValue("room"), c.FormValue("user"), typing); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleSend(c echo.Context) error {
	err := s.service.SendText(c.FormValue("room"), c.FormValue("user"), c.FormValue("text"))
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusOK)
}

type uploadResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

func (s *Server) handleUpload(c echo.Context) error {
	if s.media == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "media uploads are not configured")
	}

	room := strings.TrimSpace(c.FormValue("room"))
	user := strings.TrimSpace(c.FormValue("user"))
	if room == "" || user == "" {
		return httpError(core.ErrBadRequest)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart file field \"file\" is required")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("open uploaded file: %v", err))
	}
	defer src.Close()

	// The transcode runs here, before any room lock is taken; only the final
	// append below goes through the gate.
	ref, err := s.media.Ingest(c.Request().Context(), media.Upload{
		Reader:       src,
		Filename:     fileHeader.Filename,
		DeclaredType: strings.TrimSpace(fileHeader.Header.Get(echo.HeaderContentType)),
	})
	if err != nil {
		return httpError(err)
	}

	if err := s.service.PostMedia(room, user, ref.Fragment); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, uploadResponse{
		ID:        ref.ID,
		Kind:      ref.Kind,
		URL:       ref.URL,
		SizeBytes: ref.SizeBytes,
	})
}
