// Package httpapi is the HTTP front end: room creation, the WebSocket entry
// point into the relay engine, the file-transfer convenience endpoints and
// static assets.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/luciancaetano/roomlink"
	"github.com/luciancaetano/roomlink/internal/config"
	"github.com/luciancaetano/roomlink/internal/filedrop"
	"github.com/luciancaetano/roomlink/internal/room"
)

// Server wires the registry, the upload store and the echo router together.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *room.Registry
	store    *filedrop.Store
	upgrader websocket.Upgrader

	echo *echo.Echo

	mu       sync.Mutex
	running  bool
	cancelBg context.CancelFunc
}

var _ roomlink.Server = (*Server)(nil)

// New builds a server from cfg. The upload store directory is wiped here;
// an empty file_drop.dir disables those endpoints.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	registry := room.NewRegistry(&room.Config{
		AuthTimeout:  cfg.Room.AuthTimeout,
		ClaimTimeout: cfg.Room.ClaimTimeout,
		RateLimit: &room.RateLimitConfig{
			Capacity:       cfg.RateLimit.Capacity,
			RefillInterval: cfg.RateLimit.RefillInterval,
			WarnWindow:     cfg.RateLimit.WarnWindow,
			WarnLimit:      cfg.RateLimit.WarnLimit,
			Enabled:        cfg.RateLimit.Enabled,
		},
	}, log)

	var store *filedrop.Store
	if cfg.FileDrop.Dir != "" {
		var err error
		store, err = filedrop.New(cfg.FileDrop.Dir, cfg.FileDrop.TTL, log)
		if err != nil {
			return nil, fmt.Errorf("file drop: %w", err)
		}
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: registry,
		store:    store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
	s.echo = s.router()
	return s, nil
}

// Registry exposes the room registry, mainly for tests.
func (s *Server) Registry() *room.Registry {
	return s.registry
}

func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(s.log))

	e.POST("/newRoom", s.handleNewRoom)
	e.GET("/room/:id", s.handleRoomSocket)
	e.GET("/health", s.handleHealth)

	if s.store != nil {
		ft := e.Group("/file-transfer")
		ft.POST("/uploadfile", s.handleUpload)
		ft.GET("/uploads", s.handleUploadList)
		ft.GET("/uploads/:name", s.handleUploadGet)
	}

	if s.cfg.PublicDir != "" {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  s.cfg.PublicDir,
			HTML5: true,
		}))
	}

	return e
}

// Start starts the HTTP listener and the upload reaper. It returns once the
// listener is up, or with the startup error.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true

	bgCtx, cancel := context.WithCancel(context.Background())
	s.cancelBg = cancel
	s.mu.Unlock()

	if s.store != nil {
		go s.store.Run(bgCtx)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.cfg.Addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		cancel()
		return err
	case <-ctx.Done():
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return s.Stop(stopCtx)
	case <-time.After(100 * time.Millisecond):
		s.log.Info("listening", zap.String("addr", s.cfg.Addr))
		return nil
	}
}

// Stop tears down every active room and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancelBg
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.registry.CloseAll()

	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

type newRoomResponse struct {
	ID int `json:"id"`
	// Auth is the one-time secret the host must present.
	Auth string `json:"auth"`
	// Timeout is the absolute epoch-millis deadline for claiming the room.
	Timeout int64 `json:"timeout"`
}

func (s *Server) handleNewRoom(c echo.Context) error {
	r := s.registry.NewRoom()
	return c.JSON(http.StatusOK, newRoomResponse{
		ID:      r.ID(),
		Auth:    r.AuthSecret(),
		Timeout: r.ClaimDeadline().UnixMilli(),
	})
}

// handleRoomSocket upgrades the request and hands the socket to the
// registry. The upgrade happens before the id check so that an invalid room
// id can be reported over the socket itself.
func (s *Server) handleRoomSocket(c echo.Context) error {
	sock, err := s.upgrader.Upgrade(c.Response().Writer, c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		id = 0 // unknown to the registry, reported as invalidRoom
	}

	s.registry.Accept(sock, id)
	return nil
}

// originChecker builds the upgrader's origin check from the configured
// allowlist. An empty allowlist admits every origin; requests without an
// Origin header (non-browser clients) are always admitted.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}
