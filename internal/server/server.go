// Package server exposes the store over a local HTTP + WebSocket API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tasklist/internal/metrics"
	"tasklist/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Server serves one store.
type Server struct {
	store       *store.Store
	metrics     *metrics.Metrics
	log         *log.Logger
	hub         *Hub
	engine      *gin.Engine
	upgrader    websocket.Upgrader
	unsubscribe func()

	// snapMu orders snapshot reads with their delivery to the hub.
	snapMu sync.Mutex
}

// New wires routes and subscribes to store changes. m may be nil, in which
// case /metrics is not served. Call Close when done.
func New(st *store.Store, m *metrics.Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		store:   st,
		metrics: m,
		log:     logger,
		hub:     newHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.engine = s.routes()
	s.unsubscribe = st.Subscribe(s.broadcast)
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	if s.metrics != nil {
		r.Use(s.countRequests())
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", s.serveWS)

	api := r.Group("/api")
	api.GET("/snapshot", s.getSnapshot)
	api.GET("/labels", s.getLabels)
	api.PUT("/input", s.putInput)
	api.POST("/tasks", s.addTask)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.POST("/tasks/:id/toggle", s.toggleTask)
	api.POST("/tasks/:id/edit", s.startEdit)
	api.PUT("/edit", s.setDraft)
	api.POST("/edit/commit", s.commitEdit)
	api.DELETE("/edit", s.cancelEdit)
	api.POST("/locale/toggle", s.toggleLocale)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close stops broadcasting and disconnects WebSocket clients.
func (s *Server) Close() {
	s.unsubscribe()
	s.hub.Close()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) broadcast() {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	data, err := json.Marshal(s.store.Snapshot())
	if err != nil {
		s.log.Error("encode snapshot", "err", err)
		return
	}
	s.hub.Broadcast(data)
}

func (s *Server) serveWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "err", err)
		return
	}

	cl := &client{hub: s.hub, conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.registerClient(cl) {
		conn.Close()
		return
	}
	go cl.writePump()
	go cl.readPump()
}

// registerClient queues the current snapshot for cl and adds it to the hub
// before any later change can be broadcast.
func (s *Server) registerClient(cl *client) bool {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	first, err := json.Marshal(s.store.Snapshot())
	if err != nil {
		s.log.Error("encode snapshot", "err", err)
		return false
	}
	return s.hub.register(cl, first)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
