// Package webui serves the optional --web ADDR dashboard (SPEC_FULL.md
// §6, §11), adapted from the teacher's internal/web package: the same
// fiber/v2 + gofiber/websocket/v2 server shape and broadcast-to-clients
// pattern, now pushing fuzzing session stats and crash records instead
// of HTTP-fuzzing stats and OWASP findings.
package webui

import (
	"encoding/json"
	"sync"

	"github.com/covfuzz/covfuzz/internal/crashdir"
	"github.com/covfuzz/covfuzz/internal/report"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
)

// CrashLister is the subset of *crashdir.Dir the dashboard needs.
type CrashLister interface {
	List() ([]crashdir.Entry, error)
}

// Server is the web dashboard: a stats endpoint, a crash-listing
// endpoint over crashdir.Entry (itself backed by gjson for its JSON
// sidecar reads), and a WebSocket broadcast of stats and crash events
// pushed in from the orchestrator.
type Server struct {
	app *fiber.App
	log zerolog.Logger

	mu    sync.RWMutex
	stats report.Stats

	crashes CrashLister

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
}

// NewServer constructs a Server that lists crashes via crashes.
func NewServer(crashes CrashLister, log zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	s := &Server{
		app:       app,
		log:       log,
		crashes:   crashes,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 64),
	}
	s.setupRoutes()
	go s.pump()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())

	api := s.app.Group("/api")
	api.Get("/stats", s.handleStats)
	api.Get("/crashes", s.handleCrashes)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWebSocket))

	s.app.Get("/", s.handleIndex)
	s.app.Get("/dashboard.js", s.handleIndexJS)
	s.app.Get("/dashboard.css", s.handleIndexCSS)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.stats)
}

// handleCrashes lists the crash directory through crashdir.List, which
// pulls each JSON sidecar's fields out with gjson (SPEC_FULL.md §4.8),
// and serves one small crashView per entry.
func (s *Server) handleCrashes(c *fiber.Ctx) error {
	entries, err := s.crashes.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	type crashView struct {
		Hash      string `json:"hash"`
		Size      int    `json:"size"`
		ErrorText string `json:"error_text"`
		Peek      string `json:"peek"`
	}
	views := make([]crashView, 0, len(entries))
	for _, e := range entries {
		views = append(views, crashView{
			Hash:      e.Hash,
			Size:      len(e.Sample),
			ErrorText: e.ErrorText,
			Peek:      report.Peek(e.Sample),
		})
	}
	return c.JSON(views)
}

func (s *Server) handleWebSocket(c *websocket.Conn) {
	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
		c.Close()
	}()

	s.mu.RLock()
	data, _ := json.Marshal(map[string]any{"type": "stats", "data": s.stats})
	s.mu.RUnlock()
	c.WriteMessage(websocket.TextMessage, data)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) pump() {
	for msg := range s.broadcast {
		s.clientsMu.Lock()
		for client := range s.clients {
			if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
				client.Close()
				delete(s.clients, client)
			}
		}
		s.clientsMu.Unlock()
	}
}

// PushStats updates the served stats snapshot and broadcasts it to
// every connected WebSocket client. Called from the orchestrator's
// OnStats callback.
func (s *Server) PushStats(stats report.Stats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()

	data, _ := json.Marshal(map[string]any{"type": "stats", "data": stats})
	select {
	case s.broadcast <- data:
	default:
		s.log.Warn().Msg("webui: broadcast channel full, dropping stats update")
	}
}

// PushCrash notifies connected clients that a new crash was recorded.
// Called from the orchestrator's crash-handling path (via cmd/covfuzz's
// OnCrash wiring) alongside PushStats.
func (s *Server) PushCrash(hash, errorText string) {
	data, _ := json.Marshal(map[string]any{"type": "crash", "data": map[string]string{"hash": hash, "error_text": errorText}})
	select {
	case s.broadcast <- data:
	default:
	}
}

// Start runs the dashboard's HTTP server, blocking until it stops.
func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("webui: dashboard starting")
	return s.app.Listen(addr)
}

// Stop gracefully shuts the dashboard server down.
func (s *Server) Stop() error {
	return s.app.Shutdown()
}
