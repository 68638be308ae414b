package server

import (
	"net/http"
	"sync"

	"github.com/loopfish/AIImageGuessChallenge-sub001/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	cfg       config.Config
	db        *gorm.DB
	registry  *registry
	hub       *wsHub
	sessions  *sessionStore
	images    ImageGenerator
	quit      chan struct{}
	closeOnce sync.Once
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	s := &Server{
		cfg:      cfg,
		db:       conn,
		registry: newRegistry(),
		hub:      newWSHub(),
		sessions: newSessionStore(conn),
		quit:     make(chan struct{}),
	}
	if cfg.OpenAIAPIKey != "" {
		s.images = newOpenAIImageClient(cfg.OpenAIAPIKey, cfg.OpenAIImageModel, cfg.OpenAIImageSize)
	}
	go s.livenessLoop()
	go s.reapLoop()
	return s
}

// SetImageGenerator swaps the image backend. Intended for wiring a fake in
// tests; must be called before any round starts.
func (s *Server) SetImageGenerator(gen ImageGenerator) {
	s.images = gen
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/games", s.handleListGames)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	return mux
}

// Close stops the background sweepers and every live room.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		for _, rm := range s.registry.all() {
			s.removeRoom(rm.code)
		}
	})
}
