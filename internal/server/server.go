package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjacktables/internal/ledger"
)

// Server accepts WebSocket clients and routes them to tables
type Server struct {
	config      *Config
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	tables      map[string]*Table
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	httpServer  *http.Server
}

// NewServer creates a server with one table per configured table block,
// all sharing the given ledger.
func NewServer(config *Config, bank ledger.Ledger, seed int64, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		tables:      make(map[string]*Table),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}

	for i, tc := range config.Tables {
		s.tables[tc.Name] = NewTable(tc, bank, quartz.NewReal(), seed+int64(i), logger)
	}

	return s
}

// Table returns the named table, or nil
func (s *Server) Table(name string) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[name]
}

// Start runs the table goroutines and the HTTP listener, blocking until
// one of them fails or Stop is called
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    s.config.GetServerAddress(),
		Handler: mux,
	}

	g, _ := errgroup.WithContext(s.ctx)
	for _, table := range s.tables {
		g.Go(table.Run)
	}
	g.Go(func() error {
		s.logger.Info("Starting WebSocket server", "addr", s.httpServer.Addr, "tables", len(s.tables))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	return g.Wait()
}

// Stop shuts the server down
func (s *Server) Stop() error {
	s.cancel()

	for _, table := range s.tables {
		table.Stop()
	}

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)

				// Unseat the player from their table, if any
				login := conn.GetPlayer()
				tableName := conn.GetTable()
				if login != "" && tableName != "" {
					if table := s.tables[tableName]; table != nil {
						s.logger.Info("Cleaning up disconnected player", "player", login, "table", tableName)
						table.Leave(login)
					}
				}

				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)
	s.register <- client
	client.Start()
}

// handleHealth responds to health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
