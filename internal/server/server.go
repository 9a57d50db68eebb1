// internal/server/server.go
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/taskhub/taskhub/internal/coordinator"
	"github.com/taskhub/taskhub/internal/mcp"
)

// Server is the HTTP front of the hub: the REST API, the agent tool
// endpoint and the WebSocket event stream share one listener.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	hub        *Hub

	coord *coordinator.Coordinator
	mcp   *mcp.Server
}

// NewServer wires routes over a coordinator. The hub must already be
// registered as one of the coordinator's announcers.
func NewServer(coord *coordinator.Coordinator, mcpServer *mcp.Server, hub *Hub, host string, port int) *Server {
	s := &Server{
		router: mux.NewRouter(),
		hub:    hub,
		coord:  coord,
		mcp:    mcpServer,
	}
	s.routes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      corsMiddleware(loggingMiddleware(s.router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/hunters/register", s.handleRegisterHunter).Methods("POST")
	api.HandleFunc("/hunters", s.handleListHunters).Methods("GET")
	api.HandleFunc("/hunters/study", s.handleStudyKnowledge).Methods("POST")
	api.HandleFunc("/hunters/{id}", s.handleGetHunter).Methods("GET")
	api.HandleFunc("/hunters/{id}/reputation", s.handleSetReputation).Methods("POST")

	api.HandleFunc("/tasks", s.handlePublishTask).Methods("POST")
	api.HandleFunc("/tasks", s.handleListTasks).Methods("GET")
	api.HandleFunc("/tasks/{id}", s.handleGetTask).Methods("GET")
	api.HandleFunc("/tasks/{id}", s.handleDeleteTask).Methods("DELETE")
	api.HandleFunc("/tasks/{id}/claim", s.handleClaimTask).Methods("POST")
	api.HandleFunc("/tasks/{id}/start", s.handleStartTask).Methods("POST")
	api.HandleFunc("/tasks/{id}/complete", s.handleCompleteTask).Methods("POST")
	api.HandleFunc("/tasks/{id}/archive", s.handleArchiveTask).Methods("POST")

	api.HandleFunc("/reports", s.handleSubmitReport).Methods("POST")
	api.HandleFunc("/reports", s.handleListReports).Methods("GET")
	api.HandleFunc("/reports/{id}", s.handleGetReport).Methods("GET")
	api.HandleFunc("/reports/{id}/evaluate", s.handleEvaluateReport).Methods("POST")

	api.HandleFunc("/discussion", s.handlePostMessage).Methods("POST")
	api.HandleFunc("/discussion", s.handleLatestMessages).Methods("GET")
	api.HandleFunc("/discussion/unread", s.handleUnreadMessages).Methods("GET")

	api.HandleFunc("/knowledge", s.handleCreateKnowledge).Methods("POST")
	api.HandleFunc("/knowledge", s.handleListKnowledge).Methods("GET")
	api.HandleFunc("/knowledge/search", s.handleSearchKnowledge).Methods("GET")
	api.HandleFunc("/knowledge/{id}", s.handleGetKnowledge).Methods("GET")
	api.HandleFunc("/knowledge/{id}", s.handleUpdateKnowledge).Methods("PUT")
	api.HandleFunc("/knowledge/{id}", s.handleDeleteKnowledge).Methods("DELETE")

	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/health", s.handleHealthCheck).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.Handle("/mcp", s.mcp)
}

// Start runs the hub loop and the HTTP listener
func (s *Server) Start() error {
	go s.hub.Run()
	log.Printf("[SERVER] Listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("[SERVER] Shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
}
