package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"cassandra-chat/internal/config"
	"cassandra-chat/internal/database"
	"cassandra-chat/internal/server"
	"cassandra-chat/internal/stats"
)

type ChatApp struct {
	log        *log.Logger
	db         database.ChatRepository
	cs         *server.ChatServer
	stats      stats.StatsProvider
	mux        *http.Server
	signingKey []byte
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.ChatRepository, sp stats.StatsProvider, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:        logger,
		db:         db,
		cs:         cs,
		stats:      sp,
		signingKey: cfg.SigningKey,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/users/register", s.createAccount)
	mux.HandleFunc("POST /api/users/login", s.login)
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("GET /api/users/{userId}", s.getUser)
	mux.HandleFunc("GET /api/users/{userId}/rooms", s.authMiddleware(s.getUserRooms))
	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms/{roomId}", s.getRoom)
	mux.HandleFunc("GET /api/rooms/{roomId}/users", s.listRoomMembers)
	mux.HandleFunc("GET /api/rooms/{roomId}/users/count", s.countRoomMembers)
	mux.HandleFunc("POST /api/rooms/{roomId}/users", s.authMiddleware(s.joinRoom))
	mux.HandleFunc("POST /api/rooms/{roomId}/messages", s.authMiddleware(s.postMessage))
	mux.HandleFunc("GET /api/rooms/{roomId}/messages", s.listMessagesByRoom)
	mux.HandleFunc("GET /api/rooms/{roomId}/messages/{senderId}", s.listMessagesBySender)
	mux.HandleFunc("PUT /api/rooms/{roomId}/messages/{messageId}", s.authMiddleware(s.editMessage))
	mux.HandleFunc("DELETE /api/rooms/{roomId}/messages/{messageId}", s.authMiddleware(s.deleteMessage))
	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
