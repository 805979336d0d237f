package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/w-h-a/sourcechat/internal/service/chat"
	"github.com/w-h-a/sourcechat/internal/service/drive"
)

// ChatService is the slice of the chat service the handlers use.
type ChatService interface {
	Ask(ctx context.Context, message string, threadId string) (*chat.Response, error)
}

// DriveService is the slice of the folder search the handlers use.
type DriveService interface {
	FolderId(name string) (string, bool)
	SearchFolder(ctx context.Context, query string, folderId string) []drive.File
	SearchAll(ctx context.Context, query string) map[string][]drive.File
}

type Server struct {
	httpServer *http.Server
	router     *mux.Router

	chatService  ChatService
	driveService DriveService

	assistantId      string
	referencesLoaded int
}

func (s *Server) routes() {
	s.router.Use(cors)

	s.router.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/search-drive", s.handleSearchDrive).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func NewServer(
	address string,
	chatService ChatService,
	driveService DriveService,
	assistantId string,
	referencesLoaded int,
) *Server {
	s := &Server{
		router:           mux.NewRouter(),
		chatService:      chatService,
		driveService:     driveService,
		assistantId:      assistantId,
		referencesLoaded: referencesLoaded,
	}

	s.routes()

	s.httpServer = &http.Server{
		Addr:         address,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}
