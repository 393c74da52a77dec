package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ButyrinIA/menfess/internal/config"
	"github.com/ButyrinIA/menfess/internal/menfess"
	"github.com/ButyrinIA/menfess/internal/realtime"
	"github.com/ButyrinIA/menfess/internal/storage"
)

type Server struct {
	cfg      *config.Config
	svc      *menfess.Service
	hub      *realtime.Hub
	router   *mux.Router
	handler  http.Handler
	upgrader websocket.Upgrader
}

func New(cfg *config.Config, svc *menfess.Service, hub *realtime.Hub) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		hub:    hub,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.endpoints()
	s.handler = s.loggingMiddleware(s.router)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) endpoints() {
	r := s.router
	r.Use(s.actorMiddleware)

	r.HandleFunc("/posts", s.listPostsHandler).Methods(http.MethodGet)
	r.HandleFunc("/posts", s.createPostHandler).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}", s.getPostHandler).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", s.editPostHandler).Methods(http.MethodPut)
	r.HandleFunc("/posts/{id}", s.deletePostHandler).Methods(http.MethodDelete)
	r.HandleFunc("/posts/{id}/comments", s.listCommentsHandler).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}/comments", s.addCommentHandler).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}/like", s.likeHandler).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}/share", s.shareHandler).Methods(http.MethodPost)
	r.HandleFunc("/like_post", s.likeHandler).Methods(http.MethodPost)
	r.HandleFunc("/share_post", s.shareHandler).Methods(http.MethodPost)
	r.HandleFunc("/like_post/{id}", s.likeHandler).Methods(http.MethodPost)
	r.HandleFunc("/share_post/{id}", s.shareHandler).Methods(http.MethodPost)
	r.HandleFunc("/trending", s.trendingHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/notifications", s.notificationsHandler).Methods(http.MethodGet)
	r.HandleFunc("/stream", s.streamHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.wsHandler).Methods(http.MethodGet)
	r.HandleFunc("/login", s.loginHandler).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/posts", s.adminHandler).Methods(http.MethodGet)
	admin.HandleFunc("/approve/{id}", s.statusHandler(s.svc.Approve)).Methods(http.MethodPost)
	admin.HandleFunc("/delete/{id}", s.statusHandler(s.svc.Delete)).Methods(http.MethodPost)
	admin.HandleFunc("/restore/{id}", s.statusHandler(s.svc.Restore)).Methods(http.MethodPost)
	admin.HandleFunc("/roles", s.roleHandler).Methods(http.MethodPost)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("[server] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, menfess.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, menfess.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errUnauthorized):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		log.Errorf("[server] %v", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
