package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ButyrinIA/menfess/internal/menfess"
)

type ctxKeyActor struct{}

// responseLogger records the status code. It forwards Flush and Hijack so
// the event stream and the websocket upgrade keep working behind it.
type responseLogger struct {
	w      http.ResponseWriter
	status int
}

func newResponseLogger(w http.ResponseWriter) *responseLogger {
	return &responseLogger{w, http.StatusOK}
}

func (l *responseLogger) WriteHeader(code int) {
	l.status = code
	l.w.WriteHeader(code)
}

func (l *responseLogger) Write(b []byte) (int, error) {
	return l.w.Write(b)
}

func (l *responseLogger) Header() http.Header {
	return l.w.Header()
}

func (l *responseLogger) Status() int {
	return l.status
}

func (l *responseLogger) Flush() {
	if f, ok := l.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (l *responseLogger) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := l.w.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := newResponseLogger(w)
		next.ServeHTTP(lw, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   lw.Status(),
			"ip":       getClientIP(r),
			"duration": time.Since(start).Seconds(),
		}).Debug("[server] request")
	})
}

// actorMiddleware reads who is acting: X-UID and X-Name identify a user,
// a valid admin bearer token marks the request as the moderator's.
func (s *Server) actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := menfess.Actor{
			UID:  strings.TrimSpace(r.Header.Get("X-UID")),
			Name: strings.TrimSpace(r.Header.Get("X-Name")),
		}
		// tokens are only honoured while admin login is enabled
		if token := bearerToken(r); token != "" && s.adminEnabled() {
			if _, err := validateJWT(token, s.cfg.Admin.JWTSecret); err == nil {
				actor.Admin = true
				if actor.UID == "" {
					actor.UID = s.cfg.Admin.UID
				}
			} else {
				log.Debugf("[server] ignoring invalid bearer token from %s: %v", getClientIP(r), err)
			}
		}
		ctx := context.WithValue(r.Context(), ctxKeyActor{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminEnabled() bool {
	return s.cfg.Admin.Password != "" && s.cfg.Admin.JWTSecret != ""
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r).Admin {
			writeError(w, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFrom(r *http.Request) menfess.Actor {
	actor, _ := r.Context().Value(ctxKeyActor{}).(menfess.Actor)
	return actor
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func getClientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}
	return ip
}
