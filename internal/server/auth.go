package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

var errUnauthorized = errors.New("unauthorized")

func generateToken(subject, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": subject,
		"role":    "admin",
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}

func validateJWT(tokenString, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: no signing secret configured", errUnauthorized)
	}
	if tokenString == "" {
		return "", fmt.Errorf("%w: empty token", errUnauthorized)
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid || claims["role"] != "admin" {
		return "", fmt.Errorf("%w: invalid token", errUnauthorized)
	}
	subject, _ := claims["user_id"].(string)
	return subject, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginHandler exchanges the single admin credential for a bearer token.
// An empty configured password disables login.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	defer r.Body.Close()

	admin := s.cfg.Admin
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(admin.Password)) == 1
	if !s.adminEnabled() || !userOK || !passOK {
		writeError(w, fmt.Errorf("%w: wrong credentials", errUnauthorized))
		return
	}

	subject := admin.UID
	if subject == "" {
		subject = admin.Username
	}
	token, err := generateToken(subject, admin.JWTSecret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
