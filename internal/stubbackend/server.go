// Package stubbackend is the development and e2e stand-in for the registry
// backend. It serves the exact client contract the session core depends on:
// the login call, the enveloped profile call, and the notification feed.
package stubbackend

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"portalcore/internal/domain"
	dErrors "portalcore/pkg/domain-errors"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// Server bundles the stub's handlers.
type Server struct {
	logger   *slog.Logger
	users    *UserStore
	tokens   *JWTService
	upgrader websocket.Upgrader
	// notifyEvery drives the demo notification feed.
	notifyEvery time.Duration
}

func NewServer(users *UserStore, tokens *JWTService, logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		users:  users,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		notifyEvery: 10 * time.Second,
	}
}

// Router wires the stub's routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/login/", s.handleLogin)
	r.Get("/users/me/", s.handleMe)
	r.Get("/ws/notifications/", s.handleNotifications)
	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Device   string `json:"device"`
}

type loginResponse struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    domain.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "malformed login request"))
		return
	}

	user, err := s.users.Authenticate(req.Email, req.Password)
	if err != nil {
		s.logger.Warn("login rejected", "email", req.Email)
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	access, err := s.tokens.GenerateToken(user, accessTokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	refresh, err := s.tokens.GenerateToken(user, refreshTokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("login", "user_id", user.ID, "role", user.Role, "device", req.Device)
	writeJSON(w, http.StatusOK, loginResponse{Access: access, Refresh: refresh, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.users.Restricted(claims.UserID) {
		writeError(w, dErrors.New(dErrors.CodeRestricted, "account pending approval"))
		return
	}

	user, err := s.users.FindByID(claims.UserID)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown account"))
		return
	}
	writeEnvelope(w, user)
}

// handleNotifications upgrades and streams demo notification frames until the
// client goes away.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticateWS(r); err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.notifyEvery)
	defer ticker.Stop()

	for {
		<-ticker.C
		frame := map[string]any{
			"type":      "notification",
			"data":      map[string]string{"text": "registry update available"},
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

// authenticate pulls and validates the bearer token.
func (s *Server) authenticate(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token")
	}
	return s.tokens.ValidateToken(token)
}

// authenticateWS also accepts a token query parameter, since browser
// websocket clients cannot set headers.
func (s *Server) authenticateWS(r *http.Request) (*Claims, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return s.tokens.ValidateToken(token)
	}
	return s.authenticate(r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEnvelope wraps v in the success envelope the client expects.
func writeEnvelope(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": v})
}

// writeError maps domain error codes onto HTTP statuses. Internal causes are
// not leaked to the response.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case dErrors.CodeBadRequest:
		status = http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		status = http.StatusUnauthorized
	case dErrors.CodeRestricted:
		status = http.StatusForbidden
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
	case dErrors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	}

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = dErrors.DescriptionOf(err)
	}
	writeJSON(w, status, body)
}
