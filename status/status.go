package status

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/korjavin/exambot/models"
)

// Sessions reports a user's active exam session
type Sessions interface {
	Status(userID string) (models.Session, bool)
}

// Profiles reports a user's profile and effective model
type Profiles interface {
	Get(userID string) (models.Profile, bool)
	Model(userID string) string
}

// Handler serves read-only bot state over HTTP
type Handler struct {
	sessions Sessions
	profiles Profiles
}

// NewHandler creates a new Handler
func NewHandler(sessions Sessions, profiles Profiles) *Handler {
	return &Handler{sessions: sessions, profiles: profiles}
}

// UserStatus is the body of GET /users/{userID}
type UserStatus struct {
	UserID  string          `json:"user_id"`
	Profile models.Profile  `json:"profile"`
	Model   string          `json:"model"`
	Session *models.Session `json:"session,omitempty"`
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Get("/users/{userID}", h.User)
	return r
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// User returns the profile and exam session of a user
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	profile, known := h.profiles.Get(userID)
	resp := UserStatus{UserID: userID, Profile: profile, Model: h.profiles.Model(userID)}
	if s, ok := h.sessions.Status(userID); ok {
		resp.Session = &s
		known = true
	}
	if !known {
		h.respond(w, http.StatusNotFound, map[string]string{"error": "unknown user"})
		return
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *Handler) respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding status response: %v", err)
	}
}

// Serve listens on addr until ctx is done
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down status server: %v", err)
		}
	}()

	log.Printf("Status server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
