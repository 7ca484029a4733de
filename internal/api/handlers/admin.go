package handlers

import (
	"net/http"
	"time"

	"github.com/parla-app/parla/internal/api/middleware"
	"github.com/parla-app/parla/internal/db"
)

var startTime = time.Now()

type AdminHandler struct {
	db      *db.Database
	limiter *middleware.RateLimiter
}

func NewAdminHandler(database *db.Database, limiter *middleware.RateLimiter) *AdminHandler {
	return &AdminHandler{db: database, limiter: limiter}
}

// ListUsers returns all users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers()
	if err != nil {
		jsonError(w, "failed to list users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, users, http.StatusOK)
}

// CreateUser creates a new user
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, "username and password are required", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	if req.Role != "admin" && req.Role != "user" {
		jsonError(w, "role must be one of: admin, user", http.StatusBadRequest)
		return
	}

	id, err := h.db.CreateUser(req.Username, req.Password, req.Role)
	if err != nil {
		jsonError(w, "failed to create user (username may already exist)", http.StatusConflict)
		return
	}

	jsonResponse(w, map[string]any{"id": id, "username": req.Username, "role": req.Role}, http.StatusCreated)
}

// RateLimitStatus reports the translate endpoint's limiter.
func (h *AdminHandler) RateLimitStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.limiter.Status(), http.StatusOK)
}

// ClearRateLimits resets every tracked IP.
func (h *AdminHandler) ClearRateLimits(w http.ResponseWriter, r *http.Request) {
	h.limiter.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Health is the unauthenticated liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(startTime).Round(time.Second).String(),
	}, http.StatusOK)
}
