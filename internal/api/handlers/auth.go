package handlers

import (
	"errors"
	"net/http"

	"github.com/parla-app/parla/internal/api/middleware"
	"github.com/parla-app/parla/internal/auth"
	"github.com/parla-app/parla/internal/db"
	"go.uber.org/zap"
)

type AuthHandler struct {
	db     *db.Database
	jwt    *auth.JWTService
	logger *zap.Logger
}

func NewAuthHandler(db *db.Database, jwt *auth.JWTService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt, logger: logger.Named("auth")}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.db.GetUserByUsername(req.Username)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			h.logger.Error("Failed to load user", zap.String("username", req.Username), zap.Error(err))
		}
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if !auth.CheckPassword(req.Password, user.Password) {
		h.logger.Info("Rejected login", zap.String("username", req.Username))
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, loginResponse{
		Token: token,
		User:  loginUser{ID: user.ID, Username: user.Username, Role: user.Role},
	}, http.StatusOK)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.db.GetUserByID(claims.UserID)
	if err != nil {
		jsonError(w, "user not found", http.StatusNotFound)
		return
	}

	jsonResponse(w, loginUser{ID: user.ID, Username: user.Username, Role: user.Role}, http.StatusOK)
}
