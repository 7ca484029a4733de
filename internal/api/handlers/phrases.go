package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/parla-app/parla/internal/api/middleware"
	"github.com/parla-app/parla/internal/db"
	"github.com/parla-app/parla/internal/db/models"
	"go.uber.org/zap"
)

var platforms = map[string]bool{"youtube": true, "netflix": true, "web": true}

type PhrasesHandler struct {
	db     *db.Database
	logger *zap.Logger
}

func NewPhrasesHandler(database *db.Database, logger *zap.Logger) *PhrasesHandler {
	return &PhrasesHandler{db: database, logger: logger.Named("phrases")}
}

type phraseRequest struct {
	Text           string `json:"text"`
	Translation    string `json:"translation"`
	SourceURL      string `json:"source_url"`
	SourcePlatform string `json:"source_platform"`
	Context        string `json:"context"`
}

// CreatePhrase answers POST /phrases.
func (h *PhrasesHandler) CreatePhrase(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	var req phraseRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SourcePlatform == "" {
		req.SourcePlatform = "web"
	}
	if !platforms[req.SourcePlatform] {
		jsonError(w, "source_platform must be one of: youtube, netflix, web", http.StatusBadRequest)
		return
	}

	phrase, err := h.db.CreatePhrase(claims.UserID, models.Phrase{
		Text:           req.Text,
		Translation:    req.Translation,
		SourceURL:      req.SourceURL,
		SourcePlatform: req.SourcePlatform,
		Context:        req.Context,
	})
	if err != nil {
		h.logger.Error("Failed to save phrase", zap.Int64("user", claims.UserID), zap.Error(err))
		jsonError(w, "failed to save phrase", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, phrase, http.StatusCreated)
}

// ListPhrases answers GET /phrases with the caller's phrases, newest first.
func (h *PhrasesHandler) ListPhrases(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	phrases, err := h.db.ListPhrases(claims.UserID)
	if err != nil {
		jsonError(w, "failed to list phrases", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, phrases, http.StatusOK)
}

// DeletePhrase answers DELETE /phrases/{id}.
func (h *PhrasesHandler) DeletePhrase(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid phrase ID", http.StatusBadRequest)
		return
	}

	switch err := h.db.DeletePhrase(claims.UserID, id); {
	case errors.Is(err, db.ErrNotFound):
		jsonError(w, "phrase not found", http.StatusNotFound)
	case err != nil:
		jsonError(w, "failed to delete phrase", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
