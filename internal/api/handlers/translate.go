package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/parla-app/parla/internal/settings"
	"github.com/parla-app/parla/internal/translate"
	"go.uber.org/zap"
)

// Translator is the translation service behind POST /translate.
type Translator interface {
	Translate(ctx context.Context, req translate.Request) (*translate.Result, error)
}

type TranslateHandler struct {
	translator Translator
	store      settings.Store
	logger     *zap.Logger
}

func NewTranslateHandler(translator Translator, store settings.Store, logger *zap.Logger) *TranslateHandler {
	return &TranslateHandler{translator: translator, store: store, logger: logger.Named("translate")}
}

type translateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type translateResponse struct {
	TranslatedText   string   `json:"translated_text"`
	DetectedLanguage string   `json:"detected_language"`
	Pronunciation    string   `json:"pronunciation,omitempty"`
	Definitions      []string `json:"definitions,omitempty"`
}

// Translate answers POST /translate. A missing target language falls back
// to the stored setting.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.TargetLanguage == "" {
		s, err := settings.Load(r.Context(), h.store)
		if err != nil {
			h.logger.Warn("Using default target language", zap.Error(err))
		}
		req.TargetLanguage = s.TargetLanguage
	}

	res, err := h.translator.Translate(r.Context(), translate.Request{
		Text:       req.Text,
		SourceLang: req.SourceLanguage,
		TargetLang: req.TargetLanguage,
	})
	switch {
	case errors.Is(err, translate.ErrEmptyText),
		errors.Is(err, translate.ErrTextTooLong),
		errors.Is(err, translate.ErrInvalidLanguage):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		jsonError(w, "translation failed", http.StatusBadGateway)
		return
	}

	jsonResponse(w, translateResponse{
		TranslatedText:   res.Text,
		DetectedLanguage: res.DetectedLanguage,
		Pronunciation:    res.Pronunciation,
		Definitions:      res.Definitions,
	}, http.StatusOK)
}
