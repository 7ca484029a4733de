package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/parla-app/parla/internal/api/middleware"
	"github.com/parla-app/parla/internal/db"
	"github.com/parla-app/parla/internal/settings"
	"go.uber.org/zap"
)

// Setting keys outside the extension's own settings.
const (
	KeyTranslateEngine = "translate_engine"
	KeyGeminiModel     = "gemini_model"
)

var errUnknownEngine = errors.New("unknown engine")

// settingsKeys defines which keys are allowed and their display metadata
var settingsKeys = []SettingDef{
	{Key: settings.KeyExtensionActive, Label: "Extension Active", Group: "extension", Kind: "bool"},
	{Key: settings.KeyAutoPause, Label: "Pause On Hover", Group: "extension", Kind: "bool"},
	{Key: settings.KeyTargetLanguage, Label: "Target Language", Group: "extension", Kind: "language", Placeholder: settings.DefaultTargetLanguage},
	{Key: KeyTranslateEngine, Label: "Translation Engine", Group: "translation", Kind: "string", Placeholder: "deepl", AdminOnly: true},
	{Key: KeyGeminiModel, Label: "Gemini Model", Group: "translation", Kind: "string", Placeholder: "gemini-2.0-flash", AdminOnly: true},
}

type SettingDef struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Group       string `json:"group"`
	Kind        string `json:"kind"`
	Placeholder string `json:"placeholder,omitempty"`
	AdminOnly   bool   `json:"admin_only"`
}

type SettingsHandler struct {
	database *db.Database
	engines  []string
	logger   *zap.Logger
}

func NewSettingsHandler(database *db.Database, engines []string, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{database: database, engines: engines, logger: logger.Named("settings")}
}

type settingResponse struct {
	SettingDef
	Value string `json:"value"`
}

// GetSettings returns every known setting with its effective value.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.database.GetAllSettings()
	if err != nil {
		jsonError(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	effective := settings.Decode(all).Values()
	result := make([]settingResponse, 0, len(settingsKeys))
	for _, def := range settingsKeys {
		val, ok := effective[def.Key]
		if !ok {
			val = all[def.Key]
		}
		result = append(result, settingResponse{SettingDef: def, Value: val})
	}

	jsonResponse(w, map[string]any{
		"settings": result,
		"engines":  h.engines,
	}, http.StatusOK)
}

// UpdateSettings validates and saves settings from the request body. Unknown
// keys are ignored; admin-only keys need the admin role.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := decodeJSON(r, &updates); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	isAdmin := false
	if claims := middleware.GetClaims(r); claims != nil {
		isAdmin = claims.Role == "admin"
	}

	clean := make(map[string]string, len(updates))
	for _, def := range settingsKeys {
		value, ok := updates[def.Key]
		if !ok {
			continue
		}
		if def.AdminOnly && !isAdmin {
			jsonError(w, "forbidden: "+def.Key, http.StatusForbidden)
			return
		}
		v, err := h.validate(def, value)
		if err != nil {
			jsonError(w, def.Key+": "+err.Error(), http.StatusBadRequest)
			return
		}
		clean[def.Key] = v
	}

	if err := h.database.SettingsStore().Set(r.Context(), clean); err != nil {
		h.logger.Error("Failed to save settings", zap.Error(err))
		jsonError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SettingsHandler) validate(def SettingDef, value string) (string, error) {
	switch def.Kind {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case "language":
		return settings.NormalizeLanguage(value)
	}
	if def.Key == KeyTranslateEngine && value != "" {
		for _, e := range h.engines {
			if e == value {
				return value, nil
			}
		}
		return "", errUnknownEngine
	}
	return value, nil
}
