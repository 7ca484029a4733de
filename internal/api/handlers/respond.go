package handlers

import (
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

func jsonResponse(w http.ResponseWriter, data any, status int) {
	body, err := sonic.Marshal(data)
	if err != nil {
		jsonError(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	body, _ := sonic.Marshal(map[string]string{"error": msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// decodeJSON reads r's body into v.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(body, v)
}
