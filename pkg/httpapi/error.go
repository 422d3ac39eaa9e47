package httpapi

import (
	"encoding/json"
	"maps"
	"net/http"
)

const RequestIDHeader = "X-Request-Id"

// ErrorEnvelope is the body of every JSON error response.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

// WriteError writes an ErrorEnvelope. A non-empty requestID lands in meta["request_id"].
func WriteError(w http.ResponseWriter, status int, requestID, code, message string, meta map[string]string) error {
	out := make(map[string]string, len(meta)+1)
	maps.Copy(out, meta)
	if requestID != "" {
		out["request_id"] = requestID
	}
	if len(out) == 0 {
		out = nil
	}
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    out,
	})
}
