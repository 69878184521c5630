package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"analysis-gateway/internal/domain"
)

// statusTable is checked in order; the first matching kind wins.
var statusTable = []struct {
	kind   error
	status int
}{
	{domain.ErrInvalidRequest, http.StatusBadRequest},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrQuotaExceeded, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrUpstreamRejected, http.StatusBadRequest},
	{domain.ErrJobFailed, http.StatusBadGateway},
	{domain.ErrNoResult, http.StatusBadGateway},
	{domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
	{domain.ErrJobTimeout, http.StatusGatewayTimeout},
	{context.DeadlineExceeded, http.StatusGatewayTimeout}, // server.request_timeout
}

// StatusFor maps an error to its HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	for _, row := range statusTable {
		if errors.Is(err, row.kind) {
			return row.status
		}
	}
	return http.StatusInternalServerError
}

// writeJSON renders the {success, error?, ...data} envelope.
func writeJSON(w http.ResponseWriter, status int, errMsg string, data map[string]any) {
	body := make(map[string]any, len(data)+2)
	for k, v := range data {
		body[k] = v
	}
	body["success"] = status >= 200 && status < 300
	if errMsg != "" {
		body["error"] = errMsg
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data map[string]any) {
	writeJSON(w, http.StatusOK, "", data)
}

// writeError hides the message of unclassified errors.
func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, msg, nil)
}
