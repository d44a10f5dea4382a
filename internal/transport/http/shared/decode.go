package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"leaveflow/internal/transport/http/api"
)

// DecodeJSON reads one JSON object into dst and writes the failure response itself.
// It reports whether the handler may continue.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
	case errors.Is(err, io.EOF):
		api.Fail(w, http.StatusBadRequest, "invalid_json", "request body is required", requestID)
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid json payload", requestID)
	}
	return false
}
