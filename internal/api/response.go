// Package api provides HTTP response utilities for the intake bot.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// fallbackErrorResponse is pre-marshaled so a failed encoding can still
// produce a valid JSON body.
var fallbackErrorResponse = []byte(`{"status":"error"}`)

// writeJSONResponse writes a JSON response with the given status code.
// Marshaling happens before any header is written so encoding errors can
// still downgrade the status.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}
