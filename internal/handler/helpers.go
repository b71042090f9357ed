package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rolecraft/rolecraft/internal/model"
	"github.com/rolecraft/rolecraft/internal/server/middleware"
	"github.com/rolecraft/rolecraft/internal/service"
)

// maxBodyBytes bounds every JSON request body. Auth payloads are tiny.
const maxBodyBytes = 64 << 10

// writeJSON writes v as a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeSuccess writes a {success: true} envelope.
func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, model.Response{Success: true, Message: message, Data: data})
}

// writeError translates err into the error taxonomy and writes a
// {success: false} envelope. Only the taxonomy message reaches the client;
// internal causes of 5xx failures are logged with the request ID.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	e := service.AsError(err)
	if e.Status() >= http.StatusInternalServerError && e.Err != nil {
		logger.ErrorContext(r.Context(), "request failed",
			"code", e.Code,
			"error", e.Err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
	writeJSON(w, e.Status(), model.Response{Success: false, Message: e.Message})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
