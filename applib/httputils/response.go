package httputils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleAPIResponse writes resp as JSON with the given status. A non-nil err
// is logged to logger and answered with a generic 500; its text never
// reaches the client. A nil resp writes the status with an empty body.
func HandleAPIResponse(logger *slog.Logger, w http.ResponseWriter, r *http.Request, resp interface{}, err error, status int) {
	if err != nil {
		logger.Error("request failed",
			"remoteAddr", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	if resp == nil {
		w.WriteHeader(status)
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		logger.Error("failed to encode response",
			"remoteAddr", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// WriteError answers with status and a minimal {"error": message} body.
func WriteError(w http.ResponseWriter, status int, message string) {
	body, _ := json.Marshal(ErrorResponse{Error: message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
