package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code       string               `json:"code,omitempty"`
	Message    string               `json:"message"`
	Detail     string               `json:"detail,omitempty"`
	Violations []sferrors.Violation `json:"violations,omitempty"`
}

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, sferrors.ErrInvalidDocument),
		errors.Is(err, sferrors.ErrInvalidActionPayload),
		errors.Is(err, sferrors.ErrInvalidIdentity),
		errors.Is(err, sferrors.ErrInvalidTheme),
		errors.Is(err, sferrors.ErrInvalidComponent),
		errors.Is(err, sferrors.ErrInvalidPath),
		errors.Is(err, sferrors.ErrMissingTenant),
		errors.Is(err, sferrors.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, sferrors.ErrUnknownComponentType),
		errors.Is(err, sferrors.ErrUnknownAction),
		errors.Is(err, sferrors.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, sferrors.ErrNoDraftToPublish):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	resp := ErrorResponse{Message: http.StatusText(status)}
	if se, ok := sferrors.As(err); ok {
		resp.Code = se.Code
		resp.Message = se.Message
		resp.Detail = se.Detail
		resp.Violations = se.Violations
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		// Backend causes stay in the log.
		resp.Detail = ""
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body of at most maxBytes into v. An empty body
// leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return sferrors.New("E802").WithDetailf("request body exceeds %d bytes", maxBytes).Wrap(err)
		}
		return sferrors.New("E802").WithDetailf("invalid JSON body: %v", err).Wrap(err)
	}
	return nil
}
