package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/verity-labs/chorus/internal/core"
	"github.com/verity-labs/chorus/internal/logging"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// httpStatus maps domain error categories onto HTTP status codes.
func httpStatus(err error) int {
	switch core.GetCategory(err) {
	case core.ErrCatValidation:
		return http.StatusBadRequest
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatRateLimit:
		return http.StatusTooManyRequests
	case core.ErrCatTimeout:
		return http.StatusGatewayTimeout
	case core.ErrCatGeneration, core.ErrCatExecution, core.ErrCatNetwork:
		return http.StatusBadGateway
	case core.ErrCatState, core.ErrCatExport:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := httpStatus(err)

	detail := errorDetail{
		Code:      "INTERNAL",
		Message:   "internal error",
		Retryable: false,
	}
	var derr *core.DomainError
	if errors.As(err, &derr) {
		detail.Code = derr.Code
		detail.Message = derr.Message
		detail.Retryable = derr.Retryable
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "code", detail.Code)
	}

	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
