package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/tensorlab/opsched/pkg/errors"
	"github.com/tensorlab/opsched/pkg/store"
)

// Response is the envelope shared by every JSON endpoint. Data carries the
// endpoint-specific payload; Error is nil on success.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Error     *APIError `json:"error"`
}

// APIError is the envelope's error shape.
type APIError struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, resp Response) {
	resp.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondOK(w http.ResponseWriter, requestID string, data any) {
	respondJSON(w, http.StatusOK, Response{
		Status:    "ok",
		RequestID: requestID,
		Data:      data,
	})
}

func respondCreated(w http.ResponseWriter, requestID string, data any) {
	respondJSON(w, http.StatusCreated, Response{
		Status:    "ok",
		RequestID: requestID,
		Data:      data,
	})
}

func respondError(w http.ResponseWriter, requestID string, status int, apiErr *APIError) {
	respondJSON(w, status, Response{
		Status:    "error",
		RequestID: requestID,
		Error:     apiErr,
	})
}

// statusForCode maps application error codes to HTTP statuses.
func statusForCode(code apperrors.Code) int {
	switch code {
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeGraphNotFound, apperrors.ErrCodeNodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidGraph, apperrors.ErrCodeInvalidFilter,
		apperrors.ErrCodeInvalidFormat, apperrors.ErrCodeInvalidOrder, apperrors.ErrCodeInvalidPath,
		apperrors.ErrCodeGraphCycle, apperrors.ErrCodeUnresolvedValue:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// apiError converts an error into an HTTP status and envelope error.
// Store sentinels become 404s, coded application errors map through
// statusForCode, and anything else is reported as internal.
func apiError(err error) (int, *APIError) {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
		return http.StatusNotFound, &APIError{
			Code:    apperrors.ErrCodeGraphNotFound,
			Message: apperrors.UserMessage(err),
		}
	}
	if code := apperrors.GetCode(err); code != "" {
		return statusForCode(code), &APIError{
			Code:    code,
			Message: apperrors.UserMessage(err),
		}
	}
	return http.StatusInternalServerError, &APIError{
		Code:    apperrors.ErrCodeInternal,
		Message: err.Error(),
	}
}
