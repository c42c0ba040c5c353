package handlers

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/apperror"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

var kindStatus = map[apperror.Kind]int{
	apperror.KindSchemaInvalid:              http.StatusBadRequest,
	apperror.KindAttributeValidationFailed:  http.StatusBadRequest,
	apperror.KindInvalidRequest:             http.StatusBadRequest,
	apperror.KindInvalidCouponConfiguration: http.StatusBadRequest,
	apperror.KindEntityNotFound:             http.StatusNotFound,
	apperror.KindConflict:                   http.StatusConflict,
	apperror.KindInsufficientInventory:      http.StatusConflict,
	apperror.KindEntityInactive:             http.StatusUnprocessableEntity,
	apperror.KindCouponExpired:              http.StatusUnprocessableEntity,
	apperror.KindCouponExhausted:            http.StatusUnprocessableEntity,
	apperror.KindCouponMinimumNotMet:        http.StatusUnprocessableEntity,
	apperror.KindForbidden:                  http.StatusForbidden,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger logrus.FieldLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.WithError(err).Error("failed to encode JSON response")
	}
}

// WriteError writes an error response in JSON format
func WriteError(w http.ResponseWriter, status int, code, message string, logger logrus.FieldLogger) {
	WriteJSON(w, status, ErrorResponse{Code: code, Message: message}, logger)
}

// WriteAppError classifies err and writes it. Unclassified errors are logged
// and reported without detail.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error, logger logrus.FieldLogger) {
	entry := logger.WithFields(logrus.Fields{
		"request_id": chimiddleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
	})

	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind == apperror.KindInternal {
		entry.WithError(err).Error("request failed")
		WriteError(w, http.StatusInternalServerError, string(apperror.KindInternal), "Internal server error", logger)
		return
	}

	entry.WithFields(logrus.Fields{"kind": appErr.Kind, "field": appErr.Field}).Debug(appErr.Message)
	WriteJSON(w, StatusFor(appErr.Kind), ErrorResponse{
		Code:    string(appErr.Kind),
		Message: appErr.Error(),
		Field:   appErr.Field,
	}, logger)
}
