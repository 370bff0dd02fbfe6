package api

import (
	"encoding/json"
	"net/http"

	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

// ErrorResponse is the error body of every USDw HTTP surface.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// WriteError writes a standardized JSON error response
func WriteError(w http.ResponseWriter, statusCode int, code, message, traceID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
		TraceID: traceID,
	})
}

// WriteSuccess writes data as the JSON body.
func WriteSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// StatusFor maps a ledger error kind to an HTTP status.
func StatusFor(kind ledgererr.Kind) int {
	switch kind {
	case ledgererr.KindNotFound:
		return http.StatusNotFound
	case ledgererr.KindAlreadyExists, ledgererr.KindConflict, ledgererr.KindInvalidState:
		return http.StatusConflict
	case ledgererr.KindUnauthorized:
		return http.StatusForbidden
	case ledgererr.KindInvalidAmount, ledgererr.KindInvalidArgument:
		return http.StatusBadRequest
	case ledgererr.KindReserveCeilingExceeded, ledgererr.KindComplianceViolation, ledgererr.KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// WriteLedgerError writes err with the status and code of its ledger kind.
// Internal failures are reported without their cause.
func WriteLedgerError(w http.ResponseWriter, err error, traceID string) {
	kind := ledgererr.KindOf(err)
	msg := err.Error()
	if kind == ledgererr.KindInternal {
		msg = "internal error"
	}
	WriteError(w, StatusFor(kind), string(kind), msg, traceID)
}
