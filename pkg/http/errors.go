package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body of every rejected request. Error carries a
// stable message id clients can translate.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithData(w, statusCode, errorCode, message, nil)
}

// WriteErrorWithData writes a JSON error response carrying extra fields the
// client needs to act on the error, such as a lock expiry.
func WriteErrorWithData(w http.ResponseWriter, statusCode int, errorCode, message string, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
		Data:    data,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteNotLoggedIn(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, "not_logged_in", "You must be logged in")
}

func WriteForbidden(w http.ResponseWriter, errorCode, message string) {
	WriteError(w, http.StatusForbidden, errorCode, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteTooManyRequests(w http.ResponseWriter) {
	WriteError(w, http.StatusTooManyRequests, "you_have_been_rate_limited", "Too many requests, slow down")
}

func WriteMaintenance(w http.ResponseWriter) {
	WriteError(w, http.StatusServiceUnavailable, "app_under_maintenance", "The application is under maintenance")
}

func WriteSessionExpired(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, "session_expired", "Your session has expired, please log in again")
}

func WriteUserBanned(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, "user_banned", "This account has been banned")
}

func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "server_error", "An unexpected error occurred")
}
