package http

import (
	"errors"
	"net/http"

	"popquiz-service/internal/domain"
)

// Stable error codes sent to clients.
const (
	CodeMalformedQuizData  = "malformed_quiz_data"
	CodeUnauthenticated    = "unauthenticated"
	CodeUnknownCategory    = "unknown_category"
	CodeStoreError         = "store_error"
	CodeNetworkTimeout     = "network_timeout"
	CodeInvalidPhase       = "invalid_phase"
	CodeAlreadyAnswered    = "already_answered"
	CodeSessionNotFound    = "session_not_found"
	CodeEmailExists        = "email_exists"
	CodeWeakPassword       = "weak_password"
	CodeInvalidEmail       = "invalid_email"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeBadRequest         = "bad_request"
	CodeInternal           = "internal"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorTable = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrMalformedQuizData, CodeMalformedQuizData, http.StatusUnprocessableEntity},
	{domain.ErrUnauthenticatedAction, CodeUnauthenticated, http.StatusUnauthorized},
	{domain.ErrUnknownCategory, CodeUnknownCategory, http.StatusNotFound},
	{domain.ErrNetworkTimeout, CodeNetworkTimeout, http.StatusGatewayTimeout},
	{domain.ErrStore, CodeStoreError, http.StatusBadGateway},
	{domain.ErrAlreadyAnswered, CodeAlreadyAnswered, http.StatusConflict},
	{domain.ErrInvalidPhase, CodeInvalidPhase, http.StatusConflict},
	{domain.ErrSessionNotFound, CodeSessionNotFound, http.StatusNotFound},
	{domain.ErrEmailExists, CodeEmailExists, http.StatusConflict},
	{domain.ErrWeakPassword, CodeWeakPassword, http.StatusBadRequest},
	{domain.ErrInvalidEmail, CodeInvalidEmail, http.StatusBadRequest},
	{domain.ErrInvalidCredentials, CodeInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrInvalidToken, CodeInvalidToken, http.StatusUnauthorized},
}

// describeError maps an error to its client code, HTTP status and a message
// safe to show to users.
func describeError(err error) (errorPayload, int) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return errorPayload{Code: e.code, Message: e.err.Error()}, e.status
		}
	}
	return errorPayload{Code: CodeInternal, Message: "something went wrong"}, http.StatusInternalServerError
}
