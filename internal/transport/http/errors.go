package http

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeActorRequired      = "actor_required"
	codeNameRequired       = "name_required"
	codeEmailRequired      = "email_required"
	codeInvalidTicketType  = "invalid_ticket_type"
	codeIssuanceFailed     = "issuance_failed"
	codeTicketNotFound     = "ticket_not_found"
	codeMalformedPayload   = "malformed_payload"
	codeInvalidSignature   = "invalid_signature"
	codeUnknownTicket      = "unknown_ticket"
	codeStoreUnavailable   = "store_unavailable"
	codeDeliveryFailed     = "delivery_failed"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NotFoundHandler returns a JSON 404 response for unknown routes.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
}

// MethodNotAllowedHandler returns a JSON 405 response for known routes.
func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})
}
