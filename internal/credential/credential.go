// Package credential encodes and decodes the payload carried by a ticket's
// scannable artifact.
package credential

import (
	"strings"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload is the only data physically printed on a credential. Everything
// else about the ticket is looked up server-side by ID.
type Payload struct {
	ID        string `json:"id"`
	Signature string `json:"signature"`
}

// Signer is the part of the signature service the credential needs.
type Signer interface {
	Generate(id string) string
}

// For derives the payload for a ticket id. It is recomputed on every call and
// never stored.
func For(signer Signer, id string) Payload {
	return Payload{ID: id, Signature: signer.Generate(id)}
}

// Encode returns the canonical serialized form, {"id":...,"signature":...}.
func (p Payload) Encode() string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}

// Decode parses scanned text. Both fields must be present, non-empty strings.
// Unknown fields are ignored. Every failure is domain.ErrMalformedPayload.
func Decode(scanned string) (Payload, error) {
	scanned = strings.TrimSpace(scanned)
	if scanned == "" || scanned[0] != '{' {
		return Payload{}, domain.ErrMalformedPayload
	}

	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal([]byte(scanned), &raw); err != nil {
		return Payload{}, domain.ErrMalformedPayload
	}

	id, ok := stringField(raw, "id")
	if !ok {
		return Payload{}, domain.ErrMalformedPayload
	}
	sig, ok := stringField(raw, "signature")
	if !ok {
		return Payload{}, domain.ErrMalformedPayload
	}
	return Payload{ID: id, Signature: sig}, nil
}

func stringField(raw map[string]jsoniter.RawMessage, key string) (string, bool) {
	msg, ok := raw[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", false
	}
	if s == "" {
		return "", false
	}
	return s, true
}
