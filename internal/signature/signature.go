// Package signature derives and checks the short signature printed on a
// ticket credential.
//
// The default scheme is the legacy checksum already carried by issued
// credentials. It is a rolling hash, not a MAC: anyone who can collect enough
// (id, signature) pairs can forge new ones. SchemeHMACSHA256 keeps the same
// contract with a keyed MAC and should be preferred for new deployments.
package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf16"
)

type Scheme string

const (
	SchemeLegacy     Scheme = "legacy"
	SchemeHMACSHA256 Scheme = "hmac-sha256"
)

var ErrEmptySecret = errors.New("signing secret is empty")

// Service signs ticket identifiers with a fixed secret.
type Service struct {
	secret []byte
	scheme Scheme
}

// New returns a Service for the given secret and scheme. An empty scheme
// selects SchemeLegacy.
func New(secret string, scheme Scheme) (*Service, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	switch scheme {
	case "":
		scheme = SchemeLegacy
	case SchemeLegacy, SchemeHMACSHA256:
	default:
		return nil, fmt.Errorf("unknown signing scheme %q", scheme)
	}
	return &Service{secret: []byte(secret), scheme: scheme}, nil
}

func (s *Service) Scheme() Scheme {
	return s.scheme
}

// Generate returns the signature for id. The same id and secret always
// produce the same output.
func (s *Service) Generate(id string) string {
	if s.scheme == SchemeHMACSHA256 {
		mac := hmac.New(sha256.New, s.secret)
		mac.Write(canonical(id))
		return hex.EncodeToString(mac.Sum(nil))
	}
	return legacyChecksum(append(canonical(id), s.secret...))
}

// Verify reports whether signature is exactly Generate(id).
func (s *Service) Verify(id, signature string) bool {
	expected := s.Generate(id)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// canonical is the signed message: the compact JSON object {"id":"<id>"}
// byte for byte as JSON.stringify renders it. U+2028, U+2029 and '<' stay
// literal, which rules out encoding/json.
func canonical(id string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(id) + 10)
	buf.WriteString(`{"id":"`)
	for _, r := range id {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&buf, `\u%04x`, r)
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteString(`"}`)
	return buf.Bytes()
}

// legacyChecksum is h = h*31 + c over UTF-16 code units with int32
// wraparound, rendered as the lowercase hex of |h|.
func legacyChecksum(msg []byte) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(string(msg))) {
		h = h*31 + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return strconv.FormatInt(abs, 16)
}
