package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/app"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
)

// maxScanBytes bounds the scanned payload. A real credential is well under
// 200 bytes.
const maxScanBytes = 4 << 10

// TicketVerifier is the minimal interface needed to redeem a scan.
type TicketVerifier interface {
	Verify(ctx context.Context, scanned, actorID string) (app.Outcome, error)
}

type verifyResponse struct {
	Result string         `json:"result"`
	Ticket ticketResponse `json:"ticket"`
}

// HandleVerify redeems a scanned credential. The request body is the raw
// scanned text.
func HandleVerify(svc TicketVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r)
		if !ok {
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxScanBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if len(body) > maxScanBytes {
			writeError(w, http.StatusBadRequest, codeMalformedPayload, domain.ErrMalformedPayload.Error())
			return
		}

		out, err := svc.Verify(r.Context(), string(body), actor)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrMalformedPayload):
				writeError(w, http.StatusBadRequest, codeMalformedPayload, err.Error())
			case errors.Is(err, domain.ErrInvalidSignature):
				writeError(w, http.StatusUnprocessableEntity, codeInvalidSignature, err.Error())
			case errors.Is(err, domain.ErrUnknownTicket):
				writeError(w, http.StatusNotFound, codeUnknownTicket, err.Error())
			case errors.Is(err, domain.ErrStoreUnavailable):
				writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "ticket store unavailable, retry")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, verifyResponse{
			Result: string(out.Kind),
			Ticket: toTicketResponse(out.Ticket),
		})
	}
}
