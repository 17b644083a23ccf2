package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/clock"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/credential"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
)

// SignatureChecker is the part of the signature service the verifier needs.
type SignatureChecker interface {
	Verify(id, signature string) bool
}

type OutcomeKind string

const (
	OutcomeAdmitted    OutcomeKind = "admitted"
	OutcomeAlreadyUsed OutcomeKind = "already_used"
)

// Outcome is a successful scan result. AlreadyUsed is not an error: it
// carries the original redemption (UsedAt, VerifiedBy) for display.
type Outcome struct {
	Kind   OutcomeKind
	Ticket domain.Ticket
}

type Verifier struct {
	store  TicketStore
	signer SignatureChecker
	clock  clock.Clock
}

func NewVerifier(store TicketStore, signer SignatureChecker, clk clock.Clock) *Verifier {
	return &Verifier{
		store:  store,
		signer: signer,
		clock:  clk,
	}
}

// Verify redeems a scanned credential. Errors are always one of
// domain.ErrMalformedPayload, domain.ErrInvalidSignature,
// domain.ErrUnknownTicket or domain.ErrStoreUnavailable (wrapping the cause).
//
// Only one caller can ever see OutcomeAdmitted for a given ticket; everyone
// else, including callers that lose a concurrent race, sees
// OutcomeAlreadyUsed.
func (s *Verifier) Verify(ctx context.Context, scanned, actorID string) (Outcome, error) {
	ctx = logging.WithAttrs(ctx, slog.String("actor_id", actorID))

	payload, err := credential.Decode(scanned)
	if err != nil {
		logging.Info(ctx, "scan rejected", slog.String("reason", "malformed_payload"))
		return Outcome{}, err
	}
	ctx = logging.WithAttrs(ctx, slog.String("ticket_id", payload.ID))

	if !s.signer.Verify(payload.ID, payload.Signature) {
		logging.Warn(ctx, "scan rejected: signature mismatch", slog.String("reason", "invalid_signature"))
		return Outcome{}, domain.ErrInvalidSignature
	}

	ticket, err := s.store.Get(ctx, payload.ID)
	if err != nil {
		return Outcome{}, s.lookupFailed(ctx, err)
	}
	if ticket.Status == domain.TicketStatusUsed {
		return s.alreadyUsed(ctx, ticket), nil
	}

	updated, err := s.store.UpdateIfStatus(ctx, ticket.ID, domain.TicketStatusIssued, domain.TicketPatch{
		Status:     domain.TicketStatusUsed,
		UsedAt:     s.clock.Now(),
		VerifiedBy: actorID,
	})
	switch {
	case err == nil:
		logging.Info(ctx, "ticket admitted", slog.String("outcome", string(OutcomeAdmitted)))
		return Outcome{Kind: OutcomeAdmitted, Ticket: updated}, nil
	case errors.Is(err, domain.ErrPreconditionFailed):
		// Another scan redeemed it between our read and write.
		current, getErr := s.store.Get(ctx, ticket.ID)
		if getErr != nil {
			return Outcome{}, s.lookupFailed(ctx, getErr)
		}
		if current.Status != domain.TicketStatusUsed {
			// The precondition failed for a reason other than redemption.
			logging.Error(ctx, "conditional update rejected but ticket not used", slog.String("status", string(current.Status)))
			return Outcome{}, errs.Tag(domain.ErrStoreUnavailable, err)
		}
		return s.alreadyUsed(ctx, current), nil
	case errors.Is(err, domain.ErrTicketNotFound):
		return Outcome{}, domain.ErrUnknownTicket
	default:
		logging.Error(ctx, "redeem ticket failed", errs.Attr(err))
		return Outcome{}, errs.Tag(domain.ErrStoreUnavailable, err)
	}
}

func (s *Verifier) alreadyUsed(ctx context.Context, t domain.Ticket) Outcome {
	attrs := []slog.Attr{slog.String("outcome", string(OutcomeAlreadyUsed)), slog.String("verified_by", t.VerifiedBy)}
	if t.UsedAt != nil {
		attrs = append(attrs, slog.Time("used_at", *t.UsedAt))
	}
	logging.Info(ctx, "ticket already used", attrs...)
	return Outcome{Kind: OutcomeAlreadyUsed, Ticket: t}
}

func (s *Verifier) lookupFailed(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrTicketNotFound) {
		logging.Info(ctx, "scan rejected", slog.String("reason", "unknown_ticket"))
		return domain.ErrUnknownTicket
	}
	logging.Error(ctx, "ticket lookup failed", errs.Attr(err))
	return errs.Tag(domain.ErrStoreUnavailable, err)
}
