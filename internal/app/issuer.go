package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/clock"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
)

type Issuer struct {
	store TicketStore
	clock clock.Clock
}

func NewIssuer(store TicketStore, clk clock.Clock) *Issuer {
	return &Issuer{
		store: store,
		clock: clk,
	}
}

type Holder struct {
	Name  string
	Email string
	Type  string
}

// Issue persists a new ISSUED ticket for holder. The credential is not part
// of the record; derive it with credential.For when needed.
func (s *Issuer) Issue(ctx context.Context, holder Holder, actorID string) (domain.Ticket, error) {
	name := strings.TrimSpace(holder.Name)
	if name == "" {
		return domain.Ticket{}, domain.ErrNameRequired
	}
	email := strings.TrimSpace(holder.Email)
	if email == "" {
		return domain.Ticket{}, domain.ErrEmailRequired
	}
	typ, err := domain.ParseTicketType(strings.TrimSpace(holder.Type))
	if err != nil {
		return domain.Ticket{}, err
	}

	ticket, err := s.store.Create(ctx, domain.NewTicket{
		Name:      name,
		Email:     email,
		Type:      typ,
		Status:    domain.TicketStatusIssued,
		CreatedAt: s.clock.Now(),
		IssuedBy:  actorID,
	})
	if err != nil {
		logging.Error(ctx, "ticket issuance failed", slog.String("actor_id", actorID), errs.Attr(err))
		return domain.Ticket{}, errs.Tag(domain.ErrIssuanceFailed, err)
	}

	logging.Info(ctx, "ticket issued",
		slog.String("ticket_id", ticket.ID),
		slog.String("type", string(ticket.Type)),
		slog.String("actor_id", actorID),
	)
	return ticket, nil
}
