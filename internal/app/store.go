package app

import (
	"context"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
)

// TicketStore is the authoritative home of ticket records. It is the only
// shared mutable resource; services hold no copies between calls.
type TicketStore interface {
	// Create inserts atomically and returns the record with its assigned ID.
	// A zero CreatedAt is filled with the store's own clock.
	Create(ctx context.Context, t domain.NewTicket) (domain.Ticket, error)
	// Get returns domain.ErrTicketNotFound when id is unknown.
	Get(ctx context.Context, id string) (domain.Ticket, error)
	// UpdateIfStatus applies patch only if the current status equals expected,
	// as one indivisible step. It returns domain.ErrPreconditionFailed when
	// the status differs or a concurrent write won.
	UpdateIfStatus(ctx context.Context, id string, expected domain.TicketStatus, patch domain.TicketPatch) (domain.Ticket, error)
}

// TicketFeed streams full snapshots of the ticket collection: one on
// subscribe, then one per change. The channel closes when ctx ends.
type TicketFeed interface {
	Subscribe(ctx context.Context) (<-chan []domain.Ticket, error)
}
