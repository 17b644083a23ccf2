package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChangeChannel is the NOTIFY channel fired by the tickets trigger.
const ChangeChannel = "tickets_changed"

// Constraint names from the migrations.
const (
	typeConstraint  = "tickets_type_check"
	redemptionGuard = "tickets_redemption_guard"
)

const ticketColumns = `id, name, email, type, status, created_at, issued_by, used_at, verified_by`

type TicketStore struct {
	pool *pgxpool.Pool
}

func NewTicketStore(pool *pgxpool.Pool) *TicketStore {
	return &TicketStore{pool: pool}
}

// WithTx runs fn in one transaction. Store calls made with the ctx passed to
// fn join it; UpdateIfStatus then commits or rolls back with the caller.
func (s *TicketStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, fn)
}

// Create inserts a ticket. The database assigns the id, and created_at when
// the caller leaves it zero.
func (s *TicketStore) Create(ctx context.Context, t domain.NewTicket) (domain.Ticket, error) {
	const stmt = `
INSERT INTO tickets (name, email, type, status, created_at, issued_by)
VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), $6)
RETURNING ` + ticketColumns

	var createdAt *time.Time
	if !t.CreatedAt.IsZero() {
		createdAt = &t.CreatedAt
	}

	ticket, err := scanTicket(conn(ctx, s.pool).QueryRow(ctx, stmt,
		t.Name, t.Email, t.Type, t.Status, createdAt, t.IssuedBy))
	if err != nil {
		if isConstraintViolation(err, typeConstraint) {
			return domain.Ticket{}, errs.Wrap(domain.ErrInvalidTicketType, "create ticket")
		}
		return domain.Ticket{}, errs.Wrap(err, "create ticket")
	}
	return ticket, nil
}

func (s *TicketStore) Get(ctx context.Context, id string) (domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(conn(ctx, s.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, errs.Wrap(err, "get ticket")
	}
	return ticket, nil
}

// UpdateIfStatus is a single UPDATE guarded by the expected status, so the
// check and the write cannot be separated by a concurrent scan. When no row
// matches, the existence check runs in the same transaction to tell a
// missing ticket from a status mismatch.
func (s *TicketStore) UpdateIfStatus(ctx context.Context, id string, expected domain.TicketStatus, patch domain.TicketPatch) (domain.Ticket, error) {
	const stmt = `
UPDATE tickets
SET status = $3,
    used_at = COALESCE($4, used_at),
    verified_by = COALESCE(NULLIF($5, ''), verified_by)
WHERE id = $1 AND status = $2
RETURNING ` + ticketColumns

	var usedAt *time.Time
	if !patch.UsedAt.IsZero() {
		usedAt = &patch.UsedAt
	}

	var ticket domain.Ticket
	err := withTx(ctx, s.pool, func(ctx context.Context) error {
		q := conn(ctx, s.pool)
		var err error
		ticket, err = scanTicket(q.QueryRow(ctx, stmt, id, expected, patch.Status, usedAt, patch.VerifiedBy))
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			if isConstraintViolation(err, redemptionGuard) {
				return domain.ErrPreconditionFailed
			}
			return errs.Wrap(err, "update ticket status")
		}

		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, id).Scan(&exists); err != nil {
			return errs.Wrap(err, "check ticket")
		}
		if !exists {
			return domain.ErrTicketNotFound
		}
		return domain.ErrPreconditionFailed
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

// List returns every ticket, newest first.
func (s *TicketStore) List(ctx context.Context) ([]domain.Ticket, error) {
	return listTickets(ctx, conn(ctx, s.pool))
}

func listTickets(ctx context.Context, q querier) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC, id ASC`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, errs.Wrap(err, "list tickets")
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, errs.Wrap(err, "scan ticket")
		}
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		return nil, errs.Wrap(rows.Err(), "iterate tickets")
	}
	return tickets, nil
}

// Subscribe holds one pool connection in LISTEN mode for the life of ctx and
// sends a full snapshot after every notification. A reader that falls
// behind blocks the reload loop, not writers.
func (s *TicketStore) Subscribe(ctx context.Context) (<-chan []domain.Ticket, error) {
	c, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "acquire listen conn")
	}
	if _, err := c.Exec(ctx, `LISTEN `+ChangeChannel); err != nil {
		c.Release()
		return nil, errs.Wrap(err, "listen")
	}
	initial, err := listTickets(ctx, s.pool)
	if err != nil {
		_, _ = c.Exec(context.Background(), `UNLISTEN `+ChangeChannel)
		c.Release()
		return nil, err
	}

	out := make(chan []domain.Ticket, 1)
	out <- initial

	go func() {
		defer close(out)
		defer func() {
			// The connection may be mid-wait when ctx is cancelled; drop it
			// rather than return a connection in an unknown state.
			_ = c.Conn().Close(context.Background())
			c.Release()
		}()

		for {
			if _, err := c.Conn().WaitForNotification(ctx); err != nil {
				if ctx.Err() == nil {
					logging.Error(ctx, "ticket feed stopped", errs.Attr(err))
				}
				return
			}

			snap, err := listTickets(ctx, s.pool)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.Warn(ctx, "ticket feed reload failed", errs.Attr(err))
				continue
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	logging.Debug(ctx, "listening for ticket changes", slog.String("channel", ChangeChannel))
	return out, nil
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	var typ, status string
	var verifiedBy *string
	if err := row.Scan(&t.ID, &t.Name, &t.Email, &typ, &status, &t.CreatedAt, &t.IssuedBy, &t.UsedAt, &verifiedBy); err != nil {
		return domain.Ticket{}, err
	}
	t.Type = domain.TicketType(typ)
	t.Status = domain.TicketStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	if t.UsedAt != nil {
		usedAt := t.UsedAt.UTC()
		t.UsedAt = &usedAt
	}
	if verifiedBy != nil {
		t.VerifiedBy = *verifiedBy
	}
	return t, nil
}
