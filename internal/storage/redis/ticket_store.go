// Package redis stores tickets as JSON documents in Redis. Redis has no
// conditional SET on a field, so status transitions run as WATCH/MULTI
// optimistic transactions: a concurrent write to the same key aborts ours.
package redis

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/clock"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultPrefix = "ecell:"

var errIDCollision = errors.New("generated ticket id already exists")

type TicketStore struct {
	client *goredis.Client
	clock  clock.Clock
	prefix string
}

type Option func(*TicketStore)

// WithPrefix namespaces every key and the change channel.
func WithPrefix(prefix string) Option {
	return func(s *TicketStore) {
		s.prefix = prefix
	}
}

func NewTicketStore(client *goredis.Client, clk clock.Clock, opts ...Option) *TicketStore {
	if clk == nil {
		clk = clock.NewSystem()
	}
	s := &TicketStore{client: client, clock: clk, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TicketStore) ticketKey(id string) string { return s.prefix + "ticket:" + id }
func (s *TicketStore) indexKey() string           { return s.prefix + "tickets" }
func (s *TicketStore) channel() string            { return s.prefix + "tickets:changed" }

// record is the stored document shape.
type record struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	IssuedBy   string     `json:"issuedBy"`
	UsedAt     *time.Time `json:"usedAt,omitempty"`
	VerifiedBy string     `json:"verifiedBy,omitempty"`
}

func toRecord(t domain.Ticket) record {
	return record{
		ID:         t.ID,
		Name:       t.Name,
		Email:      t.Email,
		Type:       string(t.Type),
		Status:     string(t.Status),
		CreatedAt:  t.CreatedAt,
		IssuedBy:   t.IssuedBy,
		UsedAt:     t.UsedAt,
		VerifiedBy: t.VerifiedBy,
	}
}

func (r record) ticket() domain.Ticket {
	t := domain.Ticket{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		Type:       domain.TicketType(r.Type),
		Status:     domain.TicketStatus(r.Status),
		CreatedAt:  r.CreatedAt.UTC(),
		IssuedBy:   r.IssuedBy,
		VerifiedBy: r.VerifiedBy,
	}
	if r.UsedAt != nil {
		usedAt := r.UsedAt.UTC()
		t.UsedAt = &usedAt
	}
	return t
}

// Create writes the document, adds it to the index and publishes a change in
// one MULTI/EXEC block.
func (s *TicketStore) Create(ctx context.Context, in domain.NewTicket) (domain.Ticket, error) {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}
	t := domain.Ticket{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Type:      in.Type,
		Status:    in.Status,
		CreatedAt: createdAt,
		IssuedBy:  in.IssuedBy,
	}
	doc, err := json.Marshal(toRecord(t))
	if err != nil {
		return domain.Ticket{}, errs.Wrap(err, "encode ticket")
	}

	var created *goredis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		created = pipe.SetNX(ctx, s.ticketKey(t.ID), doc, 0)
		pipe.SAdd(ctx, s.indexKey(), t.ID)
		pipe.Publish(ctx, s.channel(), t.ID)
		return nil
	})
	if err != nil {
		return domain.Ticket{}, errs.Wrap(err, "create ticket")
	}
	if !created.Val() {
		return domain.Ticket{}, errIDCollision
	}
	return t, nil
}

func (s *TicketStore) Get(ctx context.Context, id string) (domain.Ticket, error) {
	return s.get(ctx, s.client, id)
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func (s *TicketStore) get(ctx context.Context, c getter, id string) (domain.Ticket, error) {
	doc, err := c.Get(ctx, s.ticketKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, errs.Wrap(err, "get ticket")
	}
	var r record
	if err := json.Unmarshal(doc, &r); err != nil {
		return domain.Ticket{}, errs.Wrapf(err, "decode ticket %s", id)
	}
	return r.ticket(), nil
}

// UpdateIfStatus reads, checks and writes under WATCH. If another client
// modifies the key before EXEC, Redis discards the write and the caller gets
// domain.ErrPreconditionFailed; it never overwrites blindly.
func (s *TicketStore) UpdateIfStatus(ctx context.Context, id string, expected domain.TicketStatus, patch domain.TicketPatch) (domain.Ticket, error) {
	key := s.ticketKey(id)
	var updated domain.Ticket

	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status != expected {
			return domain.ErrPreconditionFailed
		}

		next := patch.Apply(current)
		doc, err := json.Marshal(toRecord(next))
		if err != nil {
			return errs.Wrap(err, "encode ticket")
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, doc, 0)
			pipe.Publish(ctx, s.channel(), id)
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}, key)

	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, goredis.TxFailedErr):
		return domain.Ticket{}, domain.ErrPreconditionFailed
	case errors.Is(err, domain.ErrPreconditionFailed), errors.Is(err, domain.ErrTicketNotFound):
		return domain.Ticket{}, err
	default:
		return domain.Ticket{}, errs.Wrap(err, "update ticket status")
	}
}

// List returns every indexed ticket, newest first.
func (s *TicketStore) List(ctx context.Context) ([]domain.Ticket, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, errs.Wrap(err, "list ticket ids")
	}
	tickets := make([]domain.Ticket, 0, len(ids))
	if len(ids) == 0 {
		return tickets, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.ticketKey(id)
	}
	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errs.Wrap(err, "load tickets")
	}
	for i, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			continue
		}
		var r record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, errs.Wrapf(err, "decode ticket %s", ids[i])
		}
		tickets = append(tickets, r.ticket())
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
	return tickets, nil
}

// Subscribe listens on the change channel and reloads the collection for
// every message.
func (s *TicketStore) Subscribe(ctx context.Context) (<-chan []domain.Ticket, error) {
	pubsub := s.client.Subscribe(ctx, s.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errs.Wrap(err, "subscribe")
	}
	initial, err := s.List(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan []domain.Ticket, 1)
	out <- initial
	messages := pubsub.Channel()

	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
			}

			snap, err := s.List(ctx)
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

	logging.Debug(ctx, "subscribed to ticket changes", slog.String("channel", s.channel()))
	return out, nil
}
