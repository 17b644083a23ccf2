// Package memory is an in-process TicketStore. A single mutex makes every
// operation atomic, so it satisfies the conditional-update contract exactly.
// Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/clock"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
	"github.com/google/uuid"
)

type Store struct {
	mu      sync.Mutex
	clock   clock.Clock
	tickets map[string]domain.Ticket
	order   []string
	subs    map[chan []domain.Ticket]struct{}
	newID   func() string
}

func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Store{
		clock:   clk,
		tickets: make(map[string]domain.Ticket),
		subs:    make(map[chan []domain.Ticket]struct{}),
		newID:   uuid.NewString,
	}
}

func (s *Store) Create(ctx context.Context, in domain.NewTicket) (domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ticket{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for {
		if _, exists := s.tickets[id]; !exists {
			break
		}
		id = s.newID()
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}
	t := domain.Ticket{
		ID:        id,
		Name:      in.Name,
		Email:     in.Email,
		Type:      in.Type,
		Status:    in.Status,
		CreatedAt: createdAt,
		IssuedBy:  in.IssuedBy,
	}
	s.tickets[id] = t
	s.order = append(s.order, id)
	s.broadcastLocked()
	return cloneTicket(t), nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ticket{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return cloneTicket(t), nil
}

func (s *Store) UpdateIfStatus(ctx context.Context, id string, expected domain.TicketStatus, patch domain.TicketPatch) (domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ticket{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	if t.Status != expected {
		return domain.Ticket{}, domain.ErrPreconditionFailed
	}
	t = patch.Apply(t)
	s.tickets[id] = t
	s.broadcastLocked()
	return cloneTicket(t), nil
}

// List returns all tickets, newest first.
func (s *Store) List(ctx context.Context) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

// Subscribe delivers the current snapshot and then one per write. A reader
// that falls behind skips to the newest snapshot.
func (s *Store) Subscribe(ctx context.Context) (<-chan []domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan []domain.Ticket, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

func (s *Store) broadcastLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Store) snapshotLocked() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, cloneTicket(s.tickets[s.order[i]]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.UsedAt != nil {
		usedAt := *t.UsedAt
		t.UsedAt = &usedAt
	}
	return t
}
