package app

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
)

// fakeStore is a minimal TicketStore that records calls and can inject
// failures per operation.
type fakeStore struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	nextID  int

	createErr error
	getErr    error
	updateErr error

	gets    int
	updates int
}

func newFakeStore(tickets ...domain.Ticket) *fakeStore {
	f := &fakeStore{tickets: make(map[string]domain.Ticket)}
	for _, t := range tickets {
		f.tickets[t.ID] = t
	}
	return f
}

func (f *fakeStore) Create(_ context.Context, in domain.NewTicket) (domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Ticket{}, f.createErr
	}
	f.nextID++
	t := domain.Ticket{
		ID:        "ticket-" + strconv.Itoa(f.nextID),
		Name:      in.Name,
		Email:     in.Email,
		Type:      in.Type,
		Status:    in.Status,
		CreatedAt: in.CreatedAt,
		IssuedBy:  in.IssuedBy,
	}
	f.tickets[t.ID] = t
	return t, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return domain.Ticket{}, f.getErr
	}
	t, ok := f.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeStore) UpdateIfStatus(_ context.Context, id string, expected domain.TicketStatus, patch domain.TicketPatch) (domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return domain.Ticket{}, f.updateErr
	}
	t, ok := f.tickets[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	if t.Status != expected {
		return domain.Ticket{}, domain.ErrPreconditionFailed
	}
	t = patch.Apply(t)
	f.tickets[id] = t
	return t, nil
}

func (f *fakeStore) calls() (gets, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, f.updates
}

// raceStore simulates losing the redemption race: the first read sees
// ISSUED, the conditional write fails because another gate won meanwhile.
type raceStore struct {
	issued domain.Ticket
	winner domain.Ticket
	reads  int
}

func (r *raceStore) Create(context.Context, domain.NewTicket) (domain.Ticket, error) {
	return domain.Ticket{}, errors.New("not supported")
}

func (r *raceStore) Get(_ context.Context, id string) (domain.Ticket, error) {
	if id != r.issued.ID {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	r.reads++
	if r.reads == 1 {
		return r.issued, nil
	}
	return r.winner, nil
}

func (r *raceStore) UpdateIfStatus(context.Context, string, domain.TicketStatus, domain.TicketPatch) (domain.Ticket, error) {
	return domain.Ticket{}, domain.ErrPreconditionFailed
}

// keySigner signs as key + ":" + id.
type keySigner string

func (k keySigner) Generate(id string) string { return string(k) + ":" + id }

func (k keySigner) Verify(id, sig string) bool { return sig == k.Generate(id) }
