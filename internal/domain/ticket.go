package domain

import "time"

type TicketStatus string

const (
	TicketStatusIssued TicketStatus = "ISSUED"
	TicketStatusUsed   TicketStatus = "USED"
)

type TicketType string

const (
	TicketTypeStandard TicketType = "Standard"
	TicketTypeVIP      TicketType = "VIP"
	TicketTypeSpeaker  TicketType = "Speaker"
)

// ParseTicketType maps user input to a known type. Empty input means Standard.
func ParseTicketType(s string) (TicketType, error) {
	switch TicketType(s) {
	case "":
		return TicketTypeStandard, nil
	case TicketTypeStandard, TicketTypeVIP, TicketTypeSpeaker:
		return TicketType(s), nil
	default:
		return "", ErrInvalidTicketType
	}
}

// Ticket is a single admission record. Only Status, UsedAt and VerifiedBy
// change after creation, and only once.
type Ticket struct {
	ID         string
	Name       string
	Email      string
	Type       TicketType
	Status     TicketStatus
	CreatedAt  time.Time
	IssuedBy   string
	UsedAt     *time.Time
	VerifiedBy string
}

// Used reports whether the ticket has been redeemed.
func (t Ticket) Used() bool {
	return t.Status == TicketStatusUsed
}

// NewTicket is the insert shape handed to a store; the store assigns the ID.
type NewTicket struct {
	Name      string
	Email     string
	Type      TicketType
	Status    TicketStatus
	CreatedAt time.Time
	IssuedBy  string
}

// TicketPatch is applied by a conditional status update.
type TicketPatch struct {
	Status     TicketStatus
	UsedAt     time.Time
	VerifiedBy string
}

// Apply returns t with the patch applied.
func (p TicketPatch) Apply(t Ticket) Ticket {
	t.Status = p.Status
	if !p.UsedAt.IsZero() {
		usedAt := p.UsedAt
		t.UsedAt = &usedAt
	}
	if p.VerifiedBy != "" {
		t.VerifiedBy = p.VerifiedBy
	}
	return t
}
