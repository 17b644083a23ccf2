package http

import (
	"time"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/app"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
)

type ticketResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	IssuedBy   string     `json:"issued_by,omitempty"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	VerifiedBy string     `json:"verified_by,omitempty"`
}

func toTicketResponse(t domain.Ticket) ticketResponse {
	return ticketResponse{
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

type credentialResponse struct {
	TicketID  string `json:"ticket_id"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
	QRURL     string `json:"qr_url"`
	Mailto    string `json:"mailto"`
}

func toCredentialResponse(v app.CredentialView) credentialResponse {
	return credentialResponse{
		TicketID:  v.Payload.ID,
		Payload:   v.Encoded,
		Signature: v.Payload.Signature,
		QRURL:     v.QRURL,
		Mailto:    v.Mailto,
	}
}

type statsResponse struct {
	Total   int   `json:"total"`
	Used    int   `json:"used"`
	Revenue int64 `json:"revenue"`
}

type catalogResponse struct {
	Version   uint64           `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Tickets   []ticketResponse `json:"tickets"`
	Stats     statsResponse    `json:"stats"`
}

func toCatalogResponse(v app.CatalogView, revenuePerTicket int64) catalogResponse {
	tickets := make([]ticketResponse, 0, len(v.Tickets))
	for _, t := range v.Tickets {
		tickets = append(tickets, toTicketResponse(t))
	}
	stats := v.Stats(revenuePerTicket)
	return catalogResponse{
		Version:   v.Version,
		UpdatedAt: v.UpdatedAt,
		Tickets:   tickets,
		Stats: statsResponse{
			Total:   stats.Total,
			Used:    stats.Used,
			Revenue: stats.Revenue,
		},
	}
}
