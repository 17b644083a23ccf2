package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/app"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
	"github.com/go-chi/chi/v5"
)

const actorHeader = "X-Actor-ID"

// TicketIssuer is the minimal interface needed to issue tickets.
type TicketIssuer interface {
	Issue(ctx context.Context, holder app.Holder, actorID string) (domain.Ticket, error)
}

// TicketFinder loads a single ticket record.
type TicketFinder interface {
	Get(ctx context.Context, id string) (domain.Ticket, error)
}

// CredentialService derives and delivers ticket credentials.
type CredentialService interface {
	Render(ticket domain.Ticket) app.CredentialView
	Credential(ctx context.Context, ticketID string) (app.CredentialView, error)
	Send(ctx context.Context, ticketID string) (app.CredentialView, error)
}

// CatalogReader is the read side of the catalog projection.
type CatalogReader interface {
	View() app.CatalogView
}

// actorID returns the opaque X-Actor-ID header. Mutating handlers write the
// 400 themselves when it is empty.
func actorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := strings.TrimSpace(r.Header.Get(actorHeader))
	if actor == "" {
		writeError(w, http.StatusBadRequest, codeActorRequired, "X-Actor-ID header is required")
		return "", false
	}
	return actor, true
}

type issueTicketRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Type  string `json:"type"`
}

type issueTicketResponse struct {
	Ticket     ticketResponse     `json:"ticket"`
	Credential credentialResponse `json:"credential"`
}

// HandleIssueTicket returns an HTTP handler for issuing tickets.
func HandleIssueTicket(svc TicketIssuer, creds CredentialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r)
		if !ok {
			return
		}

		var req issueTicketRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		ticket, err := svc.Issue(r.Context(), app.Holder{
			Name:  req.Name,
			Email: req.Email,
			Type:  req.Type,
		}, actor)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNameRequired):
				writeError(w, http.StatusBadRequest, codeNameRequired, err.Error())
			case errors.Is(err, domain.ErrEmailRequired):
				writeError(w, http.StatusBadRequest, codeEmailRequired, err.Error())
			case errors.Is(err, domain.ErrInvalidTicketType):
				writeError(w, http.StatusBadRequest, codeInvalidTicketType, err.Error())
			case errors.Is(err, domain.ErrIssuanceFailed):
				writeError(w, http.StatusServiceUnavailable, codeIssuanceFailed, "ticket could not be issued, retry")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, issueTicketResponse{
			Ticket:     toTicketResponse(ticket),
			Credential: toCredentialResponse(creds.Render(ticket)),
		})
	}
}

// HandleListTickets returns the catalog view with its analytics.
func HandleListTickets(catalog CatalogReader, revenuePerTicket int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toCatalogResponse(catalog.View(), revenuePerTicket))
	}
}

// HandleGetTicket returns a single ticket record.
func HandleGetTicket(tickets TicketFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticket, err := tickets.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTicketResponse(ticket))
	}
}

// HandleGetCredential returns the credential payload and QR link for a ticket.
func HandleGetCredential(creds CredentialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := creds.Credential(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCredentialResponse(view))
	}
}

// HandleSendCredential emails the credential to the ticket holder.
func HandleSendCredential(creds CredentialService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorID(w, r); !ok {
			return
		}

		view, err := creds.Send(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, domain.ErrTicketNotFound) || errors.Is(err, domain.ErrStoreUnavailable) {
				writeLookupError(w, err)
				return
			}
			writeError(w, http.StatusBadGateway, codeDeliveryFailed, "credential could not be delivered")
			return
		}
		writeJSON(w, http.StatusAccepted, toCredentialResponse(view))
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrTicketNotFound) {
		writeError(w, http.StatusNotFound, codeTicketNotFound, "ticket not found")
		return
	}
	writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "ticket store unavailable")
}
