package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/credential"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/notify"
)

// DefaultEventName appears in the credential email subject.
const DefaultEventName = "2025 Global Summit"

// QRRenderer turns a payload string into a displayable image URL.
type QRRenderer interface {
	ImageURL(payload string) string
}

// CredentialView is everything needed to display or send a ticket's
// credential. It is derived on demand from the current signing key.
type CredentialView struct {
	Ticket  domain.Ticket
	Payload credential.Payload
	Encoded string
	QRURL   string
	Mailto  string
}

type Delivery struct {
	store     TicketStore
	signer    credential.Signer
	qr        QRRenderer
	notifier  notify.Notifier
	eventName string
}

type DeliveryOption func(*Delivery)

// WithEventName overrides the event name used in outgoing mail.
func WithEventName(name string) DeliveryOption {
	return func(d *Delivery) {
		if name != "" {
			d.eventName = name
		}
	}
}

func NewDelivery(store TicketStore, signer credential.Signer, qr QRRenderer, notifier notify.Notifier, opts ...DeliveryOption) *Delivery {
	d := &Delivery{
		store:     store,
		signer:    signer,
		qr:        qr,
		notifier:  notifier,
		eventName: DefaultEventName,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Credential loads the ticket and derives its credential.
func (d *Delivery) Credential(ctx context.Context, ticketID string) (CredentialView, error) {
	ticket, err := d.store.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			return CredentialView{}, domain.ErrTicketNotFound
		}
		return CredentialView{}, errs.Tag(domain.ErrStoreUnavailable, err)
	}
	return d.Render(ticket), nil
}

// Render derives the credential for an already loaded ticket.
func (d *Delivery) Render(ticket domain.Ticket) CredentialView {
	payload := credential.For(d.signer, ticket.ID)
	encoded := payload.Encode()
	qrURL := d.qr.ImageURL(encoded)
	return CredentialView{
		Ticket:  ticket,
		Payload: payload,
		Encoded: encoded,
		QRURL:   qrURL,
		Mailto:  notify.MailtoLink(d.message(ticket, qrURL)),
	}
}

// Send emails the credential to the ticket holder.
func (d *Delivery) Send(ctx context.Context, ticketID string) (CredentialView, error) {
	view, err := d.Credential(ctx, ticketID)
	if err != nil {
		return CredentialView{}, err
	}
	if err := d.notifier.Notify(ctx, d.message(view.Ticket, view.QRURL)); err != nil {
		logging.Error(ctx, "credential delivery failed", slog.String("ticket_id", ticketID), errs.Attr(err))
		return CredentialView{}, errs.Wrap(err, "deliver credential")
	}
	logging.Info(ctx, "credential sent", slog.String("ticket_id", ticketID))
	return view, nil
}

func (d *Delivery) message(t domain.Ticket, qrURL string) notify.Message {
	return notify.Message{
		To:      t.Email,
		Subject: "Your Ticket: " + d.eventName,
		Body:    fmt.Sprintf("Hello %s,\n\nHere is your ticket.\n\nLink to QR: %s", t.Name, qrURL),
	}
}
