package http

import (
	"context"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/app"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/credential"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
)

type stubIssuer struct {
	ticket domain.Ticket
	err    error

	gotHolder app.Holder
	gotActor  string
}

func (s *stubIssuer) Issue(_ context.Context, holder app.Holder, actorID string) (domain.Ticket, error) {
	s.gotHolder = holder
	s.gotActor = actorID
	if s.err != nil {
		return domain.Ticket{}, s.err
	}
	return s.ticket, nil
}

type stubVerifier struct {
	outcome app.Outcome
	err     error

	gotScanned string
	gotActor   string
	calls      int
}

func (s *stubVerifier) Verify(_ context.Context, scanned, actorID string) (app.Outcome, error) {
	s.calls++
	s.gotScanned = scanned
	s.gotActor = actorID
	if s.err != nil {
		return app.Outcome{}, s.err
	}
	return s.outcome, nil
}

type stubFinder struct {
	ticket domain.Ticket
	err    error
}

func (s *stubFinder) Get(_ context.Context, _ string) (domain.Ticket, error) {
	if s.err != nil {
		return domain.Ticket{}, s.err
	}
	return s.ticket, nil
}

type stubCredentials struct {
	err     error
	sendErr error
	sent    int
}

func (s *stubCredentials) Render(t domain.Ticket) app.CredentialView {
	payload := credential.Payload{ID: t.ID, Signature: "sig-" + t.ID}
	return app.CredentialView{
		Ticket:  t,
		Payload: payload,
		Encoded: payload.Encode(),
		QRURL:   "https://qr.test/?data=" + t.ID,
		Mailto:  "mailto:" + t.Email,
	}
}

func (s *stubCredentials) Credential(_ context.Context, id string) (app.CredentialView, error) {
	if s.err != nil {
		return app.CredentialView{}, s.err
	}
	return s.Render(domain.Ticket{ID: id, Email: "a@b.test"}), nil
}

func (s *stubCredentials) Send(ctx context.Context, id string) (app.CredentialView, error) {
	view, err := s.Credential(ctx, id)
	if err != nil {
		return app.CredentialView{}, err
	}
	if s.sendErr != nil {
		return app.CredentialView{}, s.sendErr
	}
	s.sent++
	return view, nil
}

type stubCatalog struct {
	view app.CatalogView
}

func (s *stubCatalog) View() app.CatalogView {
	return s.view
}

func (s *stubCatalog) Watch() (<-chan app.CatalogView, func()) {
	ch := make(chan app.CatalogView, 1)
	ch <- s.view
	return ch, func() {}
}
