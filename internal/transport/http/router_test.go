package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/app"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/clock"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/notify"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/qr"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/signature"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/storage/memory"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type testServer struct {
	*httptest.Server
	notifier *recordingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clk := clock.NewStepping(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), time.Second)
	store := memory.NewStore(clk)
	signer, err := signature.New("test-key", signature.SchemeLegacy)
	require.NoError(t, err)

	catalog := app.NewCatalog()
	go func() { _ = catalog.Run(ctx, store) }()

	notifier := &recordingNotifier{}
	delivery := app.NewDelivery(store, signer, qr.NewRenderer("", 0), notifier)

	router := NewRouter(Services{
		Issuer:           app.NewIssuer(store, clk),
		Verifier:         app.NewVerifier(store, signer, clk),
		Tickets:          store,
		Credentials:      delivery,
		Catalog:          catalog,
		RevenuePerTicket: app.DefaultRevenuePerTicket,
	}, RouterConfig{
		CORSOrigins: []string{"http://localhost:5173"},
		Logger:      logging.New(io.Discard, "text", "error"),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path, actor, body string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	res, err := s.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(b)
}

func (s *testServer) issue(t *testing.T, name string) issueTicketResponse {
	t.Helper()

	status, body := s.do(t, http.MethodPost, "/tickets", "desk-1",
		`{"name":"`+name+`","email":"`+strings.ToLower(name)+`@example.com","type":"VIP"}`)
	require.Equal(t, http.StatusCreated, status, body)
	var resp issueTicketResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp
}

func TestRouter_IssueAndRedeem(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	issued := srv.issue(t, "Ada")
	assert.Equal(t, "ISSUED", issued.Ticket.Status)
	assert.Equal(t, "VIP", issued.Ticket.Type)
	assert.Equal(t, "desk-1", issued.Ticket.IssuedBy)
	assert.Contains(t, issued.Credential.QRURL, "size=300x300")

	status, body := srv.do(t, http.MethodPost, "/verify", "gate-1", issued.Credential.Payload)
	require.Equal(t, http.StatusOK, status, body)
	var first verifyResponse
	require.NoError(t, json.Unmarshal([]byte(body), &first))
	assert.Equal(t, "admitted", first.Result)
	assert.Equal(t, "USED", first.Ticket.Status)
	assert.Equal(t, "gate-1", first.Ticket.VerifiedBy)
	require.NotNil(t, first.Ticket.UsedAt)

	status, body = srv.do(t, http.MethodPost, "/verify", "gate-2", issued.Credential.Payload)
	require.Equal(t, http.StatusOK, status, body)
	var second verifyResponse
	require.NoError(t, json.Unmarshal([]byte(body), &second))
	assert.Equal(t, "already_used", second.Result)
	assert.Equal(t, "gate-1", second.Ticket.VerifiedBy, "original redemption is reported")
	assert.Equal(t, first.Ticket.UsedAt, second.Ticket.UsedAt)

	assert.Eventually(t, func() bool {
		res, err := srv.Client().Get(srv.URL + "/tickets")
		if err != nil {
			return false
		}
		defer res.Body.Close()
		var resp catalogResponse
		if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
			return false
		}
		return resp.Stats == statsResponse{Total: 1, Used: 1, Revenue: 500}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_RejectsForgedAndUnknown(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	issued := srv.issue(t, "Grace")

	forged := `{"id":"` + issued.Ticket.ID + `","signature":"deadbeef"}`
	status, body := srv.do(t, http.MethodPost, "/verify", "gate-1", forged)
	assert.Equal(t, http.StatusUnprocessableEntity, status, body)

	status, body = srv.do(t, http.MethodGet, "/tickets/"+issued.Ticket.ID, "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ISSUED"`, "forged scan must not redeem")

	signer, err := signature.New("test-key", signature.SchemeLegacy)
	require.NoError(t, err)
	unknown := `{"id":"does-not-exist","signature":"` + signer.Generate("does-not-exist") + `"}`
	status, _ = srv.do(t, http.MethodPost, "/verify", "gate-1", unknown)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = srv.do(t, http.MethodPost, "/verify", "gate-1", "hello")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = srv.do(t, http.MethodPost, "/verify", "", issued.Credential.Payload)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRouter_CredentialAndSend(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	issued := srv.issue(t, "Linus")

	status, body := srv.do(t, http.MethodGet, "/tickets/"+issued.Ticket.ID+"/credential", "", "")
	require.Equal(t, http.StatusOK, status)
	var cred credentialResponse
	require.NoError(t, json.Unmarshal([]byte(body), &cred))
	assert.Equal(t, issued.Credential, cred, "credential is derived deterministically")

	status, _ = srv.do(t, http.MethodPost, "/tickets/"+issued.Ticket.ID+"/send", "desk-1", "")
	require.Equal(t, http.StatusAccepted, status)

	srv.notifier.mu.Lock()
	defer srv.notifier.mu.Unlock()
	require.Len(t, srv.notifier.sent, 1)
	assert.Equal(t, "linus@example.com", srv.notifier.sent[0].To)
	assert.Equal(t, "Your Ticket: 2025 Global Summit", srv.notifier.sent[0].Subject)
	assert.Contains(t, srv.notifier.sent[0].Body, "Hello Linus,")

	status, _ = srv.do(t, http.MethodGet, "/tickets/missing/credential", "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_FallbackRoutes(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)

	status, body = srv.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, codeNotFound)

	status, body = srv.do(t, http.MethodDelete, "/verify", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Contains(t, body, codeMethodNotAllowed)
}

func TestRouter_CatalogStream(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	srv.issue(t, "Ada")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/tickets/stream"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, res.StatusCode)

	readUntil := func(total int) catalogResponse {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			require.NoError(t, conn.SetReadDeadline(deadline))
			_, msg, err := conn.ReadMessage()
			require.NoError(t, err)
			var view catalogResponse
			require.NoError(t, json.Unmarshal(msg, &view))
			if view.Stats.Total == total {
				return view
			}
		}
	}

	readUntil(1)
	srv.issue(t, "Grace")
	view := readUntil(2)
	require.Len(t, view.Tickets, 2)
	assert.Equal(t, "Grace", view.Tickets[0].Name, "newest first")
}

func TestRouter_CatalogStreamRejectsForeignOrigin(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/tickets/stream"
	header := http.Header{}
	header.Set("Origin", "http://evil.local")
	_, res, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}
