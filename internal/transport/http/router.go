package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services bundles what the router dispatches to.
type Services struct {
	Issuer      TicketIssuer
	Verifier    TicketVerifier
	Tickets     TicketFinder
	Credentials CredentialService
	Catalog     interface {
		CatalogReader
		CatalogWatcher
	}
	RevenuePerTicket int64
}

type RouterConfig struct {
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter wires the ticket routes with request ids, request logging, panic
// recovery and CORS.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler { return RequestLogger(next, cfg.Logger) })
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return CORS(cfg.CORSOrigins, next) })

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HandleHealth(svc.Catalog))

	r.Route("/tickets", func(r chi.Router) {
		r.Post("/", HandleIssueTicket(svc.Issuer, svc.Credentials))
		r.Get("/", HandleListTickets(svc.Catalog, svc.RevenuePerTicket))
		r.Get("/stream", HandleCatalogStream(svc.Catalog, svc.RevenuePerTicket, cfg.CORSOrigins))
		r.Get("/{id}", HandleGetTicket(svc.Tickets))
		r.Get("/{id}/credential", HandleGetCredential(svc.Credentials))
		r.Post("/{id}/send", HandleSendCredential(svc.Credentials))
	})
	r.Post("/verify", HandleVerify(svc.Verifier))

	return r
}
