package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/app"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// CatalogWatcher publishes catalog views as they change.
type CatalogWatcher interface {
	Watch() (<-chan app.CatalogView, func())
}

// HandleCatalogStream upgrades to a websocket and pushes the catalog view
// after every change, starting with the current one. Clients never write.
func HandleCatalogStream(catalog CatalogWatcher, revenuePerTicket int64, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			logging.Warn(r.Context(), "catalog stream upgrade failed", errs.Attr(err))
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		views, stop := catalog.Watch()
		defer stop()

		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(streamPingPeriod)
		defer ticker.Stop()

		logging.Debug(ctx, "catalog stream opened")
		for {
			select {
			case <-ctx.Done():
				logging.Debug(ctx, "catalog stream closed")
				return
			case view := <-views:
				payload, err := json.Marshal(toCatalogResponse(view, revenuePerTicket))
				if err != nil {
					logging.Error(ctx, "encode catalog view", errs.Attr(err))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					logging.Debug(ctx, "catalog stream write failed", errs.Attr(err))
					return
				}
				logging.Debug(ctx, "catalog view pushed", slog.Uint64("version", view.Version))
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
					return
				}
			}
		}
	}
}

// originChecker mirrors the CORS allow-list. Requests without an Origin
// header (non-browser clients) are allowed.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowAll, allowed := originSet(allowedOrigins)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
