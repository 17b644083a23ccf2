package app

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/domain"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
)

// DefaultRevenuePerTicket is the flat price used for the revenue figure.
const DefaultRevenuePerTicket = 500

// Catalog is a disposable, read-only projection of every ticket, newest
// first. It is rebuilt from each feed snapshot and must never be used to
// decide a redemption.
type Catalog struct {
	mu       sync.RWMutex
	tickets  []domain.Ticket
	version  uint64
	updated  time.Time
	watchers map[chan CatalogView]struct{}
}

type CatalogStats struct {
	Total   int
	Used    int
	Revenue int64
}

// CatalogView is one consistent read of the projection.
type CatalogView struct {
	Version   uint64
	UpdatedAt time.Time
	Tickets   []domain.Ticket
}

func NewCatalog() *Catalog {
	return &Catalog{watchers: make(map[chan CatalogView]struct{})}
}

// Run applies snapshots from feed until ctx ends or the feed closes.
func (c *Catalog) Run(ctx context.Context, feed TicketFeed) error {
	ctx = logging.WithAttrs(ctx, slog.String("component", "catalog"))
	snapshots, err := feed.Subscribe(ctx)
	if err != nil {
		return err
	}
	logging.Info(ctx, "catalog subscribed")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snapshots:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				logging.Warn(ctx, "catalog feed closed")
				return nil
			}
			c.Apply(snap)
			logging.Debug(ctx, "catalog rebuilt", slog.Int("tickets", len(snap)))
		}
	}
}

// Apply replaces the projection with snap, ordered by CreatedAt descending.
// Tickets with no CreatedAt sort as the Unix epoch. Equal timestamps keep
// their snapshot order.
func (c *Catalog) Apply(snap []domain.Ticket) {
	ordered := make([]domain.Ticket, len(snap))
	copy(ordered, snap)
	sort.SliceStable(ordered, func(i, j int) bool {
		return orderKey(ordered[i]).After(orderKey(ordered[j]))
	})

	c.mu.Lock()
	c.tickets = ordered
	c.version++
	c.updated = time.Now().UTC()
	view := c.viewLocked()
	for ch := range c.watchers {
		publishLatest(ch, view)
	}
	c.mu.Unlock()
}

func orderKey(t domain.Ticket) time.Time {
	if t.CreatedAt.IsZero() {
		return time.Unix(0, 0)
	}
	return t.CreatedAt
}

// Tickets returns a copy of the ordered projection.
func (c *Catalog) Tickets() []domain.Ticket {
	return c.View().Tickets
}

func (c *Catalog) View() CatalogView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewLocked()
}

func (c *Catalog) viewLocked() CatalogView {
	out := make([]domain.Ticket, len(c.tickets))
	copy(out, c.tickets)
	return CatalogView{Version: c.version, UpdatedAt: c.updated, Tickets: out}
}

// Stats reports totals for the current projection. Revenue is
// revenuePerTicket × Total, not a ledger.
func (c *Catalog) Stats(revenuePerTicket int64) CatalogStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return statsOf(c.tickets, revenuePerTicket)
}

func (v CatalogView) Stats(revenuePerTicket int64) CatalogStats {
	return statsOf(v.Tickets, revenuePerTicket)
}

func statsOf(tickets []domain.Ticket, revenuePerTicket int64) CatalogStats {
	stats := CatalogStats{Total: len(tickets)}
	for _, t := range tickets {
		if t.Status == domain.TicketStatusUsed {
			stats.Used++
		}
	}
	stats.Revenue = revenuePerTicket * int64(stats.Total)
	return stats
}

// Watch returns a channel that receives the latest view after every Apply,
// starting with the current one. Slow readers only ever see the newest view.
// Call the returned func to stop watching.
func (c *Catalog) Watch() (<-chan CatalogView, func()) {
	ch := make(chan CatalogView, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	ch <- c.viewLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, ch)
			c.mu.Unlock()
		})
	}
}

// publishLatest never blocks: a stale pending view is replaced. The caller
// holds c.mu, so there is a single producer per channel.
func publishLatest(ch chan CatalogView, view CatalogView) {
	select {
	case ch <- view:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- view:
	default:
	}
}
