package orders

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
)

// Store is the slice of the backend the orders reader needs.
type Store interface {
	ListOrdersSince(ctx context.Context, since time.Time) ([]models.Order, error)
}

// Subscriber registers a handler for table-change notifications.
type Subscriber interface {
	Subscribe(table, event string, handler func()) (io.Closer, error)
}

const fetchTimeout = 10 * time.Second

// Reader keeps an in-memory copy of the current day's orders, refetching
// on every insert notification for the orders table.
type Reader struct {
	store  Store
	bus    Subscriber
	logger *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	orders  []models.Order
	loading bool
	err     error
	seq     uint64

	sub       io.Closer
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewReader creates an orders reader. Call Start to activate it.
func NewReader(store Store, bus Subscriber, log *logger.Logger) *Reader {
	return &Reader{
		store:   store,
		bus:     bus,
		logger:  log,
		now:     time.Now,
		loading: true,
	}
}

// Start subscribes to order inserts and kicks off the initial fetch.
func (r *Reader) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	sub, err := r.bus.Subscribe("orders", messaging.EventInsert, func() {
		go r.Refresh()
	})
	if err != nil {
		r.cancel()
		return fmt.Errorf("failed to subscribe to order changes: %w", err)
	}
	r.sub = sub

	go r.Refresh()

	return nil
}

// Refresh fetches the orders created since midnight of the current local
// day, newest first. Superseded refreshes are discarded.
func (r *Reader) Refresh() {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(r.ctx, fetchTimeout)
	defer cancel()

	orders, err := r.store.ListOrdersSince(ctx, models.StartOfDay(r.now()))

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq {
		return
	}

	if err != nil {
		r.err = err
		r.logger.Error("orders_fetch_failed", "", "Failed to fetch today's orders", err, nil)
		return
	}

	r.orders = orders
	r.err = nil
	r.loading = false
}

// Snapshot returns today's orders along with the loading and error slots.
func (r *Reader) Snapshot() ([]models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders, r.loading, r.err
}

// Stats aggregates revenue and order count over the loaded day. ItemsSold
// is left for the caller, since the sold-today counters live on the menu.
func (r *Reader) Stats() models.DayStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := models.DayStats{OrderCount: len(r.orders)}
	for _, order := range r.orders {
		stats.RevenueCents += order.TotalCents
	}
	return stats
}

// Close releases the change subscription. Safe to call more than once
// and on any teardown path.
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		if r.sub != nil {
			err = r.sub.Close()
		}
	})
	return err
}
