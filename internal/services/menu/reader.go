package menu

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

// Store is the slice of the backend the menu reader needs.
type Store interface {
	ListActiveMenuItems(ctx context.Context) ([]models.MenuItem, error)
}

// Subscriber registers a handler for table-change notifications.
type Subscriber interface {
	Subscribe(table, event string, handler func()) (io.Closer, error)
}

const fetchTimeout = 10 * time.Second

// Reader keeps an in-memory copy of the active menu, refetching it on
// every change notification for the menu_items table.
type Reader struct {
	store  Store
	bus    Subscriber
	logger *logger.Logger

	mu      sync.Mutex
	items   []models.MenuItem
	loading bool
	err     error
	seq     uint64

	sub       io.Closer
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewReader creates a menu reader. Call Start to activate it.
func NewReader(store Store, bus Subscriber, log *logger.Logger) *Reader {
	return &Reader{
		store:   store,
		bus:     bus,
		logger:  log,
		loading: true,
	}
}

// Start subscribes to menu changes and kicks off the initial fetch.
func (r *Reader) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	sub, err := r.bus.Subscribe("menu_items", messaging.EventAny, func() {
		go r.Refresh()
	})
	if err != nil {
		r.cancel()
		return fmt.Errorf("failed to subscribe to menu changes: %w", err)
	}
	r.sub = sub

	go r.Refresh()

	return nil
}

// Refresh fetches the active menu. A refresh that was superseded by a
// newer one before finishing is discarded, so the freshest fetch wins
// regardless of response order.
func (r *Reader) Refresh() {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(r.ctx, fetchTimeout)
	defer cancel()

	items, err := r.store.ListActiveMenuItems(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq {
		return
	}

	if err != nil {
		r.err = err
		r.logger.Error("menu_fetch_failed", "", "Failed to fetch menu items", err, nil)
		return
	}

	r.items = items
	r.err = nil
	r.loading = false
}

// Snapshot returns the current menu along with the loading and error
// slots. The returned slice must not be mutated.
func (r *Reader) Snapshot() ([]models.MenuItem, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items, r.loading, r.err
}

// ItemsSoldToday sums the server-maintained sold_today counters across
// the loaded menu.
func (r *Reader) ItemsSoldToday() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, item := range r.items {
		total += item.SoldToday
	}
	return total
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
