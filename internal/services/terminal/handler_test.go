package terminal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/menu"
	"restaurant-pos/internal/services/orders"
)

type fakeMenuStore struct {
	mu    sync.Mutex
	items []models.MenuItem
	err   error
}

func (f *fakeMenuStore) ListActiveMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.err
}

type fakeOrdersStore struct {
	mu     sync.Mutex
	orders []models.Order
}

func (f *fakeOrdersStore) ListOrdersSince(ctx context.Context, since time.Time) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders, nil
}

type fakeBus struct{}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func (fakeBus) Subscribe(table, event string, handler func()) (io.Closer, error) {
	return nopCloser{}, nil
}

type fakeWriter struct {
	mu           sync.Mutex
	failItems    bool
	createdTotal int64
	orderCalls   int
	gotLines     []models.OrderLine
}

func (f *fakeWriter) CreateOrder(ctx context.Context, totalCents int64) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCalls++
	f.createdTotal = totalCents
	return models.Order{ID: "order-1", TotalCents: totalCents}, nil
}

func (f *fakeWriter) CreateOrderItems(ctx context.Context, orderID string, lines []models.OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotLines = lines
	if f.failItems {
		return errors.New("batch insert failed")
	}
	return nil
}

func newTestHandler(t *testing.T, menuStore *fakeMenuStore, writer *fakeWriter) *Handler {
	t.Helper()
	log := logger.New("test")

	menuReader := menu.NewReader(menuStore, fakeBus{}, log)
	if err := menuReader.Start(context.Background()); err != nil {
		t.Fatalf("menu reader Start() error = %v", err)
	}
	t.Cleanup(func() { menuReader.Close() })

	ordersReader := orders.NewReader(&fakeOrdersStore{orders: []models.Order{{ID: "o1", TotalCents: 1200}}}, fakeBus{}, log)
	if err := ordersReader.Start(context.Background()); err != nil {
		t.Fatalf("orders reader Start() error = %v", err)
	}
	t.Cleanup(func() { ordersReader.Close() })

	waitReady(t, menuReader, ordersReader)

	submitter := orders.NewService(writer, ordersReader, log)
	return NewHandler(menuReader, ordersReader, submitter, log)
}

func waitReady(t *testing.T, m *menu.Reader, o *orders.Reader) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, menuLoading, _ := m.Snapshot()
		_, ordersLoading, _ := o.Snapshot()
		if !menuLoading && !ordersLoading {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("readers did not finish loading")
}

func postForm(mux http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

var testMenu = []models.MenuItem{
	{ID: "b", Name: "Cola", PriceCents: 500, Category: "Drinks", SoldToday: 4},
	{ID: "a", Name: "Shawarma", PriceCents: 1000, Category: "Mains", SoldToday: 6},
}

func TestHomeRendersMenuAndStats(t *testing.T) {
	h := newTestHandler(t, &fakeMenuStore{items: testMenu}, &fakeWriter{})
	mux := h.SetupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Shawarma", "Cola", "Drinks", "Mains", "12.00", "Items sold"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	// Items sold = 4 + 6 from the menu's sold_today counters.
	if !strings.Contains(body, "<strong>10</strong>") {
		t.Error("page missing items-sold total of 10")
	}
}

func TestHomeRendersErrorState(t *testing.T) {
	h := newTestHandler(t, &fakeMenuStore{items: testMenu}, &fakeWriter{})

	// Fail the next refresh so the error slot fills.
	store := &fakeMenuStore{err: errors.New("backend unreachable")}
	failing := menu.NewReader(store, fakeBus{}, logger.New("test"))
	if err := failing.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { failing.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, err := failing.Snapshot(); err != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.menu = failing
	rec := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(rec.Body.String(), "backend unreachable") {
		t.Error("error state not rendered")
	}
}

func TestAddAndRemoveCart(t *testing.T) {
	h := newTestHandler(t, &fakeMenuStore{items: testMenu}, &fakeWriter{})
	mux := h.SetupRoutes()

	rec := postForm(mux, "/cart/add", url.Values{"item_id": {"a"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST /cart/add status = %d, want 303", rec.Code)
	}
	postForm(mux, "/cart/add", url.Values{"item_id": {"a"}})
	postForm(mux, "/cart/add", url.Values{"item_id": {"b"}})

	if got := h.cart.TotalCents(); got != 2500 {
		t.Errorf("cart total = %d, want 2500", got)
	}

	postForm(mux, "/cart/remove", url.Values{"item_id": {"b"}})
	if got := h.cart.TotalCents(); got != 2000 {
		t.Errorf("cart total after remove = %d, want 2000", got)
	}

	lines := h.cart.Lines()
	if len(lines) != 1 || lines[0].Item.ID != "a" || lines[0].Quantity != 2 {
		t.Errorf("cart lines = %v, want a x2", lines)
	}
}

func TestAddUnknownItem(t *testing.T) {
	h := newTestHandler(t, &fakeMenuStore{items: testMenu}, &fakeWriter{})
	mux := h.SetupRoutes()

	rec := postForm(mux, "/cart/add", url.Values{"item_id": {"nope"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "alert=") {
		t.Errorf("Location = %q, want an alert", loc)
	}
	if !h.cart.Empty() {
		t.Error("unknown item landed in the cart")
	}
}

func TestConfirmEmptyCart(t *testing.T) {
	writer := &fakeWriter{}
	h := newTestHandler(t, &fakeMenuStore{items: testMenu}, writer)

	rec := postForm(h.SetupRoutes(), "/order/confirm", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if writer.orderCalls != 0 {
		t.Error("empty-cart confirm must not touch the backend")
	}
}

func TestConfirmSubmitsAndClearsCart(t *testing.T) {
	writer := &fakeWriter{}
	h := newTestHandler(t, &fakeMenuStore{items: testMenu}, writer)
	mux := h.SetupRoutes()

	postForm(mux, "/cart/add", url.Values{"item_id": {"a"}})
	postForm(mux, "/cart/add", url.Values{"item_id": {"a"}})
	postForm(mux, "/cart/add", url.Values{"item_id": {"b"}})

	rec := postForm(mux, "/order/confirm", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); strings.Contains(loc, "alert=") {
		t.Errorf("unexpected alert on success: %q", loc)
	}

	if writer.createdTotal != 2500 {
		t.Errorf("submitted total = %d, want 2500", writer.createdTotal)
	}
	if len(writer.gotLines) != 2 {
		t.Errorf("submitted %d lines, want 2", len(writer.gotLines))
	}
	if !h.cart.Empty() {
		t.Error("cart not cleared after successful submission")
	}
}

func TestConfirmFailureKeepsCart(t *testing.T) {
	writer := &fakeWriter{failItems: true}
	h := newTestHandler(t, &fakeMenuStore{items: testMenu}, writer)
	mux := h.SetupRoutes()

	postForm(mux, "/cart/add", url.Values{"item_id": {"a"}})

	rec := postForm(mux, "/order/confirm", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "alert=") {
		t.Errorf("Location = %q, want an alert after failure", loc)
	}

	// The order row was written, the items were not, and the cart
	// survives for a retry.
	if writer.orderCalls != 1 {
		t.Errorf("orderCalls = %d, want 1", writer.orderCalls)
	}
	if h.cart.Empty() {
		t.Error("cart must be preserved after a failed submission")
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, &fakeMenuStore{items: testMenu}, &fakeWriter{})

	rec := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz body = %s", rec.Body.String())
	}
}

func TestMenuJSON(t *testing.T) {
	h := newTestHandler(t, &fakeMenuStore{items: testMenu}, &fakeWriter{})

	rec := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menu", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/menu status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Shawarma") || !strings.Contains(body, `"loading":false`) {
		t.Errorf("menu JSON = %s", body)
	}
}
