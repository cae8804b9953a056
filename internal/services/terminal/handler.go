package terminal

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/menu"
	"restaurant-pos/internal/services/orders"
)

//go:embed index.html
var pageFS embed.FS

// Handler serves the terminal's single-page surface: the menu grouped by
// category, the current cart and the confirm action, plus JSON views of
// the same state.
type Handler struct {
	menu      *menu.Reader
	orders    *orders.Reader
	submitter *orders.Service
	cart      *Cart
	logger    *logger.Logger
	page      *template.Template
}

// NewHandler creates the terminal handler. The cart it owns is the only
// cart in the process.
func NewHandler(menuReader *menu.Reader, ordersReader *orders.Reader, submitter *orders.Service, log *logger.Logger) *Handler {
	page := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"price": models.FormatCents,
	}).ParseFS(pageFS, "index.html"))

	return &Handler{
		menu:      menuReader,
		orders:    ordersReader,
		submitter: submitter,
		cart:      &Cart{},
		logger:    log,
		page:      page,
	}
}

type pageData struct {
	LoadError  string
	Loading    bool
	Alert      string
	Categories []models.MenuCategory
	Lines      []CartLine
	TotalCents int64
	Stats      models.DayStats
}

// Home renders the page. A menu read failure is a blocking full-screen
// error; before the first successful fetch the page shows a loading state.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.writeErrorResponse(w, http.StatusNotFound, "Not found", "")
		return
	}
	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	items, loading, err := h.menu.Snapshot()

	data := pageData{
		Loading:    loading,
		Alert:      r.URL.Query().Get("alert"),
		Categories: models.GroupByCategory(items),
		Lines:      h.cart.Lines(),
		TotalCents: h.cart.TotalCents(),
		Stats:      h.dayStats(),
	}
	if err != nil {
		data.LoadError = err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if renderErr := h.page.Execute(w, data); renderErr != nil {
		h.logger.Error("page_render_failed", "", "Failed to render terminal page", renderErr, nil)
	}
}

// AddToCart handles POST /cart/add with an item_id form value. The item
// snapshot is taken from the currently loaded menu, capturing its price.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	itemID := r.PostFormValue("item_id")
	item, ok := h.findMenuItem(itemID)
	if !ok {
		h.redirectWithAlert(w, r, "Unknown menu item")
		return
	}

	h.cart.Add(item)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RemoveFromCart handles POST /cart/remove with an item_id form value.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	h.cart.Remove(r.PostFormValue("item_id"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ConfirmOrder submits the cart. On success the cart is cleared; on
// failure it is left untouched and the error surfaces as a transient
// alert so the cashier can retry.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	requestID := logger.NewRequestID()

	if h.cart.Empty() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	_, err := h.submitter.Submit(r.Context(), requestID, h.cart.OrderLines())
	switch {
	case errors.Is(err, orders.ErrSubmitInFlight):
		h.redirectWithAlert(w, r, "A submission is already in progress")
		return
	case err != nil:
		h.redirectWithAlert(w, r, fmt.Sprintf("Failed to submit order: %v", err))
		return
	}

	h.cart.Clear()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// MenuJSON handles GET /api/menu.
func (h *Handler) MenuJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	items, loading, err := h.menu.Snapshot()
	resp := map[string]interface{}{
		"items":   models.GroupByCategory(items),
		"loading": loading,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// OrdersJSON handles GET /api/orders/today.
func (h *Handler) OrdersJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	list, loading, err := h.orders.Snapshot()
	resp := map[string]interface{}{
		"orders":  list,
		"stats":   h.dayStats(),
		"loading": loading,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /healthz.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pos-terminal",
	})
}

// dayStats combines the orders aggregate with the menu's sold-today
// counters.
func (h *Handler) dayStats() models.DayStats {
	stats := h.orders.Stats()
	stats.ItemsSold = h.menu.ItemsSoldToday()
	return stats
}

func (h *Handler) findMenuItem(itemID string) (models.MenuItem, bool) {
	items, _, _ := h.menu.Snapshot()
	for _, item := range items {
		if item.ID == itemID {
			return item, true
		}
	}
	return models.MenuItem{}, false
}

func (h *Handler) redirectWithAlert(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/?alert="+url.QueryEscape(message), http.StatusSeeOther)
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response_encoding_failed", "", "Failed to encode response", err, nil)
	}
}

// writeErrorResponse writes an error response in JSON format.
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}

	json.NewEncoder(w).Encode(errorResponse)
}

// SetupRoutes sets up the HTTP routes.
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", h.withLogging(h.Home))
	mux.HandleFunc("/cart/add", h.withLogging(h.AddToCart))
	mux.HandleFunc("/cart/remove", h.withLogging(h.RemoveFromCart))
	mux.HandleFunc("/order/confirm", h.withLogging(h.ConfirmOrder))
	mux.HandleFunc("/api/menu", h.withLogging(h.MenuJSON))
	mux.HandleFunc("/api/orders/today", h.withLogging(h.OrdersJSON))
	mux.HandleFunc("/healthz", h.withLogging(h.HealthCheck))

	return mux
}

// withLogging adds request logging middleware.
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.NewRequestID()

		h.logger.Debug("request_started",
			requestID,
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}

		next(rw, r)

		duration := time.Since(start)
		h.logger.Debug("request_completed",
			requestID,
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
