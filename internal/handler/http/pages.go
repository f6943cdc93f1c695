package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/teguh2522009-hub/Benihcandi/internal/service"
	"github.com/teguh2522009-hub/Benihcandi/internal/view"
	apperrors "github.com/teguh2522009-hub/Benihcandi/pkg/errors"
)

// flashCookie carries a one-shot toast between a form POST redirect and the
// next page render.
const flashCookie = "bc_flash"

// PageHandler serves the server-rendered cart pages and their form posts.
// Every mutation redirects 303 back to the cart page, which re-renders the
// whole list from the freshly loaded cart.
type PageHandler struct {
	service  *service.CartService
	renderer *view.Renderer
	logger   *slog.Logger
}

// NewPageHandler creates the HTML page handler.
func NewPageHandler(svc *service.CartService, renderer *view.Renderer, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		service:  svc,
		renderer: renderer,
		logger:   logger,
	}
}

// CartPage handles GET /cart
func (h *PageHandler) CartPage(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "cart session is required", http.StatusBadRequest)
		return
	}

	flash := takeFlash(w, r)

	cart, err := h.service.Get(r.Context(), sid)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "load cart for page",
			slog.String("error", err.Error()),
		)
		http.Error(w, "cart is unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.RenderCartPage(w, cart, flash); err != nil {
		h.logger.ErrorContext(r.Context(), "render cart page",
			slog.String("error", err.Error()),
		)
	}
}

// AddItemForm handles POST /cart/items. Price and quantity arrive as form
// strings and are parsed explicitly; anything that does not parse is
// rejected with an error toast and no state change.
func (h *PageHandler) AddItemForm(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "cart session is required", http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, "Informasi produk tidak lengkap.", "error")
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	rawPrice := strings.TrimSpace(r.PostFormValue("price"))
	if name == "" || rawPrice == "" {
		h.redirectWithFlash(w, r, "Informasi produk tidak lengkap.", "error")
		return
	}

	price, err := strconv.ParseInt(rawPrice, 10, 64)
	if err != nil {
		h.redirectWithFlash(w, r, "Harga produk tidak valid.", "error")
		return
	}

	qty := 1
	if rawQty := strings.TrimSpace(r.PostFormValue("qty")); rawQty != "" {
		qty, err = strconv.Atoi(rawQty)
		if err != nil {
			h.redirectWithFlash(w, r, "Jumlah produk tidak valid.", "error")
			return
		}
	}

	_, err = h.service.AddItem(r.Context(), sid, service.AddItemInput{
		ID:    r.PostFormValue("id"),
		Name:  name,
		Price: price,
		Qty:   qty,
		Image: r.PostFormValue("image"),
	})
	if err != nil {
		h.redirectWithFlash(w, r, flashMessageFor(err), "error")
		return
	}

	h.redirectWithFlash(w, r, name+" berhasil ditambahkan ke keranjang!", "success")
}

// UpdateQuantityForm handles POST /cart/items/{index}/quantity
func (h *PageHandler) UpdateQuantityForm(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "cart session is required", http.StatusBadRequest)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.redirectWithFlash(w, r, "Permintaan tidak valid.", "error")
		return
	}

	qty, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("qty")))
	if err != nil || qty < 1 {
		h.redirectWithFlash(w, r, "Jumlah produk minimal 1.", "error")
		return
	}

	if _, err := h.service.UpdateQuantity(r.Context(), sid, index, qty); err != nil {
		h.redirectWithFlash(w, r, flashMessageFor(err), "error")
		return
	}

	h.redirectWithFlash(w, r, "Jumlah produk diperbarui.", "success")
}

// RemoveItemForm handles POST /cart/items/{index}/remove
func (h *PageHandler) RemoveItemForm(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "cart session is required", http.StatusBadRequest)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.redirectWithFlash(w, r, "Permintaan tidak valid.", "error")
		return
	}

	removed, _, err := h.service.RemoveItem(r.Context(), sid, index)
	if err != nil {
		h.redirectWithFlash(w, r, flashMessageFor(err), "error")
		return
	}

	h.redirectWithFlash(w, r, removed.Name+" dihapus dari keranjang", "success")
}

// ClearForm handles POST /cart/clear
func (h *PageHandler) ClearForm(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "cart session is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Clear(r.Context(), sid); err != nil {
		h.redirectWithFlash(w, r, flashMessageFor(err), "error")
		return
	}

	h.redirectWithFlash(w, r, "Keranjang dikosongkan", "success")
}

// CheckoutForm handles POST /cart/checkout
func (h *PageHandler) CheckoutForm(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		http.Error(w, "cart session is required", http.StatusBadRequest)
		return
	}

	if _, err := h.service.Checkout(r.Context(), sid); err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			h.redirectWithFlash(w, r, "Keranjang Anda kosong", "error")
			return
		}
		h.redirectWithFlash(w, r, flashMessageFor(err), "error")
		return
	}

	h.redirectWithFlash(w, r, "Melanjutkan ke pembayaran... (Fitur ini masih simulasi)", "success")
}

// --- Flash helpers ---

func (h *PageHandler) redirectWithFlash(w http.ResponseWriter, r *http.Request, message, severity string) {
	setFlash(w, view.Flash{Message: message, Severity: severity})
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func setFlash(w http.ResponseWriter, f view.Flash) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.URLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the flash cookie. A cookie that fails to
// decode is dropped silently.
func takeFlash(w http.ResponseWriter, r *http.Request) *view.Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:   flashCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	data, err := base64.URLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f view.Flash
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	return &f
}

// flashMessageFor maps service errors to user-facing toast text.
func flashMessageFor(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrOutOfRange):
		return "Produk tidak ditemukan di keranjang."
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "Informasi produk tidak lengkap."
	default:
		return "Terjadi kesalahan. Silakan coba lagi."
	}
}
