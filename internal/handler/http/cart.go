package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/teguh2522009-hub/Benihcandi/internal/badge"
	"github.com/teguh2522009-hub/Benihcandi/internal/domain"
	"github.com/teguh2522009-hub/Benihcandi/internal/service"
	apperrors "github.com/teguh2522009-hub/Benihcandi/pkg/errors"
	"github.com/teguh2522009-hub/Benihcandi/pkg/validator"
)

// CartHandler serves the JSON cart API.
type CartHandler struct {
	service *service.CartService
	badges  *badge.Hub
	logger  *slog.Logger
}

// NewCartHandler creates a cart API handler.
func NewCartHandler(svc *service.CartService, badges *badge.Hub, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		badges:  badges,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON body for adding an item to the cart.
type AddItemRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required,min=1,max=500"`
	Price int64  `json:"price" validate:"gte=0"`
	Qty   int    `json:"qty" validate:"gte=0,lte=100"`
	Image string `json:"image"`
}

// UpdateQuantityRequest is the JSON body for setting an item's quantity.
type UpdateQuantityRequest struct {
	Qty int `json:"qty" validate:"gte=1,lte=100"`
}

// --- Response envelope ---

type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// cartResponse is the cart plus its computed summary.
type cartResponse struct {
	Items  []domain.LineItem `json:"items"`
	Totals domain.Totals     `json:"totals"`
}

// addItemResponse carries the saved cart and the navigation intent the
// storefront acts on after a successful add.
type addItemResponse struct {
	cartResponse
	Redirect string `json:"redirect"`
}

func newCartResponse(cart *domain.Cart) cartResponse {
	return cartResponse{Items: cart.Items, Totals: cart.Totals()}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.InvalidInput("cart session is required"))
		return
	}

	cart, err := h.service.Get(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: newCartResponse(cart)})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.InvalidInput("cart session is required"))
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), sid, service.AddItemInput{
		ID:    req.ID,
		Name:  req.Name,
		Price: req.Price,
		Qty:   req.Qty,
		Image: req.Image,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: addItemResponse{
		cartResponse: newCartResponse(cart),
		Redirect:     "/cart",
	}})
}

// UpdateQuantity handles PUT /api/v1/cart/items/{index}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.InvalidInput("cart session is required"))
		return
	}

	index, err := indexParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), sid, index, req.Qty)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: newCartResponse(cart)})
}

// RemoveItem handles DELETE /api/v1/cart/items/{index}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.InvalidInput("cart session is required"))
		return
	}

	index, err := indexParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	removed, cart, err := h.service.RemoveItem(r.Context(), sid, index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: struct {
		cartResponse
		Removed domain.LineItem `json:"removed"`
	}{
		cartResponse: newCartResponse(cart),
		Removed:      removed,
	}})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.InvalidInput("cart session is required"))
		return
	}

	if err := h.service.Clear(r.Context(), sid); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "cleared"}})
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.InvalidInput("cart session is required"))
		return
	}

	cart, err := h.service.Checkout(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: newCartResponse(cart)})
}

// GetBadge handles GET /api/v1/cart/badge
func (h *CartHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.InvalidInput("cart session is required"))
		return
	}

	cart, err := h.service.Get(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: badge.StateFor(cart.Totals().Count)})
}

// StreamBadge handles GET /cart/badge/stream as server-sent events: an
// initial state on connect, then one event per committed cart mutation.
// The subscription is torn down when the client goes away, so a mutation
// never runs against a closed stream.
func (h *CartHandler) StreamBadge(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperrors.InvalidInput("cart session is required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, apperrors.Internal(errors.New("response writer does not support streaming")))
		return
	}

	cart, err := h.service.Get(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	states, cancel := h.badges.Subscribe(sid)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeBadgeEvent(w, badge.StateFor(cart.Totals().Count))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case state, open := <-states:
			if !open {
				return
			}
			writeBadgeEvent(w, state)
			flusher.Flush()
		}
	}
}

func writeBadgeEvent(w http.ResponseWriter, state badge.State) {
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("event: badge\ndata: " + string(data) + "\n\n"))
}

// --- Helpers ---

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput("index must be a number")
	}
	return index, nil
}

func (h *CartHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		writeJSON(w, status, response{
			Error: &errorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"},
		})
		return
	}

	writeJSON(w, status, response{
		Error: &errorResponse{Code: "ERROR", Message: err.Error()},
	})
}

func (h *CartHandler) writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}
