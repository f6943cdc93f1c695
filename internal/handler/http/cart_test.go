package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teguh2522009-hub/Benihcandi/internal/badge"
	"github.com/teguh2522009-hub/Benihcandi/internal/domain"
	"github.com/teguh2522009-hub/Benihcandi/internal/event"
	"github.com/teguh2522009-hub/Benihcandi/internal/repository/memory"
	"github.com/teguh2522009-hub/Benihcandi/internal/service"
)

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	repo   *memory.CartRepository
	badges *badge.Hub
	router http.Handler
}

// setupEnv wires the handler against the in-memory repository behind the
// production route layout, including the Session and ContentTypeJSON
// middleware so cookie behavior is tested end-to-end.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testLogger()
	repo := memory.NewCartRepository(logger)
	badges := badge.NewHub()
	svc := service.NewCartService(repo, badges, event.Nop{}, logger)
	handler := NewCartHandler(svc, badges, logger)

	r := chi.NewRouter()
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(Session)

		r.Get("/", handler.GetCart)
		r.Delete("/", handler.ClearCart)

		r.Post("/items", handler.AddItem)
		r.Put("/items/{index}", handler.UpdateQuantity)
		r.Delete("/items/{index}", handler.RemoveItem)

		r.Post("/checkout", handler.Checkout)
		r.Get("/badge", handler.GetBadge)
	})
	r.With(Session).Get("/cart/badge/stream", handler.StreamBadge)

	return &testEnv{repo: repo, badges: badges, router: r}
}

type apiResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *errorResponse  `json:"error,omitempty"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// do sends a request through the router carrying the given session cookie
// (when non-empty) and returns the recorder.
func (e *testEnv) do(method, target, session string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func addItemBody(name string, price int64, qty int) map[string]any {
	return map[string]any{
		"id":    "",
		"name":  name,
		"price": price,
		"qty":   qty,
		"image": "/static/images/produk/tomat.jpg",
	}
}

// ============================================================================
// Session middleware
// ============================================================================

func TestSession_MintsCookieWhenMissing(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/cart", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var minted *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			minted = c
		}
	}
	require.NotNil(t, minted, "session cookie should be set")
	assert.NotEmpty(t, minted.Value)
	assert.True(t, minted.HttpOnly)
}

func TestSession_ReusesExistingCookie(t *testing.T) {
	env := setupEnv(t)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", 10000, 1))

	// The same session sees the item, a different session does not.
	rec := env.do(http.MethodGet, "/api/v1/cart", "sess-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var data cartResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	assert.Len(t, data.Items, 1)

	rec = env.do(http.MethodGet, "/api/v1/cart", "sess-other", nil)
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	assert.Empty(t, data.Items)
}

// ============================================================================
// GET /api/v1/cart
// ============================================================================

func TestGetCart_EmptyCart(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/cart", "sess-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	var data cartResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Empty(t, data.Items)
	assert.Equal(t, int64(0), data.Totals.Total)
	assert.Equal(t, 0, data.Totals.Count)
}

// ============================================================================
// POST /api/v1/cart/items
// ============================================================================

func TestAddItem_Success(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Cabai", 15000, 2))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	var data addItemResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "/cart", data.Redirect)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "Benih Cabai", data.Items[0].Name)
	assert.Equal(t, int64(30000), data.Totals.Total)
	assert.Equal(t, 2, data.Totals.Count)
}

func TestAddItem_MergesRepeatedAdd(t *testing.T) {
	env := setupEnv(t)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Cabai", 15000, 1))
	rec := env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Cabai", 15000, 2))

	assert.Equal(t, http.StatusOK, rec.Code)
	var data addItemResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, 3, data.Items[0].Qty)
}

func TestAddItem_MissingName_Returns400(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("", 10000, 1))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "Name")
}

func TestAddItem_NegativePrice_Returns400(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", -1, 1))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestAddItem_MalformedBody_Returns400(t *testing.T) {
	env := setupEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte("{not json")))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess-1"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

// ============================================================================
// PUT /api/v1/cart/items/{index}
// ============================================================================

func TestUpdateQuantity_Success(t *testing.T) {
	env := setupEnv(t)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", 10000, 1))
	rec := env.do(http.MethodPut, "/api/v1/cart/items/0", "sess-1", map[string]any{"qty": 5})

	assert.Equal(t, http.StatusOK, rec.Code)
	var data cartResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, 5, data.Items[0].Qty)
	assert.Equal(t, int64(50000), data.Totals.Total)
}

func TestUpdateQuantity_ZeroQty_Returns400(t *testing.T) {
	env := setupEnv(t)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", 10000, 2))
	rec := env.do(http.MethodPut, "/api/v1/cart/items/0", "sess-1", map[string]any{"qty": 0})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// State must be untouched after the rejection.
	rec = env.do(http.MethodGet, "/api/v1/cart", "sess-1", nil)
	var data cartResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, 2, data.Items[0].Qty)
}

func TestUpdateQuantity_IndexOutOfRange_Returns404(t *testing.T) {
	env := setupEnv(t)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", 10000, 1))
	rec := env.do(http.MethodPut, "/api/v1/cart/items/3", "sess-1", map[string]any{"qty": 2})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "OUT_OF_RANGE", resp.Error.Code)
}

func TestUpdateQuantity_NonNumericIndex_Returns400(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodPut, "/api/v1/cart/items/abc", "sess-1", map[string]any{"qty": 2})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================================================
// DELETE /api/v1/cart/items/{index}
// ============================================================================

func TestRemoveItem_Success(t *testing.T) {
	env := setupEnv(t)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", 10000, 1))
	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Cabai", 15000, 1))

	rec := env.do(http.MethodDelete, "/api/v1/cart/items/0", "sess-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Removed domain.LineItem   `json:"removed"`
		Items   []domain.LineItem `json:"items"`
		Totals  domain.Totals     `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	assert.Equal(t, "Benih Tomat", data.Removed.Name)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "Benih Cabai", data.Items[0].Name)
}

func TestRemoveItem_OutOfRange_Returns404(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodDelete, "/api/v1/cart/items/0", "sess-1", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "OUT_OF_RANGE", resp.Error.Code)
}

// ============================================================================
// DELETE /api/v1/cart - ClearCart
// ============================================================================

func TestClearCart_Success(t *testing.T) {
	env := setupEnv(t)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", 10000, 3))
	rec := env.do(http.MethodDelete, "/api/v1/cart", "sess-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/cart", "sess-1", nil)
	var data cartResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	assert.Empty(t, data.Items)
}

// ============================================================================
// POST /api/v1/cart/checkout
// ============================================================================

func TestCheckout_EmptyCart_Returns400(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/cart/checkout", "sess-1", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestCheckout_Success(t *testing.T) {
	env := setupEnv(t)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", 10000, 1))
	rec := env.do(http.MethodPost, "/api/v1/cart/checkout", "sess-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var data cartResponse
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &data))
	assert.Equal(t, int64(10000), data.Totals.Total)
}

// ============================================================================
// GET /api/v1/cart/badge
// ============================================================================

func TestGetBadge_ReflectsCount(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/cart/badge", "sess-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var state badge.State
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &state))
	assert.Equal(t, 0, state.Count)
	assert.False(t, state.Visible)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", 10000, 4))

	rec = env.do(http.MethodGet, "/api/v1/cart/badge", "sess-1", nil)
	require.NoError(t, json.Unmarshal(decodeResponse(t, rec).Data, &state))
	assert.Equal(t, 4, state.Count)
	assert.True(t, state.Visible)
}

// ============================================================================
// GET /cart/badge/stream - SSE
// ============================================================================

func TestStreamBadge_SendsInitialState(t *testing.T) {
	env := setupEnv(t)

	env.do(http.MethodPost, "/api/v1/cart/items", "sess-1", addItemBody("Benih Tomat", 10000, 2))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/cart/badge/stream", nil).WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess-1"})
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.router.ServeHTTP(rec, req)
	}()

	// Give the handler time to write the initial event, then disconnect.
	require.Eventually(t, func() bool {
		return env.badges.Subscribers("sess-1") == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: badge")
	assert.Contains(t, body, `"count":2`)
	assert.Contains(t, body, `"visible":true`)
	assert.Equal(t, 0, env.badges.Subscribers("sess-1"))
}
