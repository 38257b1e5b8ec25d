package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/adapter"
	"storefront/internal/catalog"
	"storefront/internal/model"
)

func testHandler(mock *adapter.Mock) (*Handler, *http.ServeMux) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(mock, logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, mux
}

func getErrorCode(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Error.Code
}

func testCart() *model.CartSnapshot {
	return &model.CartSnapshot{
		ID: 1,
		Items: []model.CartLine{
			{ID: 11, VariantID: 101, ProductName: "Linen Shirt", Quantity: 2, LineTotal: model.Rupees(1998)},
		},
		TotalItems: 2,
		TotalPrice: model.Rupees(1998),
	}
}

func TestHandleHealth(t *testing.T) {
	_, mux := testHandler(&adapter.Mock{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp healthResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("Status = %s, want ok", resp.Status)
	}
}

func TestHandleSearchProducts(t *testing.T) {
	var got catalog.Filter
	mock := &adapter.Mock{
		SearchProductsFunc: func(ctx context.Context, f catalog.Filter) (*model.Page[model.ProductSummary], error) {
			got = f
			return &model.Page[model.ProductSummary]{
				Count:   1,
				Results: []model.ProductSummary{{ID: 7, Slug: "linen-shirt", SellingPrice: model.Rupees(999)}},
			}, nil
		},
	}
	_, mux := testHandler(mock)

	req := httptest.NewRequest("GET", "/products?search=linen&min_price=500&page=2&ordering=-price", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	want := catalog.Filter{Search: "linen", MinPrice: 500, Page: 2, Ordering: "-price"}
	if got != want {
		t.Errorf("Filter = %+v, want %+v", got, want)
	}

	var page model.Page[model.ProductSummary]
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].SellingPrice != model.Rupees(999) {
		t.Errorf("Results = %+v", page.Results)
	}
}

func TestHandleSearchProductsBadQuery(t *testing.T) {
	called := false
	mock := &adapter.Mock{
		SearchProductsFunc: func(ctx context.Context, f catalog.Filter) (*model.Page[model.ProductSummary], error) {
			called = true
			return nil, nil
		},
	}
	_, mux := testHandler(mock)

	req := httptest.NewRequest("GET", "/products?min_price=cheap", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
	if called {
		t.Error("store should not be called for an invalid query")
	}
}

func TestHandleGetProduct(t *testing.T) {
	mock := &adapter.Mock{
		GetProductFunc: func(ctx context.Context, slug, size, color string) (*adapter.ProductView, error) {
			p := &model.Product{Slug: slug, Variants: []model.Variant{{ID: 5, Size: "M", Color: "Blue", InStock: true}}}
			return adapter.NewProductView(p, size, color), nil
		},
	}
	_, mux := testHandler(mock)

	req := httptest.NewRequest("GET", "/products/linen-shirt?size=M&color=Blue", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	var view adapter.ProductView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Product.Slug != "linen-shirt" {
		t.Errorf("Slug = %s, want linen-shirt", view.Product.Slug)
	}
	if view.Selection.Variant == nil || view.Selection.Variant.ID != 5 {
		t.Errorf("Variant = %+v, want 5", view.Selection.Variant)
	}
}

func TestHandleAddToCart(t *testing.T) {
	var gotVariant int64
	var gotQty int
	mock := &adapter.Mock{
		AddToCartFunc: func(ctx context.Context, variantID int64, quantity int) (*model.CartSnapshot, error) {
			gotVariant, gotQty = variantID, quantity
			return testCart(), nil
		},
	}
	_, mux := testHandler(mock)

	req := httptest.NewRequest("POST", "/cart/items", bytes.NewBufferString(`{"variant_id":101,"quantity":2}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
	}
	if gotVariant != 101 || gotQty != 2 {
		t.Errorf("AddToCart(%d, %d), want (101, 2)", gotVariant, gotQty)
	}

	var snap model.CartSnapshot
	json.NewDecoder(w.Body).Decode(&snap)
	if snap.TotalItems != 2 || snap.TotalPrice != model.Rupees(1998) {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestHandleAddToCartInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing variant", `{"quantity":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mux := testHandler(&adapter.Mock{})
			req := httptest.NewRequest("POST", "/cart/items", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want 400", w.Code)
			}
			if code := getErrorCode(w.Body.Bytes()); code != "VALIDATION_ERROR" {
				t.Errorf("Code = %s, want VALIDATION_ERROR", code)
			}
		})
	}
}

func TestHandleUpdateAndRemoveCartItem(t *testing.T) {
	var calls []string
	mock := &adapter.Mock{
		UpdateCartItemFunc: func(ctx context.Context, lineID int64, quantity int) (*model.CartSnapshot, error) {
			calls = append(calls, "update")
			if lineID != 11 || quantity != 3 {
				t.Errorf("UpdateCartItem(%d, %d), want (11, 3)", lineID, quantity)
			}
			return testCart(), nil
		},
		RemoveCartItemFunc: func(ctx context.Context, lineID int64) (*model.CartSnapshot, error) {
			calls = append(calls, "remove")
			return model.EmptyCart(), nil
		},
	}
	_, mux := testHandler(mock)

	req := httptest.NewRequest("PATCH", "/cart/items/11", bytes.NewBufferString(`{"quantity":3}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("PATCH Status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest("DELETE", "/cart/items/11", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("DELETE Status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest("DELETE", "/cart/items/abc", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id Status = %d, want 400", w.Code)
	}

	if len(calls) != 2 || calls[0] != "update" || calls[1] != "remove" {
		t.Errorf("calls = %v, want [update remove]", calls)
	}
}

func TestHandleReadOnlyEndpoints(t *testing.T) {
	mock := &adapter.Mock{
		CartFunc: func(ctx context.Context) (*model.CartSnapshot, error) { return testCart(), nil },
		AddressesFunc: func(ctx context.Context) (*adapter.AddressList, error) {
			return &adapter.AddressList{Addresses: []model.Address{{ID: 3, City: "Pune"}}, SelectedID: 3}, nil
		},
		OrdersFunc: func(ctx context.Context) ([]model.Order, error) {
			return []model.Order{{ID: 1, OrderID: "ORD-1", Status: model.OrderConfirmed}}, nil
		},
		DesignsFunc: func(ctx context.Context) ([]model.Design, error) {
			return []model.Design{{ID: 2, Title: "Skyline"}}, nil
		},
	}
	_, mux := testHandler(mock)

	for _, path := range []string{"/cart", "/addresses", "/checkout/summary", "/orders", "/designs"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("Status = %d, want 200\nBody: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		mockErr    error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			mockErr:    model.NewNotFoundError("cart item"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "validation error",
			mockErr:    model.NewValidationError("quantity", "must be at least 1"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "out of stock",
			mockErr:    model.NewConflictError(http.StatusBadRequest, "Only 2 in stock"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "CONFLICT",
		},
		{
			name:       "session expired",
			mockErr:    model.NewSessionExpiredError(nil),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "SESSION_EXPIRED",
		},
		{
			name:       "server error",
			mockErr:    model.NewServerError(http.StatusInternalServerError, ""),
			wantStatus: http.StatusBadGateway,
			wantCode:   "SERVER_ERROR",
		},
		{
			name:       "transport",
			mockErr:    model.NewTransportError(errors.New("dial tcp: refused")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "TRANSPORT_ERROR",
		},
		{
			name:       "rate limit",
			mockErr:    model.NewRateLimitError(),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMITED",
		},
		{
			name:       "unexpected",
			mockErr:    errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &adapter.Mock{
				CartFunc: func(ctx context.Context) (*model.CartSnapshot, error) {
					return nil, tt.mockErr
				},
			}

			_, mux := testHandler(mock)

			req := httptest.NewRequest("GET", "/cart", nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if code := getErrorCode(w.Body.Bytes()); code != tt.wantCode {
				t.Errorf("Code = %s, want %s\nBody: %s", code, tt.wantCode, w.Body.String())
			}
		})
	}
}
