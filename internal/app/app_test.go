package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/credstore"
	"storefront/internal/model"
	"storefront/internal/session"
)

const cartJSON = `{"id":1,"items":[{"id":11,"variant":101,"variant_detail":{"size":"M","color":"Blue","in_stock":true},
"product_name":"Oxford Shirt","product_brand":"Fella","product_slug":"oxford-shirt","quantity":1,"line_total":"650.00"}],
"total_items":1,"total_price":"650.00"}`

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		Storefront: config.StorefrontConfig{
			APIURL:            apiURL,
			MerchantName:      "fella.io",
			ThemeColor:        "#000000",
			FreeDeliveryAbove: model.Rupees(999),
			DeliveryFee:       model.Rupees(49),
		},
	}
}

func storeBackend() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.CredentialPair{Access: "a1", Refresh: "r1"})
	})
	mux.HandleFunc("/api/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.UserProfile{ID: 1, Username: "asha"})
	})
	mux.HandleFunc("/api/orders/cart/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(cartJSON))
	})
	mux.HandleFunc("/api/auth/addresses/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":4,"full_name":"Asha","phone":"9000000001","pincode":"411001",
"address_line1":"1 MG Road","city":"Pune","state":"MH","is_default":false},
{"id":5,"full_name":"Asha","phone":"9000000001","pincode":"411002",
"address_line1":"2 FC Road","city":"Pune","state":"MH","is_default":true}]`))
	})
	mux.HandleFunc("/api/products/oxford-shirt/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":3,"name":"Oxford Shirt","slug":"oxford-shirt","price":"650.00","selling_price":"650.00",
"variants":[{"id":101,"size":"M","color":"Blue","stock":3,"sku":"OX-M-B","in_stock":true}],"images":[],"reviews":[]}`))
	})
	return mux
}

func newTestApp(t *testing.T, mux *http.ServeMux) *App {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a, err := New(Options{
		Config:     testConfig(srv.URL + "/api"),
		Store:      credstore.NewMemoryStore(),
		HTTPClient: srv.Client(),
		Capturer:   &checkout.MockCapturer{},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestLogoutResetsBuyerState(t *testing.T) {
	a := newTestApp(t, storeBackend())
	ctx := context.Background()

	if _, err := a.Session.Login(ctx, "asha", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := a.Cart(ctx); err != nil {
		t.Fatalf("Cart: %v", err)
	}
	list, err := a.Addresses(ctx)
	if err != nil {
		t.Fatalf("Addresses: %v", err)
	}
	if list.SelectedID != 5 {
		t.Errorf("SelectedID = %d, want default 5", list.SelectedID)
	}
	if a.Carts.Snapshot() == nil {
		t.Fatal("cart snapshot should be loaded")
	}

	if err := a.Session.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if a.Session.State() != session.Anonymous {
		t.Errorf("State = %v, want Anonymous", a.Session.State())
	}
	if a.Carts.Snapshot() != nil {
		t.Error("logout should drop the cart snapshot")
	}
	if a.Book.Selected() != nil || len(a.Book.Addresses()) != 0 {
		t.Error("logout should clear the address book")
	}
}

func TestCheckoutSummaryFetchesCart(t *testing.T) {
	a := newTestApp(t, storeBackend())
	ctx := context.Background()

	if _, err := a.Session.Login(ctx, "asha", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	s, err := a.CheckoutSummary(ctx)
	if err != nil {
		t.Fatalf("CheckoutSummary: %v", err)
	}
	if s.Subtotal != model.Rupees(650) || s.Delivery != model.Rupees(49) || s.Total != model.Rupees(699) {
		t.Errorf("Summary = %+v, want 650 + 49 = 699", s)
	}
}

func TestCartRequiresSession(t *testing.T) {
	a := newTestApp(t, storeBackend())

	_, err := a.Cart(context.Background())
	if !errors.Is(err, model.ErrAuthExpired) && !errors.Is(err, model.ErrSessionExpired) {
		t.Errorf("Cart without a session = %v, want an auth error", err)
	}
}

func TestGetProductResolvesSelection(t *testing.T) {
	a := newTestApp(t, storeBackend())

	view, err := a.GetProduct(context.Background(), "oxford-shirt", "M", "Blue")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if view.Selection.Variant == nil || view.Selection.Variant.ID != 101 {
		t.Errorf("Variant = %+v, want 101", view.Selection.Variant)
	}
	if view.Unavailable != "" {
		t.Errorf("Unavailable = %q, want purchasable", view.Unavailable)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New without config should fail")
	}
}
