package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"storefront/internal/api"
	"storefront/internal/credstore"
	"storefront/internal/model"
)

const cartJSON = `{
	"id": 1,
	"items": [
		{"id": 11, "variant": 7, "variant_detail": {"size": "M", "color": "Black", "in_stock": true},
		 "product_name": "Oversized Tee", "product_brand": "fella", "product_slug": "oversized-tee",
		 "quantity": 2, "line_total": "1198.00"}
	],
	"total_items": 2,
	"total_price": "1198.00"
}`

func newTestController(t *testing.T, mux *http.ServeMux) *Controller {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := credstore.NewMemoryStore()
	store.Save(model.CredentialPair{Access: "a", Refresh: "r"}, model.UserProfile{Username: "asha"})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := api.New(api.Options{
		BaseURL:    srv.URL + "/api",
		Store:      store,
		HTTPClient: srv.Client(),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return New(client, logger)
}

func TestFetchCart(t *testing.T) {
	var fail atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/cart/", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(cartJSON))
	})
	c := newTestController(t, mux)
	ctx := context.Background()

	if c.Snapshot() != nil {
		t.Fatal("Snapshot should be nil before the first load")
	}

	snap, err := c.FetchCart(ctx)
	if err != nil {
		t.Fatalf("FetchCart: %v", err)
	}
	if snap.TotalPrice != model.Rupees(1198) || c.TotalItems() != 2 {
		t.Errorf("snapshot = %+v", snap)
	}

	fail.Store(true)
	_, err = c.FetchCart(ctx)
	if !errors.Is(err, ErrLoadFailed) || !errors.Is(err, model.ErrUpstreamError) {
		t.Fatalf("FetchCart error = %v, want ErrLoadFailed wrapping ErrUpstreamError", err)
	}
	if got := c.Snapshot(); got == nil || got.TotalItems != 2 {
		t.Errorf("failed load should keep the previous snapshot, got %+v", got)
	}
}

func TestMutationsReplaceSnapshot(t *testing.T) {
	var lastAdd addRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/cart/add/", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&lastAdd)
		// Server totals include a line the client never sent.
		w.Write([]byte(`{"id":1,"items":[
			{"id":11,"variant":7,"quantity":2,"line_total":"1198.00"},
			{"id":12,"variant":9,"quantity":1,"line_total":"799.00"}
		],"total_items":3,"total_price":"1997.00"}`))
	})
	mux.HandleFunc("/api/orders/cart/item/12/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			var body updateRequest
			json.NewDecoder(r.Body).Decode(&body)
			if body.Quantity != 3 {
				t.Errorf("quantity = %d, want 3", body.Quantity)
			}
			w.Write([]byte(`{"id":1,"items":[{"id":12,"variant":9,"quantity":3,"line_total":"2397.00"}],"total_items":3,"total_price":"2397.00"}`))
		case http.MethodDelete:
			w.Write([]byte(`{"id":1,"items":[],"total_items":0,"total_price":"0.00"}`))
		}
	})
	c := newTestController(t, mux)
	ctx := context.Background()

	snap, err := c.AddToCart(ctx, 9, 0)
	if err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if lastAdd.VariantID != 9 || lastAdd.Quantity != 1 {
		t.Errorf("add body = %+v, want variant 9 quantity 1", lastAdd)
	}
	if len(snap.Items) != 2 || snap.TotalPrice != model.Rupees(1997) {
		t.Errorf("snapshot should equal server response, got %+v", snap)
	}

	snap, err = c.UpdateItem(ctx, 12, 3)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if len(snap.Items) != 1 || snap.Items[0].Quantity != 3 {
		t.Errorf("snapshot after update = %+v", snap)
	}

	snap, err = c.RemoveItem(ctx, 12)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(snap.Items) != 0 || c.TotalItems() != 0 {
		t.Errorf("snapshot after remove = %+v", snap)
	}
}

func TestAddOutOfStockLeavesSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/cart/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(cartJSON))
	})
	mux.HandleFunc("/api/orders/cart/add/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Insufficient stock"}`))
	})
	c := newTestController(t, mux)
	ctx := context.Background()

	before, err := c.FetchCart(ctx)
	if err != nil {
		t.Fatalf("FetchCart: %v", err)
	}

	_, err = c.AddToCart(ctx, 42, 1)
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("AddToCart error = %v, want ErrConflict", err)
	}

	after := c.Snapshot()
	if after.TotalItems != before.TotalItems || len(after.Items) != len(before.Items) || after.TotalPrice != before.TotalPrice {
		t.Errorf("snapshot changed after rejected add: before %+v after %+v", before, after)
	}
}

func TestUpdateItemRejectsBelowOne(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	c := newTestController(t, mux)

	for _, qty := range []int{0, -1} {
		_, err := c.UpdateItem(context.Background(), 11, qty)
		if !errors.Is(err, model.ErrInvalidRequest) {
			t.Errorf("UpdateItem(qty=%d) error = %v, want ErrInvalidRequest", qty, err)
		}
	}
	if hits.Load() != 0 {
		t.Errorf("server calls = %d, want 0", hits.Load())
	}
}

func TestClearCart(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		wantID int64
	}{
		{"no content", http.StatusNoContent, "", 0},
		{"message body", http.StatusOK, `{"message":"Cart cleared"}`, 0},
		{"cart body", http.StatusOK, `{"id":5,"items":[],"total_items":0,"total_price":"0.00"}`, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/orders/cart/", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(cartJSON))
			})
			mux.HandleFunc("/api/orders/cart/clear/", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete {
					t.Errorf("method = %s, want DELETE", r.Method)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			c := newTestController(t, mux)
			c.FetchCart(context.Background())

			snap, err := c.ClearCart(context.Background())
			if err != nil {
				t.Fatalf("ClearCart: %v", err)
			}
			if snap.ID != tt.wantID || len(snap.Items) != 0 || snap.TotalItems != 0 || snap.TotalPrice != 0 {
				t.Errorf("snapshot = %+v", snap)
			}
		})
	}
}

func TestClearCartFailureKeepsSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/cart/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(cartJSON))
	})
	mux.HandleFunc("/api/orders/cart/clear/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestController(t, mux)
	c.FetchCart(context.Background())

	if _, err := c.ClearCart(context.Background()); !errors.Is(err, model.ErrUpstreamError) {
		t.Fatalf("ClearCart error = %v, want ErrUpstreamError", err)
	}
	if c.TotalItems() != 2 {
		t.Errorf("TotalItems = %d, want 2", c.TotalItems())
	}
}

func TestResetAndSnapshotCopy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders/cart/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(cartJSON))
	})
	c := newTestController(t, mux)
	c.FetchCart(context.Background())

	snap := c.Snapshot()
	snap.Items[0].Quantity = 50
	if c.Snapshot().Items[0].Quantity != 2 {
		t.Error("Snapshot must return a copy")
	}

	c.Reset()
	if c.Snapshot() != nil || c.TotalItems() != 0 {
		t.Error("Reset should drop the snapshot")
	}
}
