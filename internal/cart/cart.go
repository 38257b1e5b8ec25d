// Package cart keeps the local cart snapshot in step with the server.
//
// The snapshot is never patched locally: every mutation's response replaces it
// wholesale. Mutations are not sequenced against each other, so when two are
// in flight the last response to arrive wins.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"storefront/internal/api"
	"storefront/internal/model"
)

const (
	pathCart      = "/orders/cart/"
	pathCartAdd   = "/orders/cart/add/"
	pathCartClear = "/orders/cart/clear/"
)

// ErrLoadFailed wraps a failed FetchCart. The previous snapshot is kept.
var ErrLoadFailed = errors.New("cart load failed")

type addRequest struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

type updateRequest struct {
	Quantity int `json:"quantity"`
}

// Controller owns the live CartSnapshot.
type Controller struct {
	client *api.Client
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot *model.CartSnapshot
}

// New creates a cart controller with no snapshot loaded.
func New(client *api.Client, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{client: client, logger: logger}
}

// Snapshot returns a copy of the live snapshot, nil before the first load.
func (c *Controller) Snapshot() *model.CartSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Clone()
}

// TotalItems is the server-reported item count, 0 when nothing is loaded.
func (c *Controller) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return 0
	}
	return c.snapshot.TotalItems
}

// Reset drops the snapshot. Called on logout.
func (c *Controller) Reset() {
	c.replace(nil)
}

// FetchCart loads the server cart. On failure the previous snapshot is left as is.
func (c *Controller) FetchCart(ctx context.Context) (*model.CartSnapshot, error) {
	var snap model.CartSnapshot
	if err := c.client.Do(ctx, &api.Request{Method: http.MethodGet, Path: pathCart}, &snap); err != nil {
		c.logger.Warn("cart load failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return c.replace(&snap), nil
}

// AddToCart adds quantity of a variant (0 means 1). Stock is validated by the
// server only; a rejection leaves the snapshot unchanged.
func (c *Controller) AddToCart(ctx context.Context, variantID int64, quantity int) (*model.CartSnapshot, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, model.NewValidationError("quantity", "must be at least 1")
	}
	return c.mutate(ctx, "adding to cart", &api.Request{
		Method: http.MethodPost,
		Path:   pathCartAdd,
		Body:   addRequest{VariantID: variantID, Quantity: quantity},
	})
}

// UpdateItem sets a line's quantity. Quantities below 1 are rejected without
// a server call; use RemoveItem instead.
func (c *Controller) UpdateItem(ctx context.Context, lineID int64, quantity int) (*model.CartSnapshot, error) {
	if quantity < 1 {
		return nil, model.NewValidationError("quantity", "must be at least 1, remove the item instead")
	}
	return c.mutate(ctx, "updating cart item", &api.Request{
		Method: http.MethodPut,
		Path:   itemPath(lineID),
		Body:   updateRequest{Quantity: quantity},
	})
}

// RemoveItem deletes a cart line.
func (c *Controller) RemoveItem(ctx context.Context, lineID int64) (*model.CartSnapshot, error) {
	return c.mutate(ctx, "removing cart item", &api.Request{
		Method: http.MethodDelete,
		Path:   itemPath(lineID),
	})
}

// ClearCart empties the cart. When the server answers without a body the
// snapshot becomes the empty cart it just confirmed.
func (c *Controller) ClearCart(ctx context.Context) (*model.CartSnapshot, error) {
	resp, err := c.client.Send(ctx, &api.Request{Method: http.MethodDelete, Path: pathCartClear})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("clearing cart: %w", err)
	}

	snap := model.EmptyCart()
	if decoded, ok := decodeSnapshot(resp.Body); ok {
		snap = decoded
	}
	return c.replace(snap), nil
}

// decodeSnapshot accepts a body only if it actually carries a cart.
func decodeSnapshot(body []byte) (*model.CartSnapshot, bool) {
	var probe struct {
		Items *[]model.CartLine `json:"items"`
	}
	if json.Unmarshal(body, &probe) != nil || probe.Items == nil {
		return nil, false
	}
	var snap model.CartSnapshot
	if json.Unmarshal(body, &snap) != nil {
		return nil, false
	}
	return &snap, true
}

func (c *Controller) mutate(ctx context.Context, op string, req *api.Request) (*model.CartSnapshot, error) {
	var snap model.CartSnapshot
	if err := c.client.Do(ctx, req, &snap); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.replace(&snap), nil
}

// replace swaps in a server snapshot and returns a copy of it.
func (c *Controller) replace(snap *model.CartSnapshot) *model.CartSnapshot {
	if snap != nil && snap.Items == nil {
		snap.Items = []model.CartLine{}
	}
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
	return snap.Clone()
}

func itemPath(lineID int64) string {
	return fmt.Sprintf("/orders/cart/item/%d/", lineID)
}
