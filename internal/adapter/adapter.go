// Package adapter defines the storefront operations exposed to agents.
// The MCP tool layer talks to this interface; internal/app provides the
// implementation on top of the session, cart, catalog and checkout
// controllers.
package adapter

import (
	"context"

	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/model"
)

// Storefront abstracts the buyer-side operations of the store.
//
// All methods act on behalf of the persisted session. Errors are
// *model.APIError values (or wrap one) so callers can report them verbatim.
type Storefront interface {
	// SearchProducts lists one page of the catalog.
	SearchProducts(ctx context.Context, f catalog.Filter) (*model.Page[model.ProductSummary], error)

	// GetProduct returns the product with its variants and the selection
	// derived from size and color (either may be empty).
	GetProduct(ctx context.Context, slug, size, color string) (*ProductView, error)

	// Cart fetches the server cart and replaces the local snapshot.
	Cart(ctx context.Context) (*model.CartSnapshot, error)

	// AddToCart adds a variant; the returned snapshot is the server's.
	AddToCart(ctx context.Context, variantID int64, quantity int) (*model.CartSnapshot, error)

	// UpdateCartItem sets a line's quantity (at least 1).
	UpdateCartItem(ctx context.Context, lineID int64, quantity int) (*model.CartSnapshot, error)

	// RemoveCartItem deletes a cart line.
	RemoveCartItem(ctx context.Context, lineID int64) (*model.CartSnapshot, error)

	// Addresses loads the saved addresses and reports the current selection.
	Addresses(ctx context.Context) (*AddressList, error)

	// CheckoutSummary prices the current cart for display.
	CheckoutSummary(ctx context.Context) (*checkout.Summary, error)

	// Orders lists past orders.
	Orders(ctx context.Context) ([]model.Order, error)

	// Designs lists the buyer's custom T-shirt designs.
	Designs(ctx context.Context) ([]model.Design, error)
}

// ProductView pairs a product with its variant selection.
type ProductView struct {
	Product   *model.Product    `json:"product"`
	Selection catalog.Selection `json:"selection"`
	// Unavailable is empty when the selected variant can go in the cart,
	// otherwise the reason it cannot.
	Unavailable string `json:"unavailable,omitempty"`
}

// AddressList is the address book with its selection.
type AddressList struct {
	Addresses  []model.Address `json:"addresses"`
	SelectedID int64           `json:"selected_id,omitempty"`
}

// NewProductView resolves size and color against the product's variants.
func NewProductView(p *model.Product, size, color string) *ProductView {
	sel := catalog.Resolve(p.Variants, size, color)
	view := &ProductView{Product: p, Selection: sel}
	if err := sel.Purchasable(); err != nil {
		view.Unavailable = err.Error()
	}
	return view
}
