package adapter

import (
	"context"

	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/model"
)

// Mock implements Storefront for testing.
// Each method can be configured via function fields.
type Mock struct {
	SearchProductsFunc  func(ctx context.Context, f catalog.Filter) (*model.Page[model.ProductSummary], error)
	GetProductFunc      func(ctx context.Context, slug, size, color string) (*ProductView, error)
	CartFunc            func(ctx context.Context) (*model.CartSnapshot, error)
	AddToCartFunc       func(ctx context.Context, variantID int64, quantity int) (*model.CartSnapshot, error)
	UpdateCartItemFunc  func(ctx context.Context, lineID int64, quantity int) (*model.CartSnapshot, error)
	RemoveCartItemFunc  func(ctx context.Context, lineID int64) (*model.CartSnapshot, error)
	AddressesFunc       func(ctx context.Context) (*AddressList, error)
	CheckoutSummaryFunc func(ctx context.Context) (*checkout.Summary, error)
	OrdersFunc          func(ctx context.Context) ([]model.Order, error)
	DesignsFunc         func(ctx context.Context) ([]model.Design, error)
}

var _ Storefront = (*Mock)(nil)

// SearchProducts calls the configured SearchProductsFunc or returns an empty page.
func (m *Mock) SearchProducts(ctx context.Context, f catalog.Filter) (*model.Page[model.ProductSummary], error) {
	if m.SearchProductsFunc != nil {
		return m.SearchProductsFunc(ctx, f)
	}
	return &model.Page[model.ProductSummary]{Results: []model.ProductSummary{}}, nil
}

// GetProduct calls the configured GetProductFunc or returns not found.
func (m *Mock) GetProduct(ctx context.Context, slug, size, color string) (*ProductView, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, slug, size, color)
	}
	return nil, model.NewNotFoundError("product")
}

// Cart calls the configured CartFunc or returns an empty cart.
func (m *Mock) Cart(ctx context.Context) (*model.CartSnapshot, error) {
	if m.CartFunc != nil {
		return m.CartFunc(ctx)
	}
	return model.EmptyCart(), nil
}

// AddToCart calls the configured AddToCartFunc or returns not found.
func (m *Mock) AddToCart(ctx context.Context, variantID int64, quantity int) (*model.CartSnapshot, error) {
	if m.AddToCartFunc != nil {
		return m.AddToCartFunc(ctx, variantID, quantity)
	}
	return nil, model.NewNotFoundError("variant")
}

// UpdateCartItem calls the configured UpdateCartItemFunc or returns not found.
func (m *Mock) UpdateCartItem(ctx context.Context, lineID int64, quantity int) (*model.CartSnapshot, error) {
	if m.UpdateCartItemFunc != nil {
		return m.UpdateCartItemFunc(ctx, lineID, quantity)
	}
	return nil, model.NewNotFoundError("cart item")
}

// RemoveCartItem calls the configured RemoveCartItemFunc or returns not found.
func (m *Mock) RemoveCartItem(ctx context.Context, lineID int64) (*model.CartSnapshot, error) {
	if m.RemoveCartItemFunc != nil {
		return m.RemoveCartItemFunc(ctx, lineID)
	}
	return nil, model.NewNotFoundError("cart item")
}

// Addresses calls the configured AddressesFunc or returns an empty book.
func (m *Mock) Addresses(ctx context.Context) (*AddressList, error) {
	if m.AddressesFunc != nil {
		return m.AddressesFunc(ctx)
	}
	return &AddressList{Addresses: []model.Address{}}, nil
}

// CheckoutSummary calls the configured CheckoutSummaryFunc or summarizes an empty cart.
func (m *Mock) CheckoutSummary(ctx context.Context) (*checkout.Summary, error) {
	if m.CheckoutSummaryFunc != nil {
		return m.CheckoutSummaryFunc(ctx)
	}
	s := checkout.Summarize(nil, checkout.DefaultDeliveryPolicy())
	return &s, nil
}

// Orders calls the configured OrdersFunc or returns no orders.
func (m *Mock) Orders(ctx context.Context) ([]model.Order, error) {
	if m.OrdersFunc != nil {
		return m.OrdersFunc(ctx)
	}
	return []model.Order{}, nil
}

// Designs calls the configured DesignsFunc or returns no designs.
func (m *Mock) Designs(ctx context.Context) ([]model.Design, error) {
	if m.DesignsFunc != nil {
		return m.DesignsFunc(ctx)
	}
	return []model.Design{}, nil
}
