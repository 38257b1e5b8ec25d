// MCP transport for the storefront using the official MCP Go SDK.
// Exposes browsing, cart and checkout-preview operations as tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// === MCP Tool Input/Output Types ===

// SearchProductsInput is the input schema for search_products.
type SearchProductsInput struct {
	Search      string `json:"search,omitempty" jsonschema:"free-text search over name and brand"`
	Category    string `json:"category,omitempty" jsonschema:"category slug"`
	Gender      string `json:"gender,omitempty" jsonschema:"MEN, WOMEN or UNISEX"`
	Brand       string `json:"brand,omitempty" jsonschema:"brand name"`
	MinPrice    int64  `json:"min_price,omitempty" jsonschema:"minimum selling price in rupees"`
	MaxPrice    int64  `json:"max_price,omitempty" jsonschema:"maximum selling price in rupees"`
	MinDiscount int    `json:"min_discount,omitempty" jsonschema:"minimum discount percent"`
	Color       string `json:"color,omitempty" jsonschema:"variant color"`
	Size        string `json:"size,omitempty" jsonschema:"variant size"`
	Ordering    string `json:"ordering,omitempty" jsonschema:"price, -price, name, discount_percent or -created_at"`
	Page        int    `json:"page,omitempty" jsonschema:"1-based page number"`
}

// GetProductInput is the input schema for get_product.
type GetProductInput struct {
	Slug  string `json:"slug" jsonschema:"product slug"`
	Size  string `json:"size,omitempty" jsonschema:"selected size"`
	Color string `json:"color,omitempty" jsonschema:"selected color"`
}

// AddToCartInput is the input schema for add_to_cart.
type AddToCartInput struct {
	VariantID int64 `json:"variant_id" jsonschema:"variant ID from get_product"`
	Quantity  int   `json:"quantity,omitempty" jsonschema:"quantity, defaults to 1"`
}

// UpdateCartItemInput is the input schema for update_cart_item.
type UpdateCartItemInput struct {
	ItemID   int64 `json:"item_id" jsonschema:"cart line ID"`
	Quantity int   `json:"quantity" jsonschema:"new quantity, at least 1"`
}

// RemoveCartItemInput is the input schema for remove_cart_item.
type RemoveCartItemInput struct {
	ItemID int64 `json:"item_id" jsonschema:"cart line ID"`
}

// NoInput is the input schema for tools without arguments.
type NoInput struct{}

type ordersOutput struct {
	Orders []model.Order `json:"orders"`
}

type designsOutput struct {
	Designs []model.Design `json:"designs"`
}

// NewMCPServer creates an MCP server with the storefront tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront - browse the catalog, manage the signed-in buyer's cart " +
				"and preview checkout. Payment is completed by the buyer in the storefront CLI.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_products",
		Description: "Search the catalog. Returns one page of product summaries.",
	}, h.mcpSearchProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Get a product with its variants. Pass size and color to resolve a purchasable variant.",
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "view_cart",
		Description: "Fetch the current cart.",
	}, h.mcpViewCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a variant to the cart. Returns the updated cart.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_item",
		Description: "Change the quantity of a cart line. Quantity must be at least 1; use remove_cart_item to delete.",
	}, h.mcpUpdateCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_cart_item",
		Description: "Remove a line from the cart.",
	}, h.mcpRemoveCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_addresses",
		Description: "List saved delivery addresses and the one selected for checkout.",
	}, h.mcpListAddresses)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "checkout_summary",
		Description: "Price the cart: subtotal, delivery fee and total.",
	}, h.mcpCheckoutSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_orders",
		Description: "List past orders.",
	}, h.mcpListOrders)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_designs",
		Description: "List the buyer's custom T-shirt designs. New designs are uploaded with the storefront CLI.",
	}, h.mcpListDesigns)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpSearchProducts(ctx context.Context, req *mcp.CallToolRequest, input SearchProductsInput) (*mcp.CallToolResult, any, error) {
	page, err := h.store.SearchProducts(ctx, catalog.Filter{
		Search:      input.Search,
		Category:    input.Category,
		Gender:      input.Gender,
		Brand:       input.Brand,
		MinPrice:    input.MinPrice,
		MaxPrice:    input.MaxPrice,
		MinDiscount: input.MinDiscount,
		Color:       input.Color,
		Size:        input.Size,
		Ordering:    input.Ordering,
		Page:        input.Page,
	})
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, page, nil
}

func (h *Handler) mcpGetProduct(ctx context.Context, req *mcp.CallToolRequest, input GetProductInput) (*mcp.CallToolResult, any, error) {
	if input.Slug == "" {
		return nil, nil, fmt.Errorf("slug is required")
	}
	view, err := h.store.GetProduct(ctx, input.Slug, input.Size, input.Color)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, view, nil
}

func (h *Handler) mcpViewCart(ctx context.Context, req *mcp.CallToolRequest, input NoInput) (*mcp.CallToolResult, any, error) {
	snap, err := h.store.Cart(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, snap, nil
}

func (h *Handler) mcpAddToCart(ctx context.Context, req *mcp.CallToolRequest, input AddToCartInput) (*mcp.CallToolResult, any, error) {
	if input.VariantID <= 0 {
		return nil, nil, fmt.Errorf("variant_id is required")
	}
	snap, err := h.store.AddToCart(ctx, input.VariantID, input.Quantity)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, snap, nil
}

func (h *Handler) mcpUpdateCartItem(ctx context.Context, req *mcp.CallToolRequest, input UpdateCartItemInput) (*mcp.CallToolResult, any, error) {
	if input.ItemID <= 0 {
		return nil, nil, fmt.Errorf("item_id is required")
	}
	snap, err := h.store.UpdateCartItem(ctx, input.ItemID, input.Quantity)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, snap, nil
}

func (h *Handler) mcpRemoveCartItem(ctx context.Context, req *mcp.CallToolRequest, input RemoveCartItemInput) (*mcp.CallToolResult, any, error) {
	if input.ItemID <= 0 {
		return nil, nil, fmt.Errorf("item_id is required")
	}
	snap, err := h.store.RemoveCartItem(ctx, input.ItemID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, snap, nil
}

func (h *Handler) mcpListAddresses(ctx context.Context, req *mcp.CallToolRequest, input NoInput) (*mcp.CallToolResult, any, error) {
	list, err := h.store.Addresses(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, list, nil
}

func (h *Handler) mcpCheckoutSummary(ctx context.Context, req *mcp.CallToolRequest, input NoInput) (*mcp.CallToolResult, any, error) {
	s, err := h.store.CheckoutSummary(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, s, nil
}

func (h *Handler) mcpListOrders(ctx context.Context, req *mcp.CallToolRequest, input NoInput) (*mcp.CallToolResult, any, error) {
	orders, err := h.store.Orders(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, ordersOutput{Orders: orders}, nil
}

func (h *Handler) mcpListDesigns(ctx context.Context, req *mcp.CallToolRequest, input NoInput) (*mcp.CallToolResult, any, error) {
	designs, err := h.store.Designs(ctx)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, designsOutput{Designs: designs}, nil
}

// mcpError converts storefront errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	if errors.Is(err, catalog.ErrNoSelection) || errors.Is(err, catalog.ErrOutOfStock) {
		return err
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
