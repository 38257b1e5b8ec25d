// Package model defines the data structures exchanged with the storefront API.
package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// === Session ===

// CredentialPair identifies an authenticated session.
// Replaced wholesale on login; only Access changes on refresh.
type CredentialPair struct {
	Access  string `json:"access" yaml:"access"`
	Refresh string `json:"refresh" yaml:"refresh"`
}

// UserProfile is the account identity cached for display.
// Never computed locally; only replaced by a server response.
type UserProfile struct {
	ID        int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Username  string `json:"username" yaml:"username"`
	Email     string `json:"email" yaml:"email"`
	FirstName string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// DisplayName returns "First Last", falling back to the username.
func (p UserProfile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.Username
	}
}

// === Cart ===

// CartSnapshot is the server-computed representation of the cart.
// Always replaced in full by the response to a mutation.
type CartSnapshot struct {
	ID         int64      `json:"id,omitempty"`
	Items      []CartLine `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice Money      `json:"total_price"`
}

// EmptyCart is the snapshot the server reports after a clear.
func EmptyCart() *CartSnapshot {
	return &CartSnapshot{Items: []CartLine{}}
}

// Clone returns a deep copy so callers cannot patch the live snapshot.
func (c *CartSnapshot) Clone() *CartSnapshot {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = append([]CartLine(nil), c.Items...)
	return &out
}

// CartLine is a single variant in the cart. Quantity is always >= 1.
type CartLine struct {
	ID            int64         `json:"id"`
	VariantID     int64         `json:"variant"`
	VariantDetail VariantDetail `json:"variant_detail"`
	ProductName   string        `json:"product_name"`
	ProductBrand  string        `json:"product_brand"`
	ProductSlug   string        `json:"product_slug"`
	ProductImage  string        `json:"product_image,omitempty"`
	Quantity      int           `json:"quantity"`
	LineTotal     Money         `json:"line_total"`
}

// VariantDetail is the variant summary embedded in cart lines.
type VariantDetail struct {
	Size    string `json:"size"`
	Color   string `json:"color"`
	InStock bool   `json:"in_stock"`
}

// === Catalog ===

// Category groups products (T-Shirts, Jeans, ...).
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description,omitempty"`
	Image        string `json:"image,omitempty"`
	ProductCount int    `json:"product_count"`
}

// ProductImage is one gallery image.
type ProductImage struct {
	ID        int64  `json:"id"`
	Image     string `json:"image"`
	AltText   string `json:"alt_text,omitempty"`
	IsPrimary bool   `json:"is_primary"`
	Order     int    `json:"order"`
}

// ColorSwatch is a distinct color advertised on listing pages.
type ColorSwatch struct {
	Color string `json:"color"`
	Hex   string `json:"hex,omitempty"`
}

// ProductSummary is the lightweight listing representation.
type ProductSummary struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Slug            string        `json:"slug"`
	Brand           string        `json:"brand"`
	CategoryName    string        `json:"category_name"`
	Gender          string        `json:"gender"`
	Price           Money         `json:"price"`
	DiscountPercent int           `json:"discount_percent"`
	SellingPrice    Money         `json:"selling_price"`
	PrimaryImage    *ProductImage `json:"primary_image,omitempty"`
	AvgRating       float64       `json:"avg_rating"`
	ReviewCount     int           `json:"review_count"`
	AvailableColors []ColorSwatch `json:"available_colors"`
	IsFeatured      bool          `json:"is_featured"`
}

// Product is the full detail representation with its ordered variant list.
type Product struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	Brand           string         `json:"brand"`
	Description     string         `json:"description"`
	Category        *Category      `json:"category,omitempty"`
	Gender          string         `json:"gender"`
	Price           Money          `json:"price"`
	DiscountPercent int            `json:"discount_percent"`
	SellingPrice    Money          `json:"selling_price"`
	Images          []ProductImage `json:"images"`
	Variants        []Variant      `json:"variants"`
	Reviews         []Review       `json:"reviews"`
	AvgRating       float64        `json:"avg_rating"`
	ReviewCount     int            `json:"review_count"`
	IsFeatured      bool           `json:"is_featured"`
	CreatedAt       *time.Time     `json:"created_at,omitempty"`
}

// Variant is a purchasable (size, color) combination, unique within its product.
type Variant struct {
	ID       int64  `json:"id"`
	Size     string `json:"size"`
	Color    string `json:"color"`
	ColorHex string `json:"color_hex,omitempty"`
	Stock    int    `json:"stock"`
	SKU      string `json:"sku"`
	InStock  bool   `json:"in_stock"`
}

// Review is a product rating.
type Review struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Rating    int        `json:"rating"`
	Title     string     `json:"title,omitempty"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// WishlistItem is a saved product.
type WishlistItem struct {
	ID      int64          `json:"id"`
	Product ProductSummary `json:"product"`
	AddedAt *time.Time     `json:"added_at,omitempty"`
}

// Page is the paginated list envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// DecodePage accepts either a paginated envelope or a bare JSON array.
func DecodePage[T any](data []byte) (*Page[T], error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []T
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return &Page[T]{Count: len(list), Results: list}, nil
	}

	var page Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	return &page, nil
}

// DecodeList is DecodePage without the envelope.
func DecodeList[T any](data []byte) ([]T, error) {
	page, err := DecodePage[T](data)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// === Checkout ===

// Address is a delivery address record.
type Address struct {
	ID           int64  `json:"id,omitempty"`
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	Pincode      string `json:"pincode"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	IsDefault    bool   `json:"is_default"`
}

// OrderStatus is a server-driven order state.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Order is write-once from the client's perspective.
type Order struct {
	ID          int64       `json:"id"`
	OrderID     string      `json:"order_id"` // Human-readable reference
	Status      OrderStatus `json:"status"`
	TotalAmount Money       `json:"total_amount"`
	Items       []OrderItem `json:"items,omitempty"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
}

// OrderItem is a line captured at order time.
type OrderItem struct {
	ProductName  string `json:"product_name"`
	ProductBrand string `json:"product_brand"`
	Size         string `json:"size"`
	Color        string `json:"color"`
	Quantity     int    `json:"quantity"`
	Price        Money  `json:"price"`
	ImageURL     string `json:"image_url,omitempty"`
}

// PaymentIntent carries the gateway parameters needed to open the capture step.
// Amount is in minor units as issued by the gateway.
type PaymentIntent struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	Key            string `json:"razorpay_key"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// PaymentProof is what the capture surface hands back on success.
type PaymentProof struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

// Complete reports whether all three proof fields are present.
func (p PaymentProof) Complete() bool {
	return p.GatewayOrderID != "" && p.PaymentID != "" && p.Signature != ""
}

// === Custom designs ===

// Design is a submitted custom T-shirt print. Price is computed by the server.
type Design struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	DesignImage string     `json:"design_image"`
	TShirtColor string     `json:"tshirt_color"`
	Placement   string     `json:"placement"`
	Size        string     `json:"size"`
	Quantity    int        `json:"quantity"`
	TextOverlay string     `json:"text_overlay,omitempty"`
	TextColor   string     `json:"text_color,omitempty"`
	Price       Money      `json:"price"`
	IsOrdered   bool       `json:"is_ordered"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}
