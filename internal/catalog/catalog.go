// Package catalog reads products, categories and reviews, manages the
// wishlist, and resolves size/color selections to variants.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"

	"storefront/internal/api"
	"storefront/internal/model"
)

const (
	pathProducts   = "/products/"
	pathFeatured   = "/products/featured/"
	pathCategories = "/products/categories/"
	pathWishlist   = "/products/wishlist/"

	// DefaultOrdering is newest first.
	DefaultOrdering = "-created_at"
)

// Filter narrows a product listing. Zero values are omitted from the query.
type Filter struct {
	Search      string `url:"search,omitempty"`
	Category    string `url:"category,omitempty"` // category slug
	Gender      string `url:"gender,omitempty"`
	Brand       string `url:"brand,omitempty"`
	MinPrice    int64  `url:"min_price,omitempty"` // whole rupees
	MaxPrice    int64  `url:"max_price,omitempty"`
	MinDiscount int    `url:"min_discount,omitempty"`
	Color       string `url:"color,omitempty"`
	Size        string `url:"size,omitempty"`
	Ordering    string `url:"ordering,omitempty"` // price, -price, name, discount_percent, created_at
	Page        int    `url:"page,omitempty"`
}

// ReviewInput is a new product review.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title,omitempty"`
	Comment string `json:"comment,omitempty"`
}

type wishlistAdd struct {
	ProductID int64 `json:"product_id"`
}

// Service is the catalog API.
type Service struct {
	client *api.Client
}

// New creates a catalog service.
func New(client *api.Client) *Service {
	return &Service{client: client}
}

// Products lists products. Ordering defaults to newest first.
func (s *Service) Products(ctx context.Context, f Filter) (*model.Page[model.ProductSummary], error) {
	if f.Ordering == "" {
		f.Ordering = DefaultOrdering
	}
	if f.MinPrice > 0 && f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return nil, model.NewValidationError("max_price", "must not be below min_price")
	}

	values, err := query.Values(f)
	if err != nil {
		return nil, fmt.Errorf("encoding filter: %w", err)
	}

	resp, err := s.get(ctx, pathProducts, values)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	page, err := model.DecodePage[model.ProductSummary](resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing products: %w", err)
	}
	return page, nil
}

// Featured lists featured products.
func (s *Service) Featured(ctx context.Context) ([]model.ProductSummary, error) {
	resp, err := s.get(ctx, pathFeatured, nil)
	if err != nil {
		return nil, fmt.Errorf("listing featured products: %w", err)
	}
	return model.DecodeList[model.ProductSummary](resp.Body)
}

// Categories lists active categories.
func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	resp, err := s.get(ctx, pathCategories, nil)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return model.DecodeList[model.Category](resp.Body)
}

// Product fetches product detail with its ordered variants.
func (s *Service) Product(ctx context.Context, slug string) (*model.Product, error) {
	if slug == "" {
		return nil, model.NewValidationError("slug", "is required")
	}
	var p model.Product
	if err := s.client.Do(ctx, &api.Request{Method: http.MethodGet, Path: productPath(slug)}, &p); err != nil {
		return nil, fmt.Errorf("fetching product %s: %w", slug, err)
	}
	return &p, nil
}

// AddReview posts a review. Ratings outside 1..5 are rejected locally.
func (s *Service) AddReview(ctx context.Context, slug string, in ReviewInput) (*model.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, model.NewValidationError("rating", "must be between 1 and 5")
	}
	var r model.Review
	err := s.client.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Path:   productPath(slug) + "reviews/",
		Body:   in,
	}, &r)
	if err != nil {
		return nil, fmt.Errorf("adding review: %w", err)
	}
	return &r, nil
}

// Wishlist lists the signed-in user's saved products.
func (s *Service) Wishlist(ctx context.Context) ([]model.WishlistItem, error) {
	resp, err := s.get(ctx, pathWishlist, nil)
	if err != nil {
		return nil, fmt.Errorf("listing wishlist: %w", err)
	}
	return model.DecodeList[model.WishlistItem](resp.Body)
}

// AddToWishlist saves a product.
func (s *Service) AddToWishlist(ctx context.Context, productID int64) (*model.WishlistItem, error) {
	var item model.WishlistItem
	err := s.client.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Path:   pathWishlist,
		Body:   wishlistAdd{ProductID: productID},
	}, &item)
	if err != nil {
		return nil, fmt.Errorf("adding to wishlist: %w", err)
	}
	return &item, nil
}

// RemoveFromWishlist deletes a wishlist entry by its own id.
func (s *Service) RemoveFromWishlist(ctx context.Context, id int64) error {
	err := s.client.Do(ctx, &api.Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("%s%d/", pathWishlist, id),
	}, nil)
	if err != nil {
		return fmt.Errorf("removing from wishlist: %w", err)
	}
	return nil
}

func (s *Service) get(ctx context.Context, path string, q url.Values) (*api.Response, error) {
	resp, err := s.client.Send(ctx, &api.Request{Method: http.MethodGet, Path: path, Query: q})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

func productPath(slug string) string {
	return pathProducts + url.PathEscape(slug) + "/"
}
