package main

import (
	"fmt"
	"strings"

	"storefront/internal/adapter"
	"storefront/internal/catalog"
	"storefront/internal/model"
)

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

func runProducts(args []string) {
	fs := newFlagSet("products", "[filters]")
	var f catalog.Filter
	fs.StringVar(&f.Search, "search", "", "Search text")
	fs.StringVar(&f.Category, "category", "", "Category slug")
	fs.StringVar(&f.Gender, "gender", "", "MEN, WOMEN or UNISEX")
	fs.StringVar(&f.Brand, "brand", "", "Brand")
	fs.Int64Var(&f.MinPrice, "min", 0, "Minimum price in rupees")
	fs.Int64Var(&f.MaxPrice, "max", 0, "Maximum price in rupees")
	fs.IntVar(&f.MinDiscount, "discount", 0, "Minimum discount percent")
	fs.StringVar(&f.Color, "color", "", "Variant color")
	fs.StringVar(&f.Size, "size", "", "Variant size")
	fs.StringVar(&f.Ordering, "sort", catalog.DefaultOrdering, "Ordering: price, -price, name, discount_percent, -created_at")
	fs.IntVar(&f.Page, "page", 1, "Page number")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	page, err := a.SearchProducts(ctx, f)
	check("Searching products", err)

	if emit(page) {
		return
	}
	printSummaries(page.Results)
	if !quiet {
		more := ""
		if page.Next != nil {
			more = fmt.Sprintf(", next: -page %d", f.Page+1)
		}
		printInfo("%d products%s", page.Count, more)
	}
}

func runFeatured(args []string) {
	fs := newFlagSet("featured", "[options]")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	products, err := a.Catalog.Featured(ctx)
	check("Loading featured products", err)
	if emit(products) {
		return
	}
	printSummaries(products)
}

func runCategories(args []string) {
	fs := newFlagSet("categories", "[options]")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	cats, err := a.Catalog.Categories(ctx)
	check("Loading categories", err)
	if emit(cats) {
		return
	}
	for _, c := range cats {
		fmt.Printf("  %-24s %s%s (%d)%s\n", c.Slug, colorGray, c.Name, c.ProductCount, colorReset)
	}
}

func runProduct(args []string) {
	fs := newFlagSet("product", "-slug SLUG [-size SIZE] [-color COLOR]")
	var slug, size, color string
	fs.StringVar(&slug, "slug", "", "Product slug (required)")
	fs.StringVar(&size, "size", "", "Selected size")
	fs.StringVar(&color, "color", "", "Selected color")
	parse(fs, args)

	if slug == "" {
		fs.Usage()
		exit(1)
	}

	ctx, a, done := setup()
	defer done()

	view, err := a.GetProduct(ctx, slug, size, color)
	check("Loading product", err)
	if emit(view) {
		return
	}
	printProductView(view)
}

func runReview(args []string) {
	fs := newFlagSet("review", "-slug SLUG -rating 1..5 [-title T] [-comment C]")
	var slug string
	var in catalog.ReviewInput
	fs.StringVar(&slug, "slug", "", "Product slug (required)")
	fs.IntVar(&in.Rating, "rating", 0, "Rating from 1 to 5 (required)")
	fs.StringVar(&in.Title, "title", "", "Review title")
	fs.StringVar(&in.Comment, "comment", "", "Review text")
	parse(fs, args)

	if slug == "" {
		fs.Usage()
		exit(1)
	}

	ctx, a, done := setup()
	defer done()

	review, err := a.Catalog.AddReview(ctx, slug, in)
	check("Posting review", err)
	if emit(review) {
		return
	}
	printSuccess("Review posted (%d★)", review.Rating)
}

func runWishlist(args []string) {
	fs := newFlagSet("wishlist", "[-add PRODUCT_ID | -remove ITEM_ID]")
	var add, remove int64
	fs.Int64Var(&add, "add", 0, "Product ID to add")
	fs.Int64Var(&remove, "remove", 0, "Wishlist item ID to remove")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	switch {
	case add > 0:
		item, err := a.Catalog.AddToWishlist(ctx, add)
		check("Adding to wishlist", err)
		if !emit(item) {
			printSuccess("Added %s to wishlist", item.Product.Name)
		}
		return
	case remove > 0:
		check("Removing from wishlist", a.Catalog.RemoveFromWishlist(ctx, remove))
		printSuccess("Removed from wishlist")
		return
	}

	items, err := a.Catalog.Wishlist(ctx)
	check("Loading wishlist", err)
	if emit(items) {
		return
	}
	if len(items) == 0 {
		printInfo("Wishlist is empty")
		return
	}
	for _, it := range items {
		fmt.Printf("  [%d] %s %s(%s)%s %s\n", it.ID, it.Product.Name, colorGray, it.Product.Slug, colorReset, rupees(it.Product.SellingPrice))
	}
}

// =============================================================================
// CATALOG OUTPUT
// =============================================================================

func printSummaries(products []model.ProductSummary) {
	for _, p := range products {
		price := rupees(p.SellingPrice)
		if p.DiscountPercent > 0 {
			price = fmt.Sprintf("%s %s%s -%d%%%s", price, colorGray, rupees(p.Price), p.DiscountPercent, colorReset)
		}
		fmt.Printf("  %s%-28s%s %-12s %s\n", colorBold, p.Slug, colorReset, p.Brand, price)
	}
}

func printProductView(view *adapter.ProductView) {
	p := view.Product
	fmt.Printf("%s%s%s  %s\n", colorBold, p.Name, colorReset, p.Brand)
	fmt.Printf("  Price: %s%s%s", colorGreen, rupees(p.SellingPrice), colorReset)
	if p.DiscountPercent > 0 {
		fmt.Printf(" %s(was %s, -%d%%)%s", colorGray, rupees(p.Price), p.DiscountPercent, colorReset)
	}
	fmt.Println()
	if p.ReviewCount > 0 {
		fmt.Printf("  Rating: %.1f (%d reviews)\n", p.AvgRating, p.ReviewCount)
	}

	sizes := make([]string, 0, len(view.Selection.Sizes))
	for _, s := range view.Selection.Sizes {
		label := s.Size
		if !s.InStock {
			label += "(sold out)"
		}
		sizes = append(sizes, label)
	}
	colors := make([]string, 0, len(view.Selection.Colors))
	for _, c := range view.Selection.Colors {
		colors = append(colors, c.Color)
	}
	fmt.Printf("  Sizes:  %s\n", strings.Join(sizes, ", "))
	fmt.Printf("  Colors: %s\n", strings.Join(colors, ", "))

	if v := view.Selection.Variant; v != nil {
		fmt.Printf("  Variant: %s%d%s (%s / %s, SKU %s)\n", colorCyan, v.ID, colorReset, v.Size, v.Color, v.SKU)
	}
	if view.Unavailable != "" {
		printWarning("%s", view.Unavailable)
	}
}
