package main

import (
	"fmt"

	"storefront/internal/checkout"
	"storefront/internal/model"
)

// =============================================================================
// CART COMMAND
// =============================================================================

func runCart(args []string) {
	if len(args) > 0 {
		switch args[0] {
		case "add":
			runCartAdd(args[1:])
			return
		case "update":
			runCartUpdate(args[1:])
			return
		case "remove":
			runCartRemove(args[1:])
			return
		case "clear":
			runCartClear(args[1:])
			return
		}
	}

	fs := newFlagSet("cart", "[add|update|remove|clear] [options]")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	snap, err := a.Cart(ctx)
	check("Loading cart", err)
	if emit(snap) {
		return
	}
	printCart(snap, a.DeliveryPolicy())
}

func runCartAdd(args []string) {
	fs := newFlagSet("cart add", "-variant ID [-qty N]")
	var variant int64
	var qty int
	fs.Int64Var(&variant, "variant", 0, "Variant ID (required, see 'storefront product')")
	fs.IntVar(&qty, "qty", 1, "Quantity")
	parse(fs, args)

	if variant <= 0 {
		fs.Usage()
		exit(1)
	}

	ctx, a, done := setup()
	defer done()

	snap, err := a.AddToCart(ctx, variant, qty)
	check("Adding to cart", err)
	if emit(snap) {
		return
	}
	printSuccess("Added to cart")
	printCart(snap, a.DeliveryPolicy())
}

func runCartUpdate(args []string) {
	fs := newFlagSet("cart update", "-item ID -qty N")
	var item int64
	var qty int
	fs.Int64Var(&item, "item", 0, "Cart line ID (required)")
	fs.IntVar(&qty, "qty", 0, "New quantity, at least 1 (required)")
	parse(fs, args)

	if item <= 0 {
		fs.Usage()
		exit(1)
	}

	ctx, a, done := setup()
	defer done()

	snap, err := a.UpdateCartItem(ctx, item, qty)
	check("Updating cart", err)
	if emit(snap) {
		return
	}
	printSuccess("Cart updated")
	printCart(snap, a.DeliveryPolicy())
}

func runCartRemove(args []string) {
	fs := newFlagSet("cart remove", "-item ID")
	var item int64
	fs.Int64Var(&item, "item", 0, "Cart line ID (required)")
	parse(fs, args)

	if item <= 0 {
		fs.Usage()
		exit(1)
	}

	ctx, a, done := setup()
	defer done()

	snap, err := a.RemoveCartItem(ctx, item)
	check("Removing from cart", err)
	if emit(snap) {
		return
	}
	printSuccess("Removed from cart")
	printCart(snap, a.DeliveryPolicy())
}

func runCartClear(args []string) {
	fs := newFlagSet("cart clear", "[options]")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	snap, err := a.Carts.ClearCart(ctx)
	check("Clearing cart", err)
	if emit(snap) {
		return
	}
	printSuccess("Cart cleared")
}

func printCart(snap *model.CartSnapshot, policy checkout.DeliveryPolicy) {
	if len(snap.Items) == 0 {
		printInfo("Cart is empty")
		return
	}
	for _, line := range snap.Items {
		stock := ""
		if !line.VariantDetail.InStock {
			stock = colorRed + " (out of stock)" + colorReset
		}
		fmt.Printf("  [%d] %s%s%s %s / %s x%d  %s%s\n",
			line.ID, colorBold, line.ProductName, colorReset,
			line.VariantDetail.Size, line.VariantDetail.Color, line.Quantity,
			rupees(line.LineTotal), stock)
	}
	printSummary(checkout.Summarize(snap, policy))
}

func printSummary(s checkout.Summary) {
	fmt.Printf("  Subtotal (%d items): %s\n", s.Items, rupees(s.Subtotal))
	if s.FreeDelivery {
		fmt.Printf("  Delivery: %sFREE%s\n", colorGreen, colorReset)
	} else {
		fmt.Printf("  Delivery: %s\n", rupees(s.Delivery))
	}
	fmt.Printf("  %sTotal: %s%s\n", colorBold, rupees(s.Total), colorReset)
}
