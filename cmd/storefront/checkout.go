package main

import (
	"errors"
	"fmt"
	"os"

	"storefront/internal/checkout"
	"storefront/internal/model"
)

// =============================================================================
// ADDRESSES COMMAND
// =============================================================================

func runAddresses(args []string) {
	fs := newFlagSet("addresses", "[-add -name N -phone P -pincode C -line1 L -city C -state S]")
	var add bool
	var addr model.Address
	fs.BoolVar(&add, "add", false, "Add a new address")
	fs.StringVar(&addr.FullName, "name", "", "Full name")
	fs.StringVar(&addr.Phone, "phone", "", "Phone number")
	fs.StringVar(&addr.Pincode, "pincode", "", "Pincode")
	fs.StringVar(&addr.AddressLine1, "line1", "", "Address line 1")
	fs.StringVar(&addr.AddressLine2, "line2", "", "Address line 2")
	fs.StringVar(&addr.City, "city", "", "City")
	fs.StringVar(&addr.State, "state", "", "State")
	fs.BoolVar(&addr.IsDefault, "default", false, "Make this the default address")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	if add {
		created, err := a.Book.Add(ctx, addr)
		check("Adding address", err)
		if emit(created) {
			return
		}
		printSuccess("Address %d added", created.ID)
		return
	}

	list, err := a.Addresses(ctx)
	check("Loading addresses", err)
	if emit(list) {
		return
	}
	if len(list.Addresses) == 0 {
		printInfo("No saved addresses (add one with 'storefront addresses -add')")
		return
	}
	for _, ad := range list.Addresses {
		marker := " "
		if ad.ID == list.SelectedID {
			marker = colorGreen + "*" + colorReset
		}
		fmt.Printf(" %s[%d] %s, %s, %s %s - %s\n", marker, ad.ID, ad.FullName, ad.AddressLine1, ad.City, ad.Pincode, ad.Phone)
	}
}

// =============================================================================
// CHECKOUT / VERIFY / ORDERS
// =============================================================================

func runCheckout(args []string) {
	fs := newFlagSet("checkout", "[-address ID]")
	var addressID int64
	fs.Int64Var(&addressID, "address", 0, "Deliver to this address instead of the default")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	_, err := a.Book.Load(ctx)
	check("Loading addresses", err)
	if addressID > 0 {
		check("Selecting address", a.Book.Select(addressID))
	}

	summary, err := a.CheckoutSummary(ctx)
	check("Loading cart", err)
	if !quiet && !jsonOut {
		printSummary(*summary)
		if sel := a.Book.Selected(); sel != nil {
			printInfo("Delivering to %s, %s %s", sel.FullName, sel.City, sel.Pincode)
		}
		printInfo("Opening payment page in your browser…")
	}

	receipt, err := a.Checkout.PlaceOrder(ctx)

	var verr *checkout.VerificationError
	switch {
	case err == nil:
		if emit(receipt) {
			return
		}
		printSuccess("Order %s placed and paid", receipt.Order.OrderID)
	case errors.Is(err, checkout.ErrDismissed):
		printWarning("Payment cancelled. Your cart is unchanged; run 'storefront checkout' to try again")
		exit(1)
	case errors.As(err, &verr):
		printError("Payment for order %s could not be verified: %s", verr.Receipt.Order.OrderID, describe(err))
		p := verr.Receipt.Proof
		fmt.Fprintf(os.Stderr, "  You may have been charged. Retry verification with:\n")
		fmt.Fprintf(os.Stderr, "  storefront verify -order %s -payment %s -signature %s\n", p.GatewayOrderID, p.PaymentID, p.Signature)
		exit(2)
	default:
		check("Checkout failed", err)
	}
}

func runVerify(args []string) {
	fs := newFlagSet("verify", "-order GATEWAY_ORDER -payment PAYMENT -signature SIG")
	var proof model.PaymentProof
	fs.StringVar(&proof.GatewayOrderID, "order", "", "Gateway order ID (required)")
	fs.StringVar(&proof.PaymentID, "payment", "", "Gateway payment ID (required)")
	fs.StringVar(&proof.Signature, "signature", "", "Payment signature (required)")
	parse(fs, args)

	if !proof.Complete() {
		fs.Usage()
		exit(1)
	}

	ctx, a, done := setup()
	defer done()

	check("Verification failed", a.Checkout.Verify(ctx, proof))
	printSuccess("Payment verified")
}

func runOrders(args []string) {
	fs := newFlagSet("orders", "[options]")
	parse(fs, args)

	ctx, a, done := setup()
	defer done()

	orders, err := a.Orders(ctx)
	check("Loading orders", err)
	if emit(orders) {
		return
	}
	if len(orders) == 0 {
		printInfo("No orders yet")
		return
	}
	for _, o := range orders {
		status := string(o.Status)
		switch o.Status {
		case model.OrderConfirmed:
			status = colorGreen + status + colorReset
		case model.OrderPending:
			status = colorYellow + status + colorReset
		}
		when := ""
		if o.CreatedAt != nil {
			when = o.CreatedAt.Local().Format("2006-01-02")
		}
		fmt.Printf("  %s%-14s%s %-10s %s %s\n", colorCyan, o.OrderID, colorReset, when, rupees(o.TotalAmount), status)
	}
}
