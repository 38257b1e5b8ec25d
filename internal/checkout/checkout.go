// Package checkout drives order placement and payment.
//
// A checkout attempt runs order creation, payment intent creation, external
// capture and server-side verification, strictly in that order. Only one
// attempt may be in flight at a time.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"storefront/internal/api"
	"storefront/internal/cart"
	"storefront/internal/model"
)

const (
	pathCreateOrder   = "/orders/create/"
	pathOrders        = "/orders/"
	pathCreatePayment = "/payments/create/"
	pathVerifyPayment = "/payments/verify/"

	defaultMerchantName = "fella.io"
	defaultThemeColor   = "#000000"
)

var (
	// ErrNoAddress means no delivery address is selected.
	ErrNoAddress = errors.New("select a delivery address")

	// ErrEmptyCart means there is nothing to order.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInProgress means another checkout attempt holds the guard.
	ErrInProgress = errors.New("a checkout is already in progress")

	// ErrDismissed means the buyer closed the payment surface.
	// The order stays PENDING on the server; the next attempt starts over.
	ErrDismissed = errors.New("payment dismissed")

	// ErrIncompleteProof means the capture surface returned a proof with missing fields.
	ErrIncompleteProof = errors.New("payment proof is incomplete")
)

// Step names the phase an attempt failed in.
type Step string

const (
	StepCreateOrder  Step = "create order"
	StepCreateIntent Step = "create payment"
	StepCapture      Step = "capture payment"
)

// StepError reports a failed phase. Order is set once the order exists.
type StepError struct {
	Step  Step
	Order *model.Order
	Err   error
}

func (e *StepError) Error() string {
	if e.Order != nil {
		return fmt.Sprintf("%s (order %s): %v", e.Step, e.Order.OrderID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Receipt records a checkout attempt's artifacts.
type Receipt struct {
	Order  model.Order         `json:"order"`
	Intent model.PaymentIntent `json:"intent"`
	Proof  model.PaymentProof  `json:"proof"`
}

// VerificationError means the gateway returned a proof but the store did not
// confirm it. The buyer may have been charged. Receipt holds what is needed to
// call Verify again.
type VerificationError struct {
	Receipt Receipt
	Err     error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("order %s: %v", e.Receipt.Order.OrderID, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Options configures the orchestrator.
type Options struct {
	MerchantName string // shown on the gateway page
	ThemeColor   string
	Logger       *slog.Logger
}

// Orchestrator runs checkout attempts.
type Orchestrator struct {
	client    *api.Client
	cart      *cart.Controller
	addresses *AddressBook
	capturer  Capturer
	logger    *slog.Logger

	merchantName string
	themeColor   string

	guard  *semaphore.Weighted
	newKey func() string
}

// New creates an orchestrator.
func New(client *api.Client, carts *cart.Controller, addresses *AddressBook, capturer Capturer, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	merchant := opts.MerchantName
	if merchant == "" {
		merchant = defaultMerchantName
	}
	theme := opts.ThemeColor
	if theme == "" {
		theme = defaultThemeColor
	}
	return &Orchestrator{
		client:       client,
		cart:         carts,
		addresses:    addresses,
		capturer:     capturer,
		logger:       logger,
		merchantName: merchant,
		themeColor:   theme,
		guard:        semaphore.NewWeighted(1),
		newKey:       uuid.NewString,
	}
}

// Addresses returns the address book the orchestrator reads the selection from.
func (o *Orchestrator) Addresses() *AddressBook {
	return o.addresses
}

// PlaceOrder runs one checkout attempt for the current cart and the selected
// address.
func (o *Orchestrator) PlaceOrder(ctx context.Context) (*Receipt, error) {
	addr := o.addresses.Selected()
	if addr == nil {
		return nil, ErrNoAddress
	}

	snap := o.cart.Snapshot()
	if snap == nil {
		var err error
		if snap, err = o.cart.FetchCart(ctx); err != nil {
			return nil, err
		}
	}
	if len(snap.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if !o.guard.TryAcquire(1) {
		return nil, ErrInProgress
	}
	defer o.guard.Release(1)

	log := o.logger.With(slog.Int64("address_id", addr.ID))

	order, err := o.createOrder(ctx, addr.ID)
	if err != nil {
		return nil, &StepError{Step: StepCreateOrder, Err: err}
	}
	log = log.With(slog.String("order", order.OrderID))
	log.Info("order created", slog.String("total", order.TotalAmount.String()))

	intent, err := o.createIntent(ctx, order.ID)
	if err != nil {
		log.Warn("payment intent failed, order left pending", slog.String("error", err.Error()))
		return nil, &StepError{Step: StepCreateIntent, Order: order, Err: err}
	}

	outcome, err := o.capturer.Capture(ctx, CaptureRequest{
		Intent:       *intent,
		MerchantName: o.merchantName,
		Description:  "Order " + order.OrderID,
		ThemeColor:   o.themeColor,
		Prefill:      Prefill{Name: addr.FullName, Contact: addr.Phone},
	})
	if err != nil {
		return nil, &StepError{Step: StepCapture, Order: order, Err: err}
	}
	if outcome.Dismissed {
		log.Info("payment dismissed")
		return nil, ErrDismissed
	}
	if !outcome.Proof.Complete() {
		return nil, &StepError{Step: StepCapture, Order: order, Err: ErrIncompleteProof}
	}

	receipt := &Receipt{Order: *order, Intent: *intent, Proof: outcome.Proof}
	if err := o.Verify(ctx, outcome.Proof); err != nil {
		log.Error("payment verification failed", slog.String("payment_id", outcome.Proof.PaymentID), slog.String("error", err.Error()))
		return receipt, &VerificationError{Receipt: *receipt, Err: err}
	}
	log.Info("payment verified")

	if _, err := o.cart.FetchCart(ctx); err != nil {
		log.Warn("refreshing cart after payment", slog.String("error", err.Error()))
	}
	return receipt, nil
}

// Verify submits a payment proof to the store. It can be called again with the
// proof from a VerificationError.
func (o *Orchestrator) Verify(ctx context.Context, proof model.PaymentProof) error {
	if !proof.Complete() {
		return model.NewPaymentVerificationError(ErrIncompleteProof)
	}
	err := o.client.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Path:   pathVerifyPayment,
		Body:   proof,
	}, nil)
	if err != nil {
		return model.NewPaymentVerificationError(err)
	}
	return nil
}

// Orders lists the buyer's past orders, newest first as the server sorts them.
func (o *Orchestrator) Orders(ctx context.Context) ([]model.Order, error) {
	resp, err := o.client.Send(ctx, &api.Request{Method: http.MethodGet, Path: pathOrders})
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return model.DecodeList[model.Order](resp.Body)
}

type createOrderRequest struct {
	AddressID int64 `json:"address_id"`
}

type createIntentRequest struct {
	OrderID int64 `json:"order_id"`
}

func (o *Orchestrator) createOrder(ctx context.Context, addressID int64) (*model.Order, error) {
	var order model.Order
	err := o.client.Do(ctx, &api.Request{
		Method:         http.MethodPost,
		Path:           pathCreateOrder,
		Body:           createOrderRequest{AddressID: addressID},
		IdempotencyKey: o.newKey(),
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *Orchestrator) createIntent(ctx context.Context, orderID int64) (*model.PaymentIntent, error) {
	var intent model.PaymentIntent
	err := o.client.Do(ctx, &api.Request{
		Method:         http.MethodPost,
		Path:           pathCreatePayment,
		Body:           createIntentRequest{OrderID: orderID},
		IdempotencyKey: o.newKey(),
	}, &intent)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}
