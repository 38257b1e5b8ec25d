// Package app wires the storefront client together from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"storefront/internal/adapter"
	"storefront/internal/api"
	"storefront/internal/capture"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/credstore"
	"storefront/internal/customizer"
	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/transport"
)

// Version is reported in the Storefront-Client header.
const Version = "1.0.0"

// Options overrides the pieces New would otherwise build from Config.
type Options struct {
	Config     *config.Config
	Store      credstore.Store   // nil opens the file store in Config.StateDir
	HTTPClient *http.Client      // nil builds one from Config.Storefront
	Capturer   checkout.Capturer // nil uses the browser capturer
	Logger     *slog.Logger
	Notice     io.Writer // where the capture page URL is printed when no browser opens
}

// App holds the wired controllers. It implements adapter.Storefront.
type App struct {
	Client    *api.Client
	Session   *session.Controller
	Carts     *cart.Controller
	Catalog   *catalog.Service
	Book      *checkout.AddressBook
	Checkout  *checkout.Orchestrator
	Designer  *customizer.Service

	policy      checkout.DeliveryPolicy
	logger      *slog.Logger
	unsubscribe func()
}

var _ adapter.Storefront = (*App)(nil)

// New builds an App.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store := opts.Store
	if store == nil {
		fs, err := credstore.NewFileStore(cfg.StateDir)
		if err != nil {
			return nil, fmt.Errorf("opening credential store: %w", err)
		}
		store = fs
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: transport.New(transport.Options{ChromeTLS: cfg.Storefront.ChromeTLS}),
			Timeout:   cfg.Storefront.Timeout,
		}
	}

	client, err := api.New(api.Options{
		BaseURL:       cfg.Storefront.APIURL,
		Store:         store,
		HTTPClient:    httpClient,
		Logger:        logger,
		ClientName:    "storefront-go",
		ClientVersion: Version,
		MinAPIVersion: cfg.Storefront.MinAPIVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	sess, err := session.New(client, logger)
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}

	capturer := opts.Capturer
	if capturer == nil {
		capturer = capture.New(capture.Options{Logger: logger, Notice: opts.Notice})
	}

	carts := cart.New(client, logger)
	book := checkout.NewAddressBook(client)
	a := &App{
		Client:    client,
		Session:   sess,
		Carts:     carts,
		Catalog:   catalog.New(client),
		Book:      book,
		Checkout: checkout.New(client, carts, book, capturer, checkout.Options{
			MerchantName: cfg.Storefront.MerchantName,
			ThemeColor:   cfg.Storefront.ThemeColor,
			Logger:       logger,
		}),
		Designer: customizer.New(client),
		policy: checkout.DeliveryPolicy{
			FreeAbove: cfg.Storefront.FreeDeliveryAbove,
			Fee:       cfg.Storefront.DeliveryFee,
		},
		logger: logger,
	}

	// Buyer-scoped state does not survive the session.
	a.unsubscribe = sess.Subscribe(func(ev session.Event) {
		if ev.State == session.Anonymous {
			carts.Reset()
			book.Reset()
		}
	})
	return a, nil
}

// Close detaches the session listener.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// DeliveryPolicy returns the configured delivery rule.
func (a *App) DeliveryPolicy() checkout.DeliveryPolicy {
	return a.policy
}

// SearchProducts lists one page of the catalog.
func (a *App) SearchProducts(ctx context.Context, f catalog.Filter) (*model.Page[model.ProductSummary], error) {
	return a.Catalog.Products(ctx, f)
}

// GetProduct fetches a product and resolves the size/color selection.
func (a *App) GetProduct(ctx context.Context, slug, size, color string) (*adapter.ProductView, error) {
	p, err := a.Catalog.Product(ctx, slug)
	if err != nil {
		return nil, err
	}
	return adapter.NewProductView(p, size, color), nil
}

// Cart fetches the server cart.
func (a *App) Cart(ctx context.Context) (*model.CartSnapshot, error) {
	return a.Carts.FetchCart(ctx)
}

// AddToCart adds a variant to the cart.
func (a *App) AddToCart(ctx context.Context, variantID int64, quantity int) (*model.CartSnapshot, error) {
	return a.Carts.AddToCart(ctx, variantID, quantity)
}

// UpdateCartItem sets a cart line's quantity.
func (a *App) UpdateCartItem(ctx context.Context, lineID int64, quantity int) (*model.CartSnapshot, error) {
	return a.Carts.UpdateItem(ctx, lineID, quantity)
}

// RemoveCartItem removes a cart line.
func (a *App) RemoveCartItem(ctx context.Context, lineID int64) (*model.CartSnapshot, error) {
	return a.Carts.RemoveItem(ctx, lineID)
}

// Addresses loads the address book.
func (a *App) Addresses(ctx context.Context) (*adapter.AddressList, error) {
	addrs, err := a.Book.Load(ctx)
	if err != nil {
		return nil, err
	}
	list := &adapter.AddressList{Addresses: addrs}
	if sel := a.Book.Selected(); sel != nil {
		list.SelectedID = sel.ID
	}
	return list, nil
}

// CheckoutSummary prices the cart, fetching it first if nothing is loaded.
func (a *App) CheckoutSummary(ctx context.Context) (*checkout.Summary, error) {
	snap := a.Carts.Snapshot()
	if snap == nil {
		var err error
		if snap, err = a.Carts.FetchCart(ctx); err != nil {
			return nil, err
		}
	}
	s := checkout.Summarize(snap, a.policy)
	return &s, nil
}

// Orders lists past orders.
func (a *App) Orders(ctx context.Context) ([]model.Order, error) {
	return a.Checkout.Orders(ctx)
}

// Designs lists submitted custom designs.
func (a *App) Designs(ctx context.Context) ([]model.Design, error) {
	return a.Designer.Designs(ctx)
}
