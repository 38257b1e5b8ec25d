package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// handleSearchProducts lists catalog products.
// GET /products?search=&category=&...
func (h *Handler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}

	page, err := h.store.SearchProducts(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// handleGetProduct returns a product and its variant selection.
// GET /products/{slug}?size=&color=
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.store.GetProduct(r.Context(), r.PathValue("slug"), q.Get("size"), q.Get("color"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// handleViewCart fetches the cart.
// GET /cart
func (h *Handler) handleViewCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Cart(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

type addItemBody struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

// handleAddToCart adds a variant to the cart.
// POST /cart/items
func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body addItemBody
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	if body.VariantID <= 0 {
		h.writeError(w, model.NewValidationError("variant_id", "required"))
		return
	}

	h.logger.InfoContext(ctx, "adding to cart",
		slog.Int64("variant_id", body.VariantID),
		slog.Int("quantity", body.Quantity),
	)

	snap, err := h.store.AddToCart(ctx, body.VariantID, body.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// handleUpdateCartItem sets a line's quantity.
// PATCH /cart/items/{id}
func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var body quantityBody
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, err)
		return
	}

	snap, err := h.store.UpdateCartItem(r.Context(), id, body.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// handleRemoveCartItem deletes a line.
// DELETE /cart/items/{id}
func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	snap, err := h.store.RemoveCartItem(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// handleListAddresses returns the address book.
// GET /addresses
func (h *Handler) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.Addresses(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// handleCheckoutSummary prices the cart.
// GET /checkout/summary
func (h *Handler) handleCheckoutSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.CheckoutSummary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

// handleListOrders lists past orders.
// GET /orders
func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.Orders(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ordersOutput{Orders: orders})
}

// handleListDesigns lists custom designs.
// GET /designs
func (h *Handler) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	designs, err := h.store.Designs(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, designsOutput{Designs: designs})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// filterFromQuery maps query parameters onto a catalog filter. Names match
// the store's own query parameters.
func filterFromQuery(q url.Values) (catalog.Filter, error) {
	f := catalog.Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Gender:   q.Get("gender"),
		Brand:    q.Get("brand"),
		Color:    q.Get("color"),
		Size:     q.Get("size"),
		Ordering: q.Get("ordering"),
	}

	ints := []struct {
		name string
		set  func(int64)
	}{
		{"min_price", func(v int64) { f.MinPrice = v }},
		{"max_price", func(v int64) { f.MaxPrice = v }},
		{"min_discount", func(v int64) { f.MinDiscount = int(v) }},
		{"page", func(v int64) { f.Page = int(v) }},
	}
	for _, p := range ints {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return catalog.Filter{}, model.NewValidationError(p.name, "must be a non-negative integer")
		}
		p.set(v)
	}
	return f, nil
}
