package checkout

import "storefront/internal/model"

// DeliveryPolicy is the display rule for the delivery line.
type DeliveryPolicy struct {
	FreeAbove model.Money // subtotal at or above this ships free
	Fee       model.Money
}

// DefaultDeliveryPolicy is free delivery from ₹999, ₹49 otherwise.
func DefaultDeliveryPolicy() DeliveryPolicy {
	return DeliveryPolicy{FreeAbove: model.Rupees(999), Fee: model.Rupees(49)}
}

// Summary is the price breakdown shown before payment. The server's order
// total is authoritative; this is display only.
type Summary struct {
	Items        int         `json:"items"`
	Subtotal     model.Money `json:"subtotal"`
	Delivery     model.Money `json:"delivery"`
	Total        model.Money `json:"total"`
	FreeDelivery bool        `json:"free_delivery"`
}

// Summarize derives the summary from a cart snapshot. A nil snapshot is an
// empty cart.
func Summarize(snap *model.CartSnapshot, policy DeliveryPolicy) Summary {
	var s Summary
	if snap != nil {
		s.Items = snap.TotalItems
		s.Subtotal = snap.TotalPrice
	}

	s.FreeDelivery = s.Subtotal >= policy.FreeAbove
	if !s.FreeDelivery {
		s.Delivery = policy.Fee
	}
	s.Total = s.Subtotal + s.Delivery
	return s
}
