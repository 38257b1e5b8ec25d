package adapter

import (
	"testing"

	"storefront/internal/model"
)

func TestNewProductView(t *testing.T) {
	p := &model.Product{
		Slug: "linen-shirt",
		Variants: []model.Variant{
			{ID: 1, Size: "M", Color: "White", InStock: true},
			{ID: 2, Size: "L", Color: "White", InStock: false},
		},
	}

	tests := []struct {
		name        string
		size, color string
		wantVariant int64
		wantReason  string
	}{
		{"no selection", "", "", 0, "select a size and color"},
		{"in stock", "M", "White", 1, ""},
		{"out of stock", "L", "White", 2, "this variant is out of stock"},
		{"no such pair", "XL", "White", 0, "select a size and color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := NewProductView(p, tt.size, tt.color)
			var got int64
			if view.Selection.Variant != nil {
				got = view.Selection.Variant.ID
			}
			if got != tt.wantVariant {
				t.Errorf("Variant = %d, want %d", got, tt.wantVariant)
			}
			if view.Unavailable != tt.wantReason {
				t.Errorf("Unavailable = %q, want %q", view.Unavailable, tt.wantReason)
			}
		})
	}
}
