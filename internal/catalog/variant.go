package catalog

import (
	"errors"

	"storefront/internal/model"
)

var (
	// ErrNoSelection means size and color do not identify a variant yet.
	ErrNoSelection = errors.New("select a size and color")

	// ErrOutOfStock means the resolved variant cannot be purchased.
	ErrOutOfStock = errors.New("this variant is out of stock")
)

// SizeOption is one selectable size. InStock reflects the first variant with
// that size (and the selected color, when one is chosen).
type SizeOption struct {
	Size    string `json:"size"`
	InStock bool   `json:"in_stock"`
}

// Selection is the derived state of a (size, color) choice.
type Selection struct {
	Sizes   []SizeOption    `json:"sizes"`
	Colors  []model.Variant `json:"colors"` // one representative per color
	Variant *model.Variant  `json:"variant,omitempty"`
}

// Resolve derives the available sizes, available colors and the matching
// variant from a product's variants and the current selection. Empty size or
// color means "not selected". It is total over its inputs.
//
// Sizes are narrowed by the selected color and colors by the selected size,
// both in first-seen order. The representative for a color is the last variant
// carrying it. When several variants share a (size, color) pair the first wins.
func Resolve(variants []model.Variant, size, color string) Selection {
	sel := Selection{
		Sizes:  []SizeOption{},
		Colors: []model.Variant{},
	}

	seenSize := make(map[string]bool)
	for _, v := range variants {
		if color != "" && v.Color != color {
			continue
		}
		if seenSize[v.Size] {
			continue
		}
		seenSize[v.Size] = true
		sel.Sizes = append(sel.Sizes, SizeOption{Size: v.Size, InStock: v.InStock})
	}

	colorIndex := make(map[string]int)
	for _, v := range variants {
		if size != "" && v.Size != size {
			continue
		}
		if i, ok := colorIndex[v.Color]; ok {
			sel.Colors[i] = v
			continue
		}
		colorIndex[v.Color] = len(sel.Colors)
		sel.Colors = append(sel.Colors, v)
	}

	if size != "" && color != "" {
		for i := range variants {
			if variants[i].Size == size && variants[i].Color == color {
				v := variants[i]
				sel.Variant = &v
				break
			}
		}
	}

	return sel
}

// Purchasable reports why the selection cannot be added to the cart, or nil.
func (s Selection) Purchasable() error {
	if s.Variant == nil {
		return ErrNoSelection
	}
	if !s.Variant.InStock {
		return ErrOutOfStock
	}
	return nil
}
