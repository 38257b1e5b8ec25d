package main

import (
	"fmt"
	"os"
	"strings"

	"storefront/internal/customizer"
)

// =============================================================================
// DESIGN COMMAND
// =============================================================================

func runDesign(args []string) {
	fs := newFlagSet("design", "[-image FILE -title TITLE [options]]")
	var image string
	var req customizer.DesignRequest
	fs.StringVar(&image, "image", "", "Design image (PNG, JPEG, WebP or SVG, max 10MB); omit to list your designs")
	fs.StringVar(&req.Title, "title", "", "Design title")
	fs.StringVar(&req.TShirtColor, "color", "#000000", "T-shirt color (#RRGGBB)")
	fs.StringVar(&req.Placement, "placement", "FRONT", "Print placement: "+strings.Join(customizer.Placements, ", "))
	fs.StringVar(&req.Size, "size", "M", "Size: "+strings.Join(customizer.Sizes, ", "))
	fs.IntVar(&req.Quantity, "qty", 1, "Quantity")
	fs.StringVar(&req.TextOverlay, "text", "", "Text printed under the design")
	fs.StringVar(&req.TextColor, "text-color", "#FFFFFF", "Text color (#RRGGBB)")
	parse(fs, args)

	if image == "" {
		listDesigns()
		return
	}

	info, err := os.Stat(image)
	if err != nil {
		fatal("Reading design image: %v", err)
	}
	if info.Size() > customizer.MaxImageSize {
		fatal("Design image is too large (max 10MB)")
	}
	f, err := os.Open(image)
	if err != nil {
		fatal("Reading design image: %v", err)
	}
	defer f.Close()
	req.ImageName = image
	req.Image = f

	ctx, a, done := setup()
	defer done()

	printInfo("Estimated price: %s", rupees(customizer.EstimatePrice(req.Quantity)))
	design, err := a.Designer.Submit(ctx, req)
	check("Submitting design", err)
	if emit(design) {
		return
	}
	printSuccess("Design %q submitted (%s). We will process your order.", design.Title, rupees(design.Price))
}

func listDesigns() {
	ctx, a, done := setup()
	defer done()

	designs, err := a.Designer.Designs(ctx)
	check("Loading designs", err)
	if emit(designs) {
		return
	}
	if len(designs) == 0 {
		printInfo("No designs yet (submit one with 'storefront design -image FILE -title TITLE')")
		return
	}
	for _, d := range designs {
		status := colorYellow + "DRAFT" + colorReset
		if d.IsOrdered {
			status = colorGreen + "ORDERED" + colorReset
		}
		fmt.Printf("  [%d] %s%s%s %s · %s · Qty: %d  %s %s\n",
			d.ID, colorBold, d.Title, colorReset, d.Size, d.Placement, d.Quantity, rupees(d.Price), status)
	}
}
