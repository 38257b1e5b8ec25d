// Package customizer submits custom T-shirt designs and lists the buyer's
// saved designs.
package customizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"storefront/internal/api"
	"storefront/internal/model"
)

const (
	pathDesigns = "/customizer/designs/"

	// MaxImageSize is the largest design image the store accepts.
	MaxImageSize = 10 << 20

	basePrice     = 799
	extraUnitCost = 100
)

var (
	// Placements are the print positions, in display order.
	Placements = []string{"FRONT", "BACK", "LEFT_SLEEVE", "RIGHT_SLEEVE"}

	// Sizes are the printable shirt sizes.
	Sizes = []string{"S", "M", "L", "XL", "XXL"}

	imageTypes = map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".webp": "image/webp",
		".svg":  "image/svg+xml",
	}

	hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// DesignRequest is a new design. Zero values take the store form's defaults:
// black shirt, front placement, size M, one piece, white text.
type DesignRequest struct {
	Title       string
	TShirtColor string
	Placement   string
	Size        string
	Quantity    int
	TextOverlay string
	TextColor   string

	// ImageName carries the extension that decides the image type.
	ImageName string
	Image     io.Reader
}

// Service is the customizer API.
type Service struct {
	client *api.Client
}

// New creates a customizer service.
func New(client *api.Client) *Service {
	return &Service{client: client}
}

// EstimatePrice is the price shown before submitting: ₹799 for the first
// piece and ₹100 for each extra. The server's price is authoritative.
func EstimatePrice(quantity int) model.Money {
	if quantity < 1 {
		quantity = 1
	}
	return model.Rupees(basePrice + int64(quantity-1)*extraUnitCost)
}

// Submit uploads the design as multipart/form-data. Oversized or unsupported
// images are rejected before anything is sent.
func (s *Service) Submit(ctx context.Context, req DesignRequest) (*model.Design, error) {
	req = withDefaults(req)
	if err := validate(req); err != nil {
		return nil, err
	}

	image, err := io.ReadAll(io.LimitReader(req.Image, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading design image: %w", err)
	}
	if len(image) > MaxImageSize {
		return nil, model.NewValidationError("design_image", "file too large (max 10MB)")
	}
	if len(image) == 0 {
		return nil, model.NewValidationError("design_image", "image is empty")
	}

	body, contentType, err := encodeForm(req, image)
	if err != nil {
		return nil, fmt.Errorf("encoding design: %w", err)
	}

	var design model.Design
	err = s.client.Do(ctx, &api.Request{
		Method:      http.MethodPost,
		Path:        pathDesigns,
		RawBody:     body,
		ContentType: contentType,
	}, &design)
	if err != nil {
		return nil, fmt.Errorf("submitting design: %w", err)
	}
	return &design, nil
}

// Designs lists the buyer's submitted designs.
func (s *Service) Designs(ctx context.Context) ([]model.Design, error) {
	resp, err := s.client.Send(ctx, &api.Request{Method: http.MethodGet, Path: pathDesigns})
	if err != nil {
		return nil, fmt.Errorf("listing designs: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("listing designs: %w", err)
	}
	return model.DecodeList[model.Design](resp.Body)
}

func withDefaults(req DesignRequest) DesignRequest {
	req.Title = strings.TrimSpace(req.Title)
	if req.TShirtColor == "" {
		req.TShirtColor = "#000000"
	}
	if req.Placement == "" {
		req.Placement = "FRONT"
	}
	if req.Size == "" {
		req.Size = "M"
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.TextColor == "" {
		req.TextColor = "#FFFFFF"
	}
	req.Placement = strings.ToUpper(req.Placement)
	req.Size = strings.ToUpper(req.Size)
	return req
}

func validate(req DesignRequest) error {
	fields := map[string][]string{}
	if req.Title == "" {
		fields["title"] = []string{"enter a design title"}
	}
	if req.Image == nil {
		fields["design_image"] = []string{"upload a design image"}
	} else if _, ok := imageTypes[strings.ToLower(filepath.Ext(req.ImageName))]; !ok {
		fields["design_image"] = []string{"use a PNG, JPEG, WebP or SVG image"}
	}
	if !slices.Contains(Placements, req.Placement) {
		fields["placement"] = []string{"one of " + strings.Join(Placements, ", ")}
	}
	if !slices.Contains(Sizes, req.Size) {
		fields["size"] = []string{"one of " + strings.Join(Sizes, ", ")}
	}
	if req.Quantity < 1 {
		fields["quantity"] = []string{"must be at least 1"}
	}
	if !hexColor.MatchString(req.TShirtColor) {
		fields["tshirt_color"] = []string{"must be a #RRGGBB color"}
	}
	if !hexColor.MatchString(req.TextColor) {
		fields["text_color"] = []string{"must be a #RRGGBB color"}
	}
	if len(fields) > 0 {
		return model.NewFieldValidationError(fields)
	}
	return nil
}

// encodeForm writes the fields in the order the store's form sends them.
func encodeForm(req DesignRequest, image []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="design_image"; filename="%s"`,
		strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(filepath.Base(req.ImageName))))
	h.Set("Content-Type", imageTypes[strings.ToLower(filepath.Ext(req.ImageName))])
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"title", req.Title},
		{"tshirt_color", req.TShirtColor},
		{"placement", req.Placement},
		{"size", req.Size},
		{"quantity", strconv.Itoa(req.Quantity)},
		{"text_overlay", req.TextOverlay},
		{"text_color", req.TextColor},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
