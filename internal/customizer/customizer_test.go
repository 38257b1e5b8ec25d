package customizer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"storefront/internal/api"
	"storefront/internal/credstore"
	"storefront/internal/model"
)

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := credstore.NewMemoryStore()
	store.Save(model.CredentialPair{Access: "a", Refresh: "r"}, model.UserProfile{Username: "asha"})

	client, err := api.New(api.Options{
		BaseURL:    srv.URL + "/api",
		Store:      store,
		HTTPClient: srv.Client(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return New(client)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image")

func TestSubmitSendsMultipartForm(t *testing.T) {
	type upload struct {
		fields      map[string]string
		image       []byte
		filename    string
		contentType string
	}
	var got upload

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/customizer/designs/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(MaxImageSize); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got.fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			got.fields[k] = v[0]
		}
		f, hdr, err := r.FormFile("design_image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		got.image, _ = io.ReadAll(f)
		got.filename = hdr.Filename
		got.contentType = hdr.Header.Get("Content-Type")

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"title":"Skyline","placement":"BACK","size":"L","quantity":2,"price":"899.00","is_ordered":false}`))
	})
	svc := newTestService(t, mux)

	design, err := svc.Submit(context.Background(), DesignRequest{
		Title:       "  Skyline ",
		Placement:   "back",
		Size:        "l",
		Quantity:    2,
		TextOverlay: "PUNE",
		ImageName:   "/tmp/art/skyline.PNG",
		Image:       bytes.NewReader(pngBytes),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if design.ID != 7 || design.Price != model.Rupees(899) {
		t.Errorf("design = %+v, want id 7 at 899.00", design)
	}

	want := map[string]string{
		"title":        "Skyline",
		"tshirt_color": "#000000",
		"placement":    "BACK",
		"size":         "L",
		"quantity":     "2",
		"text_overlay": "PUNE",
		"text_color":   "#FFFFFF",
	}
	for k, v := range want {
		if got.fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, got.fields[k], v)
		}
	}
	if !bytes.Equal(got.image, pngBytes) {
		t.Errorf("image = %q, want %q", got.image, pngBytes)
	}
	if got.filename != "skyline.PNG" || got.contentType != "image/png" {
		t.Errorf("file part = %q (%s), want skyline.PNG (image/png)", got.filename, got.contentType)
	}
}

func TestSubmitReplaysBodyAfterRefresh(t *testing.T) {
	var uploads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/customizer/designs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(MaxImageSize); err != nil || r.FormValue("title") != "Skyline" {
			http.Error(w, "incomplete form", http.StatusBadRequest)
			return
		}
		uploads.Add(1)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":9,"title":"Skyline"}`))
	})
	mux.HandleFunc("POST /api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access":"fresh"}`))
	})
	svc := newTestService(t, mux)

	design, err := svc.Submit(context.Background(), DesignRequest{
		Title:     "Skyline",
		ImageName: "skyline.png",
		Image:     bytes.NewReader(pngBytes),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if design.ID != 9 || uploads.Load() != 1 {
		t.Errorf("design = %+v uploads = %d, want id 9 after one complete replay", design, uploads.Load())
	}
}

func TestSubmitRejectsBeforeUpload(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/customizer/designs/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	})
	svc := newTestService(t, mux)

	oversized := bytes.Repeat([]byte{0}, MaxImageSize+1)
	tests := []struct {
		name  string
		req   DesignRequest
		field string
	}{
		{"too large", DesignRequest{Title: "Big", ImageName: "big.png", Image: bytes.NewReader(oversized)}, "design_image"},
		{"empty image", DesignRequest{Title: "Empty", ImageName: "e.png", Image: bytes.NewReader(nil)}, "design_image"},
		{"no image", DesignRequest{Title: "None"}, "design_image"},
		{"unsupported type", DesignRequest{Title: "Doc", ImageName: "art.pdf", Image: bytes.NewReader(pngBytes)}, "design_image"},
		{"blank title", DesignRequest{Title: "   ", ImageName: "a.png", Image: bytes.NewReader(pngBytes)}, "title"},
		{"bad placement", DesignRequest{Title: "T", Placement: "POCKET", ImageName: "a.png", Image: bytes.NewReader(pngBytes)}, "placement"},
		{"bad size", DesignRequest{Title: "T", Size: "XS", ImageName: "a.png", Image: bytes.NewReader(pngBytes)}, "size"},
		{"negative quantity", DesignRequest{Title: "T", Quantity: -1, ImageName: "a.png", Image: bytes.NewReader(pngBytes)}, "quantity"},
		{"bad color", DesignRequest{Title: "T", TShirtColor: "black", ImageName: "a.png", Image: bytes.NewReader(pngBytes)}, "tshirt_color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			if !errors.Is(err, model.ErrInvalidRequest) {
				t.Fatalf("Submit error = %v, want ErrInvalidRequest", err)
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error %v is not an APIError", err)
			}
			if _, ok := apiErr.Fields[tt.field]; !ok && !strings.Contains(apiErr.Message, tt.field) {
				t.Errorf("error = %v, want it to name %s", err, tt.field)
			}
		})
	}
	if hits.Load() != 0 {
		t.Errorf("store received %d uploads, want 0", hits.Load())
	}
}

func TestDesigns(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"paginated", `{"count":1,"next":null,"previous":null,"results":[{"id":3,"title":"Skyline","price":"799.00","is_ordered":true}]}`},
		{"plain list", `[{"id":3,"title":"Skyline","price":"799.00","is_ordered":true}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/customizer/designs/", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			svc := newTestService(t, mux)

			designs, err := svc.Designs(context.Background())
			if err != nil {
				t.Fatalf("Designs: %v", err)
			}
			if len(designs) != 1 || designs[0].Title != "Skyline" || !designs[0].IsOrdered || designs[0].Price != model.Rupees(799) {
				t.Errorf("Designs = %+v", designs)
			}
		})
	}
}

func TestEstimatePrice(t *testing.T) {
	tests := []struct {
		qty  int
		want model.Money
	}{
		{1, model.Rupees(799)},
		{3, model.Rupees(999)},
		{0, model.Rupees(799)},
	}
	for _, tt := range tests {
		if got := EstimatePrice(tt.qty); got != tt.want {
			t.Errorf("EstimatePrice(%d) = %s, want %s", tt.qty, got, tt.want)
		}
	}
}
