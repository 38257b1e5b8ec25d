// Package capture shows the payment gateway's hosted checkout in the buyer's
// browser and waits for the result.
//
// A BrowserCapturer serves a one-shot page on a loopback port. The page loads
// the gateway script, and the script's success and dismiss hooks post back to
// the same server. Each capture uses a fresh random path so a stale tab cannot
// complete a later attempt.
package capture

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/juju/webbrowser"

	"storefront/internal/checkout"
	"storefront/internal/middleware"
	"storefront/internal/model"
)

const (
	defaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"
	shutdownTimeout  = 5 * time.Second
)

// Opener shows a URL to the buyer.
type Opener func(u *url.URL) error

// Options configures a BrowserCapturer.
type Options struct {
	Logger    *slog.Logger
	ScriptURL string    // gateway script, defaults to the hosted checkout.js
	Open      Opener    // defaults to the system browser
	Notice    io.Writer // receives the URL when the browser cannot be opened
}

// BrowserCapturer implements checkout.Capturer with a local web page.
type BrowserCapturer struct {
	logger    *slog.Logger
	scriptURL string
	open      Opener
	notice    io.Writer
}

var _ checkout.Capturer = (*BrowserCapturer)(nil)

// New creates a BrowserCapturer.
func New(opts Options) *BrowserCapturer {
	c := &BrowserCapturer{
		logger:    opts.Logger,
		scriptURL: opts.ScriptURL,
		open:      opts.Open,
		notice:    opts.Notice,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.scriptURL == "" {
		c.scriptURL = defaultScriptURL
	}
	if c.open == nil {
		c.open = webbrowser.Open
	}
	if c.notice == nil {
		c.notice = io.Discard
	}
	return c
}

// Capture serves the gateway page and blocks until the buyer pays, dismisses
// the page, or ctx is done.
func (c *BrowserCapturer) Capture(ctx context.Context, req checkout.CaptureRequest) (checkout.Outcome, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return checkout.Outcome{}, fmt.Errorf("starting capture server: %w", err)
	}

	s := &session{
		token:     uuid.NewString(),
		req:       req,
		scriptURL: c.scriptURL,
		results:   make(chan checkout.Outcome, 1),
	}

	srv := &http.Server{
		Handler: middleware.Chain(
			middleware.Recovery(c.logger),
			middleware.RequestID(),
			middleware.Logging(c.logger),
			middleware.LoopbackOnly(),
		)(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("capture server shutdown", slog.String("error", err.Error()))
		}
	}()

	page := &url.URL{Scheme: "http", Host: ln.Addr().String(), Path: "/pay/" + s.token}
	c.logger.Info("payment page ready",
		slog.String("url", page.String()),
		slog.String("gateway_order", req.Intent.GatewayOrderID),
	)
	if err := c.open(page); err != nil {
		c.logger.Warn("could not open browser", slog.String("error", err.Error()))
		fmt.Fprintf(c.notice, "Open this page to pay: %s\n", page)
	}

	select {
	case out := <-s.results:
		return out, nil
	case err := <-serveErr:
		return checkout.Outcome{}, fmt.Errorf("capture server: %w", err)
	case <-ctx.Done():
		return checkout.Outcome{}, ctx.Err()
	}
}

// session is one capture attempt's server state.
type session struct {
	token     string
	req       checkout.CaptureRequest
	scriptURL string
	results   chan checkout.Outcome
}

func (s *session) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /pay/{token}", s.handlePage)
	mux.HandleFunc("POST /pay/{token}/callback", s.handleCallback)
	mux.HandleFunc("POST /pay/{token}/dismiss", s.handleDismiss)
	return mux
}

func (s *session) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.PathValue("token") != s.token {
		http.NotFound(w, r)
		return false
	}
	return true
}

// deliver records the first outcome; later posts are ignored.
func (s *session) deliver(out checkout.Outcome) bool {
	select {
	case s.results <- out:
		return true
	default:
		return false
	}
}

func (s *session) handlePage(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, s.pageData()); err != nil {
		http.Error(w, "rendering payment page", http.StatusInternalServerError)
	}
}

func (s *session) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	proof := model.PaymentProof{
		GatewayOrderID: r.PostForm.Get("razorpay_order_id"),
		PaymentID:      r.PostForm.Get("razorpay_payment_id"),
		Signature:      r.PostForm.Get("razorpay_signature"),
	}
	if !s.deliver(checkout.Outcome{Proof: proof}) {
		http.Error(w, "payment already reported", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, donePage)
}

func (s *session) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	if !s.deliver(checkout.Outcome{Dismissed: true}) {
		http.Error(w, "payment already reported", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pageData struct {
	ScriptURL   string
	Key         string
	Amount      int64
	Currency    string
	Name        string
	Description string
	OrderID     string
	PrefillName string
	Contact     string
	Theme       string
	Callback    string
	Dismiss     string
}

func (s *session) pageData() pageData {
	base := "/pay/" + s.token
	return pageData{
		ScriptURL:   s.scriptURL,
		Key:         s.req.Intent.Key,
		Amount:      s.req.Intent.Amount,
		Currency:    s.req.Intent.Currency,
		Name:        s.req.MerchantName,
		Description: s.req.Description,
		OrderID:     s.req.Intent.GatewayOrderID,
		PrefillName: s.req.Prefill.Name,
		Contact:     s.req.Prefill.Contact,
		Theme:       s.req.ThemeColor,
		Callback:    base + "/callback",
		Dismiss:     base + "/dismiss",
	}
}

var pageTemplate = template.Must(template.New("pay").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Name}}: {{.Description}}</title></head>
<body>
<p id="status">Opening payment&hellip;</p>
<script src="{{.ScriptURL}}"></script>
<script>
(function () {
  function post(path, fields) {
    var body = new URLSearchParams(fields || {});
    return fetch(path, {method: "POST", body: body});
  }
  var rzp = new Razorpay({
    key: {{.Key}},
    amount: {{.Amount}},
    currency: {{.Currency}},
    name: {{.Name}},
    description: {{.Description}},
    order_id: {{.OrderID}},
    prefill: {name: {{.PrefillName}}, contact: {{.Contact}}},
    theme: {color: {{.Theme}}},
    handler: function (resp) {
      post({{.Callback}}, {
        razorpay_order_id: resp.razorpay_order_id || "",
        razorpay_payment_id: resp.razorpay_payment_id || "",
        razorpay_signature: resp.razorpay_signature || ""
      }).then(function () {
        document.getElementById("status").textContent = "Payment received. You can close this tab.";
      });
    },
    modal: {
      ondismiss: function () {
        post({{.Dismiss}}).then(function () {
          document.getElementById("status").textContent = "Payment cancelled. You can close this tab.";
        });
      }
    }
  });
  rzp.open();
})();
</script>
</body>
</html>
`))

const donePage = `<!doctype html><html><body><p>Payment received. You can close this tab.</p></body></html>`
