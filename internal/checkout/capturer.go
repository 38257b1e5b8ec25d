package checkout

import (
	"context"

	"storefront/internal/model"
)

// Capturer is the external payment capture surface: it shows the gateway's
// hosted checkout to the buyer and reports how it ended.
//
// Capture blocks until the buyer pays or dismisses, or ctx is done. The
// orchestrator imposes no timeout of its own.
type Capturer interface {
	Capture(ctx context.Context, req CaptureRequest) (Outcome, error)
}

// CaptureRequest carries everything the gateway page needs.
type CaptureRequest struct {
	Intent       model.PaymentIntent
	MerchantName string
	Description  string // "Order <reference>"
	ThemeColor   string
	Prefill      Prefill
}

// Prefill seeds the gateway form with the delivery contact.
type Prefill struct {
	Name    string
	Contact string
}

// Outcome is either a payment proof or a dismissal.
type Outcome struct {
	Proof     model.PaymentProof
	Dismissed bool
}

// MockCapturer implements Capturer for testing.
type MockCapturer struct {
	CaptureFunc func(ctx context.Context, req CaptureRequest) (Outcome, error)
}

// Capture calls the configured CaptureFunc or reports a dismissal.
func (m *MockCapturer) Capture(ctx context.Context, req CaptureRequest) (Outcome, error) {
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, req)
	}
	return Outcome{Dismissed: true}, nil
}

var _ Capturer = (*MockCapturer)(nil)
