// Package gateway defines the contract between the payment framework and a
// processor gateway, together with the uniform Response every operation
// returns and the AVS/CVV advisory tables used to normalize card checks.
//
// Gateways never return errors: every transport, decoding or precondition
// failure is folded into a Response with Success set to false.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Intents accepted by the processor's order creation endpoint.
const (
	IntentCapture   = "CAPTURE"
	IntentAuthorize = "AUTHORIZE"
)

// Originator describes who asked for a refund.
type Originator struct {
	Currency string // ISO currency code of the refunded money
	Reason   string // shown to the payer
}

// Options are the per-call gateway options supplied by the payment framework.
type Options struct {
	Originator *Originator
}

// Payment is the slice of a framework payment that Cancel needs.
type Payment interface {
	// CreditAllowed is the amount that can still be refunded.
	CreditAllowed() decimal.Decimal
	// CreateRefund records a local refund, which in turn credits the processor.
	CreateRefund(ctx context.Context, amount decimal.Decimal, reason string) error
}

// Gateway is implemented by each processor integration.
type Gateway interface {
	// Authorize reserves funds for the processor order orderID.
	Authorize(ctx context.Context, amountInCents int64, orderID string, opts Options) *Response
	// Capture settles a previous authorization, re-authorizing it first when stale.
	Capture(ctx context.Context, amountInCents int64, authorizationID string, opts Options) *Response
	// Purchase authorizes and captures the processor order in one call.
	Purchase(ctx context.Context, amountInCents int64, orderID string, opts Options) *Response
	// Credit refunds part or all of a capture.
	Credit(ctx context.Context, amountInCents int64, captureID string, opts Options) *Response
	// Void cancels an authorization that has not been captured.
	Void(ctx context.Context, authorizationID string, opts Options) *Response
	// Cancel refunds everything still refundable on payment.
	Cancel(ctx context.Context, responseCode string, payment Payment) *Response

	// Intent is the order creation intent matching the capture configuration.
	Intent() string
	MethodType() string
	PaymentProfilesSupported() bool
}
