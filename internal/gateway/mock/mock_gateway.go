// Package mock provides a configurable gateway.Gateway for tests.
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/yourorg/paypal-checkout/internal/checkout"
	"github.com/yourorg/paypal-checkout/internal/gateway"
	"github.com/yourorg/paypal-checkout/internal/paypal"
)

// Call records one invocation of a MockGateway method.
type Call struct {
	Method        string
	AmountInCents int64
	Reference     string
	Options       gateway.Options
}

// MockGateway implements gateway.Gateway. Each method calls its Func field
// when set and otherwise succeeds with a generated reference.
type MockGateway struct {
	IntentValue string

	AuthorizeFunc   func(ctx context.Context, amountInCents int64, orderID string, opts gateway.Options) *gateway.Response
	CaptureFunc     func(ctx context.Context, amountInCents int64, authorizationID string, opts gateway.Options) *gateway.Response
	PurchaseFunc    func(ctx context.Context, amountInCents int64, orderID string, opts gateway.Options) *gateway.Response
	CreditFunc      func(ctx context.Context, amountInCents int64, captureID string, opts gateway.Options) *gateway.Response
	VoidFunc        func(ctx context.Context, authorizationID string, opts gateway.Options) *gateway.Response
	CancelFunc      func(ctx context.Context, responseCode string, payment gateway.Payment) *gateway.Response
	CreateOrderFunc func(ctx context.Context, body any) (*paypal.Document, error)

	mu    sync.Mutex
	calls []Call
}

var _ gateway.Gateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{IntentValue: gateway.IntentAuthorize}
}

func (m *MockGateway) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns the recorded invocations in order.
func (m *MockGateway) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *MockGateway) Authorize(ctx context.Context, amountInCents int64, orderID string, opts gateway.Options) *gateway.Response {
	m.record(Call{Method: "Authorize", AmountInCents: amountInCents, Reference: orderID, Options: opts})
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, amountInCents, orderID, opts)
	}
	return gateway.Succeeded("Authorize order completed", uuid.NewString())
}

func (m *MockGateway) Capture(ctx context.Context, amountInCents int64, authorizationID string, opts gateway.Options) *gateway.Response {
	m.record(Call{Method: "Capture", AmountInCents: amountInCents, Reference: authorizationID, Options: opts})
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, amountInCents, authorizationID, opts)
	}
	return gateway.Succeeded("Capture payment completed", uuid.NewString())
}

func (m *MockGateway) Purchase(ctx context.Context, amountInCents int64, orderID string, opts gateway.Options) *gateway.Response {
	m.record(Call{Method: "Purchase", AmountInCents: amountInCents, Reference: orderID, Options: opts})
	if m.PurchaseFunc != nil {
		return m.PurchaseFunc(ctx, amountInCents, orderID, opts)
	}
	return gateway.Succeeded("Purchase order completed", uuid.NewString())
}

func (m *MockGateway) Credit(ctx context.Context, amountInCents int64, captureID string, opts gateway.Options) *gateway.Response {
	m.record(Call{Method: "Credit", AmountInCents: amountInCents, Reference: captureID, Options: opts})
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, amountInCents, captureID, opts)
	}
	return gateway.Succeeded("Refund payment completed", uuid.NewString())
}

func (m *MockGateway) Void(ctx context.Context, authorizationID string, opts gateway.Options) *gateway.Response {
	m.record(Call{Method: "Void", Reference: authorizationID, Options: opts})
	if m.VoidFunc != nil {
		return m.VoidFunc(ctx, authorizationID, opts)
	}
	return gateway.Succeeded("Void payment completed", authorizationID)
}

func (m *MockGateway) Cancel(ctx context.Context, responseCode string, payment gateway.Payment) *gateway.Response {
	m.record(Call{Method: "Cancel", Reference: responseCode})
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, responseCode, payment)
	}
	return gateway.Succeeded("Payment all refunded", "")
}

// CreateOrder returns a CREATED processor order with a generated id by default.
func (m *MockGateway) CreateOrder(ctx context.Context, body any) (*paypal.Document, error) {
	m.record(Call{Method: "CreateOrder"})
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, body)
	}
	raw, _ := json.Marshal(map[string]any{"id": uuid.NewString(), "status": "CREATED"})
	return paypal.ParseDocument(raw), nil
}

func (m *MockGateway) OrderRequest(order checkout.Order) (*checkout.OrderRequest, error) {
	return checkout.Build(order, m.Intent())
}

func (m *MockGateway) Intent() string {
	if m.IntentValue == "" {
		return gateway.IntentAuthorize
	}
	return m.IntentValue
}

func (m *MockGateway) MethodType() string { return paypal.MethodType }

func (m *MockGateway) PaymentProfilesSupported() bool { return false }
