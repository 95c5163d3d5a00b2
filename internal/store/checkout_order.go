// Package store persists checkout orders: the per-checkout record that
// tracks the processor's order, authorization, capture and refund ids.
package store

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Processor statuses the gateway reads or writes.
const (
	StatusCreated   = "CREATED"
	StatusCompleted = "COMPLETED"
	StatusVoided    = "VOIDED"
)

// Payment framework states consulted by the Can* helpers.
const (
	PaymentCheckout  = "checkout"
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentVoid      = "void"
)

// State is the lifecycle position of a checkout order. It is never stored;
// State() infers it from the processor fields.
type State string

const (
	StateCreated    State = "created"
	StateAuthorized State = "authorized"
	StateVoided     State = "voided"
	StateCaptured   State = "captured"
	StateRefunded   State = "refunded"
)

// Refund is one entry of the append-only refund ledger.
type Refund struct {
	RefundID     string `json:"refund_id"`
	RefundStatus string `json:"refund_status"`
}

// CheckoutOrder is the persisted state of one buyer checkout attempt.
type CheckoutOrder struct {
	ID              uint  `gorm:"primaryKey" json:"id"`
	PaymentMethodID uint  `gorm:"index" json:"payment_method_id"`
	UserID          *uint `gorm:"index" json:"user_id,omitempty"`

	Intent                       string                      `gorm:"size:20" json:"intent"`
	OrderID                      string                      `gorm:"size:64;index" json:"order_id"`
	OrderStatus                  string                      `gorm:"size:32" json:"order_status"`
	AuthorizationID              string                      `gorm:"size:64;index" json:"authorization_id"`
	AuthorizationStatus          string                      `gorm:"size:32" json:"authorization_status"`
	CaptureID                    string                      `gorm:"size:64;index" json:"capture_id"`
	CaptureStatus                string                      `gorm:"size:32" json:"capture_status"`
	AuthenticationExpirationTime string                      `gorm:"size:64" json:"authentication_expiration_time"`
	Refunds                      datatypes.JSONSlice[Refund] `json:"refunds"`

	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	expirationRaw string
	expirationAt  time.Time
	expirationOK  bool
}

func (CheckoutOrder) TableName() string {
	return "paypal_checkout_orders"
}

// AuthenticationExpirationAt parses the processor's expiration timestamp. The
// parse result is cached until the raw value changes.
func (o *CheckoutOrder) AuthenticationExpirationAt() (time.Time, bool) {
	raw := strings.TrimSpace(o.AuthenticationExpirationTime)
	if raw == "" {
		return time.Time{}, false
	}
	if raw != o.expirationRaw {
		o.expirationRaw = raw
		o.expirationAt, o.expirationOK = parseTimestamp(raw)
	}
	return o.expirationAt, o.expirationOK
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// State infers the lifecycle state:
// refunds recorded > capture id set > authorization voided > authorization id set > created.
func (o *CheckoutOrder) State() State {
	switch {
	case len(o.Refunds) > 0:
		return StateRefunded
	case o.CaptureID != "":
		return StateCaptured
	case o.AuthorizationStatus == StatusVoided:
		return StateVoided
	case o.AuthorizationID != "":
		return StateAuthorized
	default:
		return StateCreated
	}
}

// AppendRefund adds a ledger entry. Entries are kept in call order.
func (o *CheckoutOrder) AppendRefund(r Refund) {
	o.Refunds = append(o.Refunds, r)
}

// Actions lists the framework actions a checkout order supports.
func (o *CheckoutOrder) Actions() []string {
	return []string{"capture", "void", "credit"}
}

func (o *CheckoutOrder) CanCapture(paymentState string) bool {
	return paymentState == PaymentPending || paymentState == PaymentCheckout
}

func (o *CheckoutOrder) CanVoid(paymentState string) bool {
	return paymentState != PaymentFailed && paymentState != PaymentVoid && o.canVoidAuthorized()
}

func (o *CheckoutOrder) CanCredit(paymentState string, creditAllowed decimal.Decimal) bool {
	return paymentState == PaymentCompleted && creditAllowed.IsPositive()
}

func (o *CheckoutOrder) canVoidAuthorized() bool {
	return o.AuthorizationID != "" && o.AuthorizationStatus != "" && o.AuthorizationStatus != StatusCompleted
}

// Clone returns a deep copy, so callers never share the refund ledger.
func (o *CheckoutOrder) Clone() *CheckoutOrder {
	c := *o
	if o.UserID != nil {
		uid := *o.UserID
		c.UserID = &uid
	}
	if o.Refunds != nil {
		c.Refunds = append(datatypes.JSONSlice[Refund]{}, o.Refunds...)
	}
	return &c
}
