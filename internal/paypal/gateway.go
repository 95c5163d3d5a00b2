// Package paypal implements gateway.Gateway on top of the PayPal Orders v2
// and Payments v2 REST APIs.
//
// Checkout orders move through created, authorized, captured, voided and
// refunded states. The state is never stored; it is derived from the
// processor ids and statuses kept on store.CheckoutOrder.
package paypal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yourorg/paypal-checkout/internal/checkout"
	"github.com/yourorg/paypal-checkout/internal/circuitbreaker"
	"github.com/yourorg/paypal-checkout/internal/gateway"
	"github.com/yourorg/paypal-checkout/internal/policy"
	"github.com/yourorg/paypal-checkout/internal/reporting"
	"github.com/yourorg/paypal-checkout/internal/store"
)

const (
	MethodType = "paypal_checkout"

	statusCompleted = "COMPLETED"
	statusCreated   = "CREATED"
	statusVoided    = "VOIDED"

	// CancelRefundReason is the reason given to refunds created by Cancel.
	CancelRefundReason = "Return processing"
)

const (
	opAuthorize   = "authorize"
	opCapture     = "capture"
	opPurchase    = "purchase"
	opCredit      = "credit"
	opVoid        = "void"
	opCancel      = "cancel"
	opCreateOrder = "create_order"
)

var (
	ErrAuthenticationExpired = errors.New("paypal: authorization authentication expired")
	ErrMissingOriginator     = errors.New("paypal: refund originator is missing")

	// ErrAlreadyCaptured is returned when the checkout order already holds a capture.
	ErrAlreadyCaptured = errors.New("paypal: authorization already captured")

	// ErrAuthorizationReplaced is returned when a re-authorization replaced
	// the requested authorization while the caller waited for the record.
	ErrAuthorizationReplaced = errors.New("paypal: authorization was replaced by a re-authorization")
)

// Messages reported for local precondition failures.
var preconditionMessages = map[error]string{
	ErrAuthenticationExpired: "Capture payment authentication expired",
	ErrMissingOriginator:     "Missing originator",
	ErrAlreadyCaptured:       "Authorization already captured",
	ErrAuthorizationReplaced: "Authorization was re-authorized",
}

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paypal_checkout_gateway_operations_total",
		Help: "Gateway operations, by operation and outcome.",
	}, []string{"operation", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paypal_checkout_gateway_operation_duration_seconds",
		Help:    "Latency of gateway operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	reauthorizationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paypal_checkout_reauthorizations_total",
		Help: "Stale authorizations re-authorized before capture.",
	})
)

// Config holds the processor credentials and behaviour switches.
type Config struct {
	APIKey      string
	SecretKey   string
	Server      string // host, defaults to DefaultServer
	AutoCapture bool
	HTTPTimeout time.Duration
}

// Gateway is the PayPal checkout gateway.
type Gateway struct {
	cfg      Config
	repo     store.Repository
	client   *Client
	policy   *policy.CapturePolicyEnforcer
	recorder reporting.Recorder
	logger   *zap.Logger
	tracer   trace.Tracer
	locks    *recordLocks
	now      func() time.Time

	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

var _ gateway.Gateway = (*Gateway)(nil)

// Option customizes a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithHTTPClient replaces the client built from Config.HTTPTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

// WithCircuitBreaker shares cb instead of a breaker with default thresholds.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(g *Gateway) { g.breaker = cb }
}

// WithCapturePolicy replaces the default three-day re-authorization rule.
func WithCapturePolicy(p *policy.CapturePolicyEnforcer) Option {
	return func(g *Gateway) { g.policy = p }
}

// WithRecorder journals every operation outcome to r.
func WithRecorder(r reporting.Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// WithClock overrides time.Now for expiry and policy checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// NewGateway creates a Gateway persisting checkout orders in repo.
func NewGateway(cfg Config, repo store.Repository, opts ...Option) (*Gateway, error) {
	if repo == nil {
		return nil, fmt.Errorf("paypal: repository cannot be nil")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	baseURL, host, err := baseURLFor(cfg.Server)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:    cfg,
		repo:   repo,
		logger: zap.NewNop(),
		tracer: otel.Tracer("paypal"),
		locks:  newRecordLocks(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if g.breaker == nil {
		g.breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{})
	}
	if g.policy == nil {
		if g.policy, err = policy.NewCapturePolicyEnforcer(policy.DefaultRules()); err != nil {
			return nil, fmt.Errorf("paypal: default capture policy: %w", err)
		}
	}

	g.client = &Client{
		httpClient:   g.httpClient,
		baseURL:      baseURL,
		host:         host,
		tokens:       NewTokenProvider(g.httpClient, baseURL, cfg.APIKey, cfg.SecretKey),
		breaker:      g.breaker,
		tracer:       g.tracer,
		newRequestID: newRequestID,
	}
	return g, nil
}

// Intent is CAPTURE when auto capture is on, AUTHORIZE otherwise.
func (g *Gateway) Intent() string {
	if g.cfg.AutoCapture {
		return gateway.IntentCapture
	}
	return gateway.IntentAuthorize
}

// MethodType identifies the payment method this gateway serves.
func (g *Gateway) MethodType() string { return MethodType }

func (g *Gateway) PaymentProfilesSupported() bool { return false }

// OrderRequest builds the order creation payload for order using the
// gateway's intent.
func (g *Gateway) OrderRequest(order checkout.Order) (*checkout.OrderRequest, error) {
	return checkout.Build(order, g.Intent())
}

// CreateOrder posts body to the order creation endpoint and returns the
// processor's reply as is.
func (g *Gateway) CreateOrder(ctx context.Context, body any) (*Document, error) {
	ctx, span := g.tracer.Start(ctx, "paypal."+opCreateOrder)
	defer span.End()
	start := g.now()

	res, err := g.client.post(ctx, endpointCreateOrder, "", body)
	operationDuration.WithLabelValues(opCreateOrder).Observe(g.now().Sub(start).Seconds())
	if err != nil {
		operationsTotal.WithLabelValues(opCreateOrder, "failure").Inc()
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn("create order failed", zap.Error(err))
		return nil, err
	}
	outcome := "success"
	if res.StatusCode >= http.StatusBadRequest {
		outcome = "failure"
	}
	operationsTotal.WithLabelValues(opCreateOrder, outcome).Inc()
	g.logger.Info("order created",
		zap.String("order_id", res.Doc.Text("id")),
		zap.String("status", res.Doc.Text("status")),
		zap.Int("http_status", res.StatusCode))
	return res.Doc, nil
}

// Authorize authorizes the processor order orderID and records the
// resulting authorization on its checkout order.
func (g *Gateway) Authorize(ctx context.Context, amountInCents int64, orderID string, _ gateway.Options) *gateway.Response {
	return g.run(ctx, opAuthorize, orderID, amountInCents, "", func(ctx context.Context) (*gateway.Response, error) {
		rec, unlock, err := g.acquire(ctx, g.repo.FindByOrderID, orderID)
		if err != nil {
			return nil, err
		}
		defer unlock()

		res, err := g.client.post(ctx, endpointAuthorizeOrder, orderID, nil)
		if err != nil {
			return nil, err
		}
		doc := res.Doc
		if doc.Text("status") != statusCompleted {
			return declined(doc), nil
		}

		auth := doc.Get("purchase_units", 0, "payments", "authorizations", 0)
		rec.OrderStatus = doc.Text("status")
		rec.AuthorizationID = auth.Text("id")
		rec.AuthorizationStatus = auth.Text("status")
		rec.AuthenticationExpirationTime = auth.Text("expiration_time")
		if err := g.repo.Save(ctx, rec); err != nil {
			return nil, err
		}
		return gateway.Succeeded("Authorize order completed", rec.AuthorizationID), nil
	})
}

// Capture settles authorizationID. Expired authorizations fail without a
// processor call; authorizations the capture policy deems stale are
// re-authorized first and the new authorization is captured instead.
func (g *Gateway) Capture(ctx context.Context, amountInCents int64, authorizationID string, _ gateway.Options) *gateway.Response {
	return g.run(ctx, opCapture, authorizationID, amountInCents, "", func(ctx context.Context) (*gateway.Response, error) {
		rec, unlock, err := g.acquire(ctx, g.repo.FindByAuthorizationID, authorizationID)
		if err != nil {
			return nil, err
		}
		defer unlock()
		if err := capturable(rec, authorizationID); err != nil {
			return nil, err
		}

		now := g.now()
		if exp, ok := rec.AuthenticationExpirationAt(); ok && now.After(exp) {
			return nil, ErrAuthenticationExpired
		}

		decision, err := g.policy.Evaluate(policy.CaptureFacts{
			AuthorizationAge: now.Sub(rec.CreatedAt),
			AmountCents:      amountInCents,
		})
		if err != nil {
			return nil, err
		}

		workingID := authorizationID
		if decision.Reauthorize {
			res, err := g.client.post(ctx, endpointReauthorizePayment, workingID, nil)
			if err != nil {
				return nil, err
			}
			if res.Doc.Text("status") != statusCreated {
				return declined(res.Doc), nil
			}
			workingID = res.Doc.Text("id")
			g.logger.Info("authorization re-authorized",
				zap.String("authorization_id", authorizationID),
				zap.String("new_authorization_id", workingID),
				zap.String("rule_id", decision.RuleID))
			reauthorizationsTotal.Inc()
			g.record(reporting.LogEntry{Operation: opCapture, Reference: authorizationID, Status: reporting.StatusReauthorize})

			// Keep the record reachable by the new id even if the capture below fails.
			rec.AuthorizationID = workingID
			rec.AuthorizationStatus = res.Doc.Text("status")
			if exp := res.Doc.Text("expiration_time"); exp != "" {
				rec.AuthenticationExpirationTime = exp
			}
			if err := g.repo.Save(ctx, rec); err != nil {
				return nil, err
			}
		}

		res, err := g.client.post(ctx, endpointCapturePayment, workingID, nil)
		if err != nil {
			return nil, err
		}
		doc := res.Doc
		if doc.Text("status") != statusCompleted {
			return declined(doc), nil
		}

		rec.AuthorizationStatus = doc.Text("status")
		rec.CaptureID = doc.Text("id")
		rec.CaptureStatus = doc.Text("status")
		if err := g.repo.Save(ctx, rec); err != nil {
			return nil, err
		}
		return gateway.Succeeded("Capture payment completed", rec.CaptureID), nil
	})
}

// Purchase captures the processor order orderID directly.
func (g *Gateway) Purchase(ctx context.Context, amountInCents int64, orderID string, _ gateway.Options) *gateway.Response {
	return g.run(ctx, opPurchase, orderID, amountInCents, "", func(ctx context.Context) (*gateway.Response, error) {
		rec, unlock, err := g.acquire(ctx, g.repo.FindByOrderID, orderID)
		if err != nil {
			return nil, err
		}
		defer unlock()

		res, err := g.client.post(ctx, endpointCaptureOrder, orderID, nil)
		if err != nil {
			return nil, err
		}
		doc := res.Doc
		if doc.Text("status") != statusCompleted {
			return declined(doc), nil
		}

		capture := doc.Get("purchase_units", 0, "payments", "captures", 0)
		rec.OrderStatus = doc.Text("status")
		rec.CaptureID = capture.Text("id")
		rec.CaptureStatus = capture.Text("status")
		if err := g.repo.Save(ctx, rec); err != nil {
			return nil, err
		}
		return gateway.Succeeded("Purchase order completed", rec.CaptureID), nil
	})
}

type refundRequest struct {
	Amount      checkout.Money `json:"amount"`
	NoteToPayer string         `json:"note_to_payer"`
}

func newRefundRequest(amountInCents int64, o *gateway.Originator) refundRequest {
	return refundRequest{
		Amount: checkout.Money{
			CurrencyCode: o.Currency,
			Value:        decimal.New(amountInCents, -2).StringFixed(2),
		},
		NoteToPayer: o.Reason,
	}
}

// Credit refunds amountInCents of captureID and appends the refund to the
// checkout order's ledger.
func (g *Gateway) Credit(ctx context.Context, amountInCents int64, captureID string, opts gateway.Options) *gateway.Response {
	currency := ""
	if opts.Originator != nil {
		currency = opts.Originator.Currency
	}
	return g.run(ctx, opCredit, captureID, amountInCents, currency, func(ctx context.Context) (*gateway.Response, error) {
		if opts.Originator == nil {
			return nil, ErrMissingOriginator
		}
		rec, unlock, err := g.acquire(ctx, g.repo.FindByCaptureID, captureID)
		if err != nil {
			return nil, err
		}
		defer unlock()

		res, err := g.client.post(ctx, endpointRefundPayment, captureID, newRefundRequest(amountInCents, opts.Originator))
		if err != nil {
			return nil, err
		}
		doc := res.Doc
		if doc.Text("status") != statusCompleted {
			return declined(doc), nil
		}

		refundID := doc.Text("id")
		rec.AppendRefund(store.Refund{RefundID: refundID, RefundStatus: doc.Text("status")})
		if err := g.repo.Save(ctx, rec); err != nil {
			return nil, err
		}
		return gateway.Succeeded("Refund payment completed", refundID), nil
	})
}

// Void cancels authorizationID. The processor answers a successful void
// with 204 and no body.
func (g *Gateway) Void(ctx context.Context, authorizationID string, _ gateway.Options) *gateway.Response {
	return g.run(ctx, opVoid, authorizationID, 0, "", func(ctx context.Context) (*gateway.Response, error) {
		rec, unlock, err := g.acquire(ctx, g.repo.FindByAuthorizationID, authorizationID)
		if err != nil {
			return nil, err
		}
		defer unlock()
		if err := capturable(rec, authorizationID); err != nil {
			return nil, err
		}

		res, err := g.client.post(ctx, endpointVoidPayment, authorizationID, nil)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusNoContent {
			return gateway.Failed(fmt.Sprintf("Invalid http code %d", res.StatusCode), ""), nil
		}

		rec.AuthorizationStatus = statusVoided
		if err := g.repo.Save(ctx, rec); err != nil {
			return nil, err
		}
		return gateway.Succeeded("Void payment completed", authorizationID), nil
	})
}

// Cancel refunds whatever is still refundable on payment. The refund is
// best effort: its outcome is logged and Cancel always succeeds.
func (g *Gateway) Cancel(ctx context.Context, responseCode string, payment gateway.Payment) *gateway.Response {
	return g.run(ctx, opCancel, responseCode, 0, "", func(ctx context.Context) (*gateway.Response, error) {
		if payment != nil {
			if allowed := payment.CreditAllowed(); allowed.IsPositive() {
				if err := payment.CreateRefund(ctx, allowed, CancelRefundReason); err != nil {
					g.logger.Warn("cancel refund failed",
						zap.String("response_code", responseCode),
						zap.String("amount", allowed.String()),
						zap.Error(err))
				}
			}
		}
		return gateway.Succeeded("Payment all refunded", ""), nil
	})
}

// acquire resolves a checkout order through find, locks it and reloads it
// so the caller works on the latest version.
func (g *Gateway) acquire(ctx context.Context, find func(context.Context, string) (*store.CheckoutOrder, error), key string) (*store.CheckoutOrder, func(), error) {
	found, err := find(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("paypal: checkout order for %q: %w", key, err)
	}
	unlock := g.locks.Lock(found.ID)
	rec, err := g.repo.FindByID(ctx, found.ID)
	if err != nil {
		unlock()
		return nil, nil, fmt.Errorf("paypal: reload checkout order %d: %w", found.ID, err)
	}
	return rec, unlock, nil
}

// capturable reports whether authorizationID is still the open authorization
// of the freshly reloaded rec.
func capturable(rec *store.CheckoutOrder, authorizationID string) error {
	switch {
	case rec.CaptureID != "":
		return ErrAlreadyCaptured
	case rec.AuthorizationID != authorizationID:
		return ErrAuthorizationReplaced
	}
	return nil
}

// run is the boundary of every gateway operation. Errors and panics from fn
// become failed responses; nothing escapes to the caller.
func (g *Gateway) run(ctx context.Context, op, reference string, amountInCents int64, currency string, fn func(context.Context) (*gateway.Response, error)) (resp *gateway.Response) {
	ctx, span := g.tracer.Start(ctx, "paypal."+op, trace.WithAttributes(
		attribute.String("paypal.reference", reference),
		attribute.Int64("paypal.amount_cents", amountInCents),
	))
	start := g.now()

	defer func() {
		if r := recover(); r != nil {
			resp = gateway.Failed(panicMessage(r), "")
			g.logger.Error("gateway operation panicked",
				zap.String("operation", op),
				zap.String("reference", reference),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
		g.finish(span, op, reference, amountInCents, currency, start, resp)
	}()

	r, err := fn(ctx)
	if err != nil {
		g.logger.Warn("gateway operation failed",
			zap.String("operation", op),
			zap.String("reference", reference),
			zap.Error(err))
		return gateway.Failed(failureMessage(err), "")
	}
	return r
}

func (g *Gateway) finish(span trace.Span, op, reference string, amountInCents int64, currency string, start time.Time, resp *gateway.Response) {
	defer span.End()

	outcome, status := "success", reporting.StatusSuccess
	if resp.Failure() {
		outcome, status = "failure", reporting.StatusFailure
		span.SetStatus(codes.Error, resp.Message)
	}
	span.SetAttributes(attribute.Bool("paypal.success", resp.Success))
	operationsTotal.WithLabelValues(op, outcome).Inc()
	operationDuration.WithLabelValues(op).Observe(g.now().Sub(start).Seconds())

	entry := reporting.LogEntry{
		Operation:   op,
		Reference:   reference,
		Status:      status,
		AmountCents: amountInCents,
		Currency:    currency,
	}
	if resp.Failure() {
		entry.ErrorCode = resp.ErrorCode
		entry.ErrorMessage = resp.Message
	}
	g.record(entry)

	g.logger.Debug("gateway operation finished",
		zap.String("operation", op),
		zap.String("reference", reference),
		zap.Bool("success", resp.Success),
		zap.String("message", resp.Message),
		zap.String("authorization", resp.Authorization))
}

func (g *Gateway) record(entry reporting.LogEntry) {
	if g.recorder == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = g.now()
	}
	g.recorder.Record(entry)
}

// declined turns a processor error document into a failed response.
func declined(doc *Document) *gateway.Response {
	return gateway.Failed(doc.Text("message"), doc.Text("debug_id"))
}

func failureMessage(err error) string {
	for sentinel, msg := range preconditionMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

func panicMessage(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(r)
}
