package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/yourorg/paypal-checkout/internal/checkout"
	"github.com/yourorg/paypal-checkout/internal/gateway"
	"github.com/yourorg/paypal-checkout/internal/monitor"
	"github.com/yourorg/paypal-checkout/internal/paypal"
	"github.com/yourorg/paypal-checkout/internal/store"
)

// checkoutGateway is the gateway surface the HTTP API drives.
type checkoutGateway interface {
	gateway.Gateway
	OrderRequest(order checkout.Order) (*checkout.OrderRequest, error)
	CreateOrder(ctx context.Context, body any) (*paypal.Document, error)
}

type amountRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency    string `json:"currency"`
	Reason      string `json:"reason"`
}

type checkoutOrderView struct {
	*store.CheckoutOrder
	State   store.State `json:"state"`
	Actions []string    `json:"actions"`
}

func setupRouter(deps *dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware("paypal-checkout"))

	h := &handlers{deps: deps}
	router.POST("/paypal_checkout", h.createCheckout)
	router.GET("/checkout_orders/:order_id", h.showCheckoutOrder)
	router.POST("/checkout_orders/:order_id/authorize", h.authorize)
	router.POST("/checkout_orders/:order_id/purchase", h.purchase)
	router.POST("/authorizations/:authorization_id/capture", h.capture)
	router.POST("/authorizations/:authorization_id/void", h.void)
	router.POST("/captures/:capture_id/refund", h.refund)
	router.GET("/reports/retrospective", h.retrospective)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return router
}

type handlers struct {
	deps *dependencies
}

// createCheckout builds the processor order for a storefront order snapshot,
// checks it against the request contract and records the new checkout order.
func (h *handlers) createCheckout(c *gin.Context) {
	var order checkout.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	payload, err := h.deps.gateway.OrderRequest(order)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	valid, violations, err := h.deps.contract.ValidateValue(payload)
	if err != nil {
		h.deps.logger.Error("order request contract check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error validating order request"})
		return
	}
	if !valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Order request violates contract: " + monitor.FormatErrors(violations)})
		return
	}

	doc, err := h.deps.gateway.CreateOrder(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	orderID := doc.Text("id")
	if orderID == "" {
		c.JSON(http.StatusBadGateway, doc)
		return
	}

	rec := &store.CheckoutOrder{
		Intent:      payload.Intent,
		OrderID:     orderID,
		OrderStatus: doc.Text("status"),
	}
	if err := h.deps.repo.Create(c.Request.Context(), rec); err != nil {
		h.deps.logger.Error("persist checkout order", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist checkout order"})
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *handlers) showCheckoutOrder(c *gin.Context) {
	rec, err := h.deps.repo.FindByOrderID(c.Request.Context(), c.Param("order_id"))
	if errors.Is(err, store.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "checkout order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, checkoutOrderView{CheckoutOrder: rec, State: rec.State(), Actions: rec.Actions()})
}

func (h *handlers) authorize(c *gin.Context) {
	h.withAmount(c, func(ctx context.Context, amount int64) *gateway.Response {
		return h.deps.gateway.Authorize(ctx, amount, c.Param("order_id"), gateway.Options{})
	})
}

func (h *handlers) purchase(c *gin.Context) {
	h.withAmount(c, func(ctx context.Context, amount int64) *gateway.Response {
		return h.deps.gateway.Purchase(ctx, amount, c.Param("order_id"), gateway.Options{})
	})
}

func (h *handlers) capture(c *gin.Context) {
	h.withAmount(c, func(ctx context.Context, amount int64) *gateway.Response {
		return h.deps.gateway.Capture(ctx, amount, c.Param("authorization_id"), gateway.Options{})
	})
}

func (h *handlers) void(c *gin.Context) {
	respond(c, h.deps.gateway.Void(c.Request.Context(), c.Param("authorization_id"), gateway.Options{}))
}

// refund credits a capture. Without a currency no originator is passed and
// the gateway refuses the refund.
func (h *handlers) refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	var opts gateway.Options
	if req.Currency != "" {
		opts.Originator = &gateway.Originator{Currency: req.Currency, Reason: req.Reason}
	}
	respond(c, h.deps.gateway.Credit(c.Request.Context(), req.AmountCents, c.Param("capture_id"), opts))
}

// retrospective summarizes journal entries, optionally since an RFC 3339 time.
func (h *handlers) retrospective(c *gin.Context) {
	entries := h.deps.journal.Entries()
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC 3339 timestamp"})
			return
		}
		entries = h.deps.journal.Since(since)
	}
	report, err := h.deps.reporter.GenerateRetrospective(entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// withAmount binds an optional {amount_cents} body and runs op.
func (h *handlers) withAmount(c *gin.Context, op func(ctx context.Context, amount int64) *gateway.Response) {
	var req amountRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}
	respond(c, op(c.Request.Context(), req.AmountCents))
}

// respond writes a gateway response, 200 on success and 422 otherwise.
func respond(c *gin.Context, resp *gateway.Response) {
	status := http.StatusOK
	if resp.Failure() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, resp)
}
