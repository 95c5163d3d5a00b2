package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/paypal-checkout/internal/circuitbreaker"
)

const (
	DefaultServer      = "api-m.sandbox.paypal.com"
	defaultHTTPTimeout = 30 * time.Second
	tokenPath          = "v1/oauth2/token"
)

type endpoint struct {
	name    string
	pattern string
}

var (
	endpointCreateOrder        = endpoint{"create_order", "v2/checkout/orders"}
	endpointAuthorizeOrder     = endpoint{"authorize_order", "v2/checkout/orders/%s/authorize"}
	endpointCaptureOrder       = endpoint{"capture_order", "v2/checkout/orders/%s/capture"}
	endpointReauthorizePayment = endpoint{"reauthorize_payment", "v2/payments/authorizations/%s/reauthorize"}
	endpointCapturePayment     = endpoint{"capture_payment", "v2/payments/authorizations/%s/capture"}
	endpointVoidPayment        = endpoint{"void_payment", "v2/payments/authorizations/%s/void"}
	endpointRefundPayment      = endpoint{"refund_payment", "v2/payments/captures/%s/refund"}
)

func (e endpoint) path(id string) string {
	if !strings.Contains(e.pattern, "%s") {
		return e.pattern
	}
	return fmt.Sprintf(e.pattern, url.PathEscape(id))
}

var processorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "paypal_checkout_processor_requests_total",
	Help: "Requests sent to the payment processor, by endpoint and HTTP status code.",
}, []string{"endpoint", "code"})

// apiResponse is a processor reply. Doc is empty for bodiless replies.
type apiResponse struct {
	StatusCode int
	Doc        *Document
}

// Client executes authenticated JSON requests against the processor.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	host         string
	tokens       *TokenProvider
	breaker      *circuitbreaker.CircuitBreaker
	tracer       trace.Tracer
	newRequestID func() string
}

// baseURLFor turns a configured server into a base URL. A bare host gets the
// https scheme; a value that already carries a scheme is used as is.
func baseURLFor(server string) (string, string, error) {
	if server == "" {
		server = DefaultServer
	}
	if !strings.Contains(server, "://") {
		server = "https://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", "", fmt.Errorf("paypal: invalid server %q: %w", server, err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("paypal: invalid server %q: missing host", server)
	}
	return strings.TrimRight(u.String(), "/"), u.Host, nil
}

// post sends payload as JSON to ep. A nil payload sends an empty body.
func (c *Client) post(ctx context.Context, ep endpoint, id string, payload any) (*apiResponse, error) {
	if !c.breaker.AllowRequest(c.host) {
		return nil, fmt.Errorf("paypal: %s: %w", c.host, circuitbreaker.ErrOpen)
	}

	ctx, span := c.tracer.Start(ctx, "paypal.http."+ep.name)
	defer span.End()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.breaker.RecordFailure(c.host)
		span.RecordError(err)
		return nil, err
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("paypal: encode %s request: %w", ep.name, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+ep.path(id), body)
	if err != nil {
		return nil, fmt.Errorf("paypal: create %s request: %w", ep.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("PayPal-Request-Id", c.newRequestID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure(c.host)
		span.RecordError(err)
		return nil, unwrapTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure(c.host)
		return nil, fmt.Errorf("paypal: read %s response: %w", ep.name, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.RecordFailure(c.host)
	} else {
		c.breaker.RecordSuccess(c.host)
	}
	processorRequests.WithLabelValues(ep.name, strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return &apiResponse{StatusCode: resp.StatusCode, Doc: ParseDocument(respBody)}, nil
}

// unwrapTransportError strips the *url.Error wrapper so the caller sees the
// underlying transport failure message.
func unwrapTransportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}

func newRequestID() string {
	return uuid.NewString()
}
