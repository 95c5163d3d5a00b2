package paypal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/paypal-checkout/internal/store"
)

const (
	testAPIKey    = "client-id"
	testSecretKey = "client-secret"
	testToken     = "A21AA-test-token"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type recordedCall struct {
	Path      string
	Body      []byte
	Auth      string
	RequestID string
}

// fakePayPal is an httptest processor. Token requests are answered
// automatically; every other path needs a registered handler.
type fakePayPal struct {
	t        *testing.T
	server   *httptest.Server
	mu       sync.Mutex
	calls    []recordedCall
	tokens   int
	handlers map[string]http.HandlerFunc
}

func newFakePayPal(t *testing.T) *fakePayPal {
	t.Helper()
	f := &fakePayPal{t: t, handlers: make(map[string]http.HandlerFunc)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePayPal) serve(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, http.MethodPost, r.Method)
	body, _ := io.ReadAll(r.Body)

	if r.URL.Path == "/"+tokenPath {
		user, pass, ok := r.BasicAuth()
		assert.True(f.t, ok, "token request must use basic auth")
		assert.Equal(f.t, testAPIKey, user)
		assert.Equal(f.t, testSecretKey, pass)
		assert.Equal(f.t, "grant_type=client_credentials", string(body))
		f.mu.Lock()
		f.tokens++
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"access_token": testToken, "token_type": "Bearer"})
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		Path:      r.URL.Path,
		Body:      body,
		Auth:      r.Header.Get("Authorization"),
		RequestID: r.Header.Get("PayPal-Request-Id"),
	})
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"name":     "RESOURCE_NOT_FOUND",
			"message":  "The specified resource does not exist.",
			"debug_id": "not-found-debug",
		})
		return
	}
	h(w, r)
}

func (f *fakePayPal) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakePayPal) respond(path string, status int, body any) {
	f.handle(path, func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, status, body) })
}

func (f *fakePayPal) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Path)
	}
	return out
}

func (f *fakePayPal) lastCall() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.calls)
	return f.calls[len(f.calls)-1]
}

func (f *fakePayPal) tokenRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestGateway(t *testing.T, server string, opts ...Option) (*Gateway, *store.InMemoryRepository) {
	t.Helper()
	repo := store.NewInMemoryRepository()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	g, err := NewGateway(Config{
		APIKey:    testAPIKey,
		SecretKey: testSecretKey,
		Server:    server,
	}, repo, opts...)
	require.NoError(t, err)
	return g, repo
}

func seedOrder(t *testing.T, repo store.Repository, order *store.CheckoutOrder) *store.CheckoutOrder {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func reload(t *testing.T, repo store.Repository, id uint) *store.CheckoutOrder {
	t.Helper()
	rec, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return rec
}

// failingTransport fails every round trip with err.
type failingTransport struct {
	err   error
	mu    sync.Mutex
	calls int
}

func (ft *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	ft.mu.Lock()
	ft.calls++
	ft.mu.Unlock()
	return nil, ft.err
}
