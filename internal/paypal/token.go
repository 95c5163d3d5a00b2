package paypal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenProvider fetches OAuth bearer tokens with the client credentials
// grant. Tokens are not cached; every processor call asks for a new one.
type TokenProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secretKey  string
}

func NewTokenProvider(client *http.Client, baseURL, apiKey, secretKey string) *TokenProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &TokenProvider{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		secretKey:  secretKey,
	}
}

// Token returns a fresh access token. A body without access_token yields an
// empty token; the following call then fails with the processor's
// authentication error.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: create token request: %w", err)
	}
	req.SetBasicAuth(p.apiKey, p.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", unwrapTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("paypal: read token response: %w", err)
	}
	return ParseDocument(body).Text("access_token"), nil
}
