package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/promofunnel/pixpay/pkg/types"
)

// ErrNotConfigured signals a missing provider credential. Fatal to the
// operation, never to the process.
var ErrNotConfigured = errors.New("credentials not configured")

// GatewayError is a non-2xx or malformed response from a payment provider.
// Full detail is for server-side logs only.
type GatewayError struct {
	Provider   types.PaymentProvider
	StatusCode int
	Message    string
	// DecodeFailure marks a response body that was not valid JSON.
	DecodeFailure bool
}

func (e *GatewayError) Error() string {
	if e.DecodeFailure {
		return fmt.Sprintf("%s: failed to decode response (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ValidationError is a malformed customer/amount input rejected before any
// outbound call. The message is safe to surface to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// CreatePixRequest is the canonical charge-creation input shared by every
// adapter. Amount is in major units; each adapter applies the single
// rounding rule when a provider wants cents.
type CreatePixRequest struct {
	Customer    types.CustomerInfo
	Address     *types.Address
	Amount      float64
	Description string
	OrderID     string
	UTM         *types.UTMParams
	WebhookURL  string
	ClientIP    string
}

// CreatePixResult is the uniform creation outcome.
type CreatePixResult struct {
	TransactionID string
	PixPayload    string
	SecureURL     string
}

// TransactionStatusResult is the uniform status outcome. IsPaid comes from
// an explicit per-provider equality check against that provider's paid
// sentinel.
type TransactionStatusResult struct {
	NativeStatus string
	Status       types.TransactionStatus
	IsPaid       bool
}

// Client is the only surface shared across providers. Each adapter performs
// exactly one outbound HTTP call per operation and never retries.
type Client interface {
	Provider() types.PaymentProvider
	CreatePixTransaction(ctx context.Context, req *CreatePixRequest) (*CreatePixResult, error)
	GetTransaction(ctx context.Context, transactionID string) (*TransactionStatusResult, error)
}

const bodySnippetLimit = 500

// decodeJSONResponse reads the full body and unmarshals it into out,
// returning a decode-marked GatewayError with a truncated body snippet when
// the provider answered with something that is not JSON.
func decodeJSONResponse(provider types.PaymentProvider, resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{Provider: provider, StatusCode: resp.StatusCode, Message: err.Error(), DecodeFailure: true}
	}
	if err := json.Unmarshal(body, out); err != nil {
		snippet := string(body)
		if len(snippet) > bodySnippetLimit {
			snippet = snippet[:bodySnippetLimit]
		}
		return &GatewayError{Provider: provider, StatusCode: resp.StatusCode, Message: snippet, DecodeFailure: true}
	}
	return nil
}

func newJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// firstNonEmpty picks the provider's error message out of the usual
// message/error field pair.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
