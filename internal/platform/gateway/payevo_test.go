package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/pkg/types"
)

func newPayevoForTest(t *testing.T, url string) *Payevo {
	t.Helper()
	return &Payevo{secretKey: "pe_test", companyID: "co_1", baseURL: url, http: http.DefaultClient, log: zap.NewNop().Sugar()}
}

func TestPayevo_CreatePix_SanitizesDocumentAndPhone(t *testing.T) {
	var got payevoCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"id":  "pe-tx-1",
			"pix": map[string]string{"qrcode": "000201payload"},
		})
	}))
	defer srv.Close()

	c := newPayevoForTest(t, srv.URL)
	res, err := c.CreatePixTransaction(context.Background(), &CreatePixRequest{
		Customer:    testCustomer(),
		Amount:      29.51,
		Description: "Camisa Oficial 2025",
		OrderID:     "PIX-2-def",
		WebhookURL:  "https://funnel.example.com/api/v1/webhook/payevo",
	})
	require.NoError(t, err)
	require.Equal(t, "pe-tx-1", res.TransactionID)

	require.Equal(t, int64(2951), got.Amount)
	require.Equal(t, "PIX", got.PaymentMethod)
	require.Equal(t, "12345678909", got.Customer.CPF)
	require.Equal(t, "11999999999", got.Customer.Phone)
	require.Equal(t, "PIX-2-def", got.Items[0].ExternalRef)
	require.Equal(t, "https://funnel.example.com/api/v1/webhook/payevo", got.PostbackURL)
}

func TestPayevo_CreatePix_ZeroFillsMissingDocument(t *testing.T) {
	var got payevoCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"id": "pe-tx-2"})
	}))
	defer srv.Close()

	c := newPayevoForTest(t, srv.URL)
	_, err := c.CreatePixTransaction(context.Background(), &CreatePixRequest{
		Customer: types.CustomerInfo{Name: "Jo"},
		Amount:   5,
	})
	require.NoError(t, err)
	require.Equal(t, "00000000000", got.Customer.CPF)
	require.Equal(t, "11999999999", got.Customer.Phone)
}

func TestPayevo_CreatePix_SkipsLocalhostPostback(t *testing.T) {
	var got payevoCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"id": "pe-tx-3"})
	}))
	defer srv.Close()

	c := newPayevoForTest(t, srv.URL)
	_, err := c.CreatePixTransaction(context.Background(), &CreatePixRequest{
		Customer:   testCustomer(),
		Amount:     5,
		WebhookURL: "http://localhost:8888/api/v1/webhook/payevo",
	})
	require.NoError(t, err)
	require.Empty(t, got.PostbackURL)
}

func TestPayevo_CreatePix_NonJSONResponseIsDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream error</html>"))
	}))
	defer srv.Close()

	c := newPayevoForTest(t, srv.URL)
	_, err := c.CreatePixTransaction(context.Background(), &CreatePixRequest{Customer: testCustomer(), Amount: 5})
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	require.True(t, ge.DecodeFailure)
	require.Contains(t, ge.Message, "upstream error")
}

func TestPayevo_CreatePix_MissingCompanyID(t *testing.T) {
	c := &Payevo{secretKey: "pe_test", baseURL: "http://unused", http: http.DefaultClient, log: zap.NewNop().Sugar()}
	_, err := c.CreatePixTransaction(context.Background(), &CreatePixRequest{Customer: testCustomer(), Amount: 5})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestPayevo_GetTransaction_PaidSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "pe-tx-1", "status": "paid"})
	}))
	defer srv.Close()

	c := newPayevoForTest(t, srv.URL)
	res, err := c.GetTransaction(context.Background(), "pe-tx-1")
	require.NoError(t, err)
	require.True(t, res.IsPaid)
	require.Equal(t, "paid", res.NativeStatus)
}

func TestPayevo_GetTransaction_RefusedMapsCanonical(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "pe-tx-1", "status": "refused"})
	}))
	defer srv.Close()

	c := newPayevoForTest(t, srv.URL)
	res, err := c.GetTransaction(context.Background(), "pe-tx-1")
	require.NoError(t, err)
	require.False(t, res.IsPaid)
	require.Equal(t, types.TransactionStatusRefused, res.Status)
}
