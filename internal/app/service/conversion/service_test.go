package conversion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/pkg/types"
)

func testData() *ConversionData {
	return &ConversionData{
		OrderID:       "PIX-1700000000000-a1b2c3",
		TransactionID: "tx-99",
		Amount:        29.51,
		Customer: types.CustomerInfo{
			Name:  "Maria Souza",
			Email: "maria@example.com",
			Phone: "(11) 98888-7777",
			CPF:   "529.982.247-25",
		},
		Product: ProductData{Name: "Premio Especial", Price: 29.51, Quantity: 1},
		UTM: &types.UTMParams{
			UTMSource:   "facebook",
			UTMCampaign: "launch",
		},
	}
}

func newTestService(url string) *Service {
	return &Service{token: "tok-1", url: url, http: http.DefaultClient, log: zap.NewNop().Sugar()}
}

func TestSendBuildsUTMifyOrder(t *testing.T) {
	var captured map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tok-1", r.Header.Get("x-api-token"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestService(srv.URL).Send(context.Background(), testData())
	require.NoError(t, err)

	require.Equal(t, `"custom"`, string(captured["platform"]))
	require.Equal(t, `"paid"`, string(captured["status"]))
	require.Equal(t, `null`, string(captured["refundedAt"]))

	var customer utmifyCustomer
	require.NoError(t, json.Unmarshal(captured["customer"], &customer))
	require.Equal(t, "5511988887777", customer.Phone)
	require.Equal(t, "52998224725", customer.Document)
	require.Equal(t, "BR", customer.Country)

	var products []utmifyProduct
	require.NoError(t, json.Unmarshal(captured["products"], &products))
	require.Len(t, products, 1)
	require.Equal(t, "PROD-PIX-1700000000000-a1b2c3", products[0].ID)
	require.Equal(t, int64(2951), products[0].PriceInCents)

	var commission utmifyCommission
	require.NoError(t, json.Unmarshal(captured["commission"], &commission))
	require.Equal(t, int64(2951), commission.TotalPriceInCents)
	require.Equal(t, int64(2951), commission.UserCommissionInCents)
	require.Equal(t, int64(0), commission.GatewayFeeInCents)
	require.Equal(t, "BRL", commission.Currency)
}

func TestSendAbsentUTMFieldsAreExplicitNulls(t *testing.T) {
	order := buildOrder(testData(), time.Now())
	raw, err := json.Marshal(order)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	var tracking map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(m["trackingParameters"], &tracking))

	require.Equal(t, `"facebook"`, string(tracking["utm_source"]))
	require.Equal(t, `null`, string(tracking["utm_medium"]))
	require.Equal(t, `null`, string(tracking["src"]))
	require.Equal(t, `null`, string(tracking["sck"]))
	require.Equal(t, `null`, string(tracking["utm_term"]))
}

func TestSendAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newTestService(srv.URL).Send(context.Background(), testData())
	var fwdErr *ForwardError
	require.ErrorAs(t, err, &fwdErr)
	require.Equal(t, ForwardErrorAuth, fwdErr.Kind)
	require.Equal(t, http.StatusUnauthorized, fwdErr.StatusCode)
}

func TestSendValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid order"}`))
	}))
	defer srv.Close()

	err := newTestService(srv.URL).Send(context.Background(), testData())
	var fwdErr *ForwardError
	require.ErrorAs(t, err, &fwdErr)
	require.Equal(t, ForwardErrorValidation, fwdErr.Kind)
	require.Contains(t, fwdErr.Detail, "invalid order")
}

func TestSendMissingToken(t *testing.T) {
	svc := &Service{token: "", url: "http://127.0.0.1:1", http: http.DefaultClient, log: zap.NewNop().Sugar()}
	err := svc.Send(context.Background(), testData())
	require.ErrorIs(t, err, ErrTokenNotConfigured)
}

func TestPaymentMethodDefaultsToPix(t *testing.T) {
	data := testData()
	data.PaymentMethod = ""
	order := buildOrder(data, time.Now())
	require.Equal(t, "pix", order.PaymentMethod)
}
