package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/internal/app/service/conversion"
	"github.com/promofunnel/pixpay/internal/app/service/transaction"
	"github.com/promofunnel/pixpay/internal/app/service/webhook"
	"github.com/promofunnel/pixpay/internal/models"
	"github.com/promofunnel/pixpay/pkg/types"
)

type noopStore struct{}

func (noopStore) Create(ctx context.Context, txn *models.Transaction) error { return nil }

func (noopStore) GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	return nil, transaction.ErrTransactionNotFound
}

func (noopStore) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return nil, transaction.ErrTransactionNotFound
}

func (noopStore) UpdateStatus(ctx context.Context, transactionID string, status types.TransactionStatus, paidAt *time.Time) error {
	return nil
}

func (noopStore) MarkConversionSent(ctx context.Context, transactionID string) (bool, error) {
	return false, transaction.ErrTransactionNotFound
}

func (noopStore) ScanTransactions(ctx context.Context, req *transaction.ScanRequest) (*transaction.ScanResponse, error) {
	return &transaction.ScanResponse{}, nil
}

type countingForwarder struct{ calls int }

func (f *countingForwarder) Send(ctx context.Context, data *conversion.ConversionData) error {
	f.calls++
	return nil
}

func (f *countingForwarder) SendAsync(ctx context.Context, data *conversion.ConversionData) {
	_ = f.Send(ctx, data)
}

func newWebhookRouter(fwd *countingForwarder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	h := webhook.NewHandler(noopStore{}, fwd, nil, log)
	r := gin.New()
	RegisterWebhookRoutes(r.Group("/api/v1/webhook"), h, log)
	return r
}

func TestWebhookRouteAlwaysAcks(t *testing.T) {
	r := newWebhookRouter(&countingForwarder{})

	body := `{"type":"transaction","data":{"id":"tx-1","status":"waiting_payment"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/payevo", strings.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestWebhookRouteUnparseableBodyIs400(t *testing.T) {
	r := newWebhookRouter(&countingForwarder{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/sunize", strings.NewReader("not json"))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookRouteUnknownProviderIs404(t *testing.T) {
	r := newWebhookRouter(&countingForwarder{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/stripe", strings.NewReader("{}"))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookRoutePaidForwardsWithoutLocalRow(t *testing.T) {
	fwd := &countingForwarder{}
	r := newWebhookRouter(fwd)

	body := `{"type":"transaction","data":{"id":"tx-9","status":"paid","amount":2951}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/skalepay", strings.NewReader(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, fwd.calls)
}
