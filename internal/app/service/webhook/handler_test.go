package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/internal/app/service/conversion"
	"github.com/promofunnel/pixpay/internal/app/service/transaction"
	"github.com/promofunnel/pixpay/internal/models"
	"github.com/promofunnel/pixpay/pkg/types"
)

type stubStore struct {
	rows        map[string]*models.Transaction
	lookupErr   error
	updates     []types.TransactionStatus
	markedCalls int
}

func newStubStore(rows ...*models.Transaction) *stubStore {
	s := &stubStore{rows: map[string]*models.Transaction{}}
	for _, r := range rows {
		s.rows[r.TransactionID] = r
	}
	return s
}

func (s *stubStore) Create(ctx context.Context, txn *models.Transaction) error {
	s.rows[txn.TransactionID] = txn
	return nil
}

func (s *stubStore) GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	for _, r := range s.rows {
		if r.OrderID == orderID {
			return r, nil
		}
	}
	return nil, transaction.ErrTransactionNotFound
}

func (s *stubStore) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if r, ok := s.rows[transactionID]; ok {
		return r, nil
	}
	return nil, transaction.ErrTransactionNotFound
}

func (s *stubStore) UpdateStatus(ctx context.Context, transactionID string, status types.TransactionStatus, paidAt *time.Time) error {
	s.updates = append(s.updates, status)
	if r, ok := s.rows[transactionID]; ok {
		r.Status = status
		if r.PaidAt == nil && paidAt != nil {
			r.PaidAt = paidAt
		}
	}
	return nil
}

func (s *stubStore) MarkConversionSent(ctx context.Context, transactionID string) (bool, error) {
	s.markedCalls++
	r, ok := s.rows[transactionID]
	if !ok {
		return false, transaction.ErrTransactionNotFound
	}
	if r.UTMifySent {
		return false, nil
	}
	r.UTMifySent = true
	return true, nil
}

func (s *stubStore) ScanTransactions(ctx context.Context, req *transaction.ScanRequest) (*transaction.ScanResponse, error) {
	return &transaction.ScanResponse{}, nil
}

type stubForwarder struct {
	sent []*conversion.ConversionData
	err  error
}

func (f *stubForwarder) Send(ctx context.Context, data *conversion.ConversionData) error {
	f.sent = append(f.sent, data)
	return f.err
}

func (f *stubForwarder) SendAsync(ctx context.Context, data *conversion.ConversionData) {
	_ = f.Send(ctx, data)
}

type stubRawLog struct{ saved []*models.WebhookLog }

func (l *stubRawLog) Save(ctx context.Context, entry *models.WebhookLog) {
	l.saved = append(l.saved, entry)
}

func strptr(s string) *string { return &s }

func storedRow() *models.Transaction {
	return &models.Transaction{
		OrderID:         "PIX-1700000000000-a1b2c3",
		TransactionID:   "tx-1",
		ProviderID:      types.PaymentProviderPayevo,
		Status:          types.TransactionStatusWaitingPayment,
		Amount:          2951,
		ProductPrice:    2951,
		CustomerName:    "Maria Souza",
		CustomerEmail:   "maria@example.com",
		CustomerPhone:   "11988887777",
		CustomerCPF:     "52998224725",
		ProductName:     "Premio Especial",
		ProductQuantity: 1,
		PaymentMethod:   "pix",
		UTMSource:       strptr("facebook"),
	}
}

func newTestHandler(store transaction.Store, fwd conversion.Forwarder) *Handler {
	return newHandler(store, fwd, &stubRawLog{}, zap.NewNop().Sugar())
}

const paidPayload = `{"type":"transaction","data":{"id":"tx-1","status":"paid","paidAt":"2026-08-30T14:22:01Z"}}`

func TestHandlePaidForwardsOnceFromStoredData(t *testing.T) {
	store := newStubStore(storedRow())
	fwd := &stubForwarder{}
	h := newTestHandler(store, fwd)

	err := h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(paidPayload))
	require.NoError(t, err)

	require.Len(t, fwd.sent, 1)
	data := fwd.sent[0]
	require.Equal(t, "PIX-1700000000000-a1b2c3", data.OrderID)
	require.Equal(t, "Maria Souza", data.Customer.Name)
	require.Equal(t, 29.51, data.Amount)
	require.NotNil(t, data.UTM)
	require.Equal(t, "facebook", data.UTM.UTMSource)
	require.Equal(t, types.TransactionStatusPaid, store.rows["tx-1"].Status)
	require.True(t, store.rows["tx-1"].UTMifySent)
}

func TestHandleDuplicatePaidForwardsOnce(t *testing.T) {
	store := newStubStore(storedRow())
	fwd := &stubForwarder{}
	h := newTestHandler(store, fwd)

	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(paidPayload)))
	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(paidPayload)))

	require.Len(t, fwd.sent, 1)
	require.Equal(t, 2, store.markedCalls)
}

func TestHandleRefusedNeverForwards(t *testing.T) {
	store := newStubStore(storedRow())
	fwd := &stubForwarder{}
	h := newTestHandler(store, fwd)

	payload := `{"type":"transaction","data":{"id":"tx-1","status":"refused"}}`
	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(payload)))

	require.Empty(t, fwd.sent)
	require.Equal(t, types.TransactionStatusRefused, store.rows["tx-1"].Status)
	require.Nil(t, store.rows["tx-1"].PaidAt)
	require.False(t, store.rows["tx-1"].UTMifySent)
}

func TestHandlePaidThenChargeback(t *testing.T) {
	store := newStubStore(storedRow())
	fwd := &stubForwarder{}
	h := newTestHandler(store, fwd)

	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(paidPayload)))
	chargeback := `{"type":"transaction","data":{"id":"tx-1","status":"chargedback"}}`
	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(chargeback)))

	require.Len(t, fwd.sent, 1)
	require.Equal(t, types.TransactionStatusChargedback, store.rows["tx-1"].Status)
	// the paid-at-once guard never resets
	require.True(t, store.rows["tx-1"].UTMifySent)
}

func TestHandleUnknownRowForwardsFromWebhookData(t *testing.T) {
	store := newStubStore()
	fwd := &stubForwarder{}
	h := newTestHandler(store, fwd)

	payload := `{
		"transactionId": "dt-9",
		"status": "COMPLETED",
		"amount": 47.9,
		"description": "Taxa de envio",
		"utm": "utm_source=google",
		"customer": {"name": "Ana", "email": "ana@example.com"}
	}`
	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderDuttyfy, []byte(payload)))

	require.Len(t, fwd.sent, 1)
	data := fwd.sent[0]
	require.Equal(t, "dt-9", data.OrderID)
	require.Equal(t, 47.9, data.Amount)
	require.Equal(t, "Ana", data.Customer.Name)
	require.Equal(t, "11999999999", data.Customer.Phone)
	require.Equal(t, "00000000000", data.Customer.CPF)
	require.Equal(t, "google", data.UTM.UTMSource)
}

func TestHandleStoreUnavailableStillForwards(t *testing.T) {
	store := newStubStore()
	store.lookupErr = transaction.ErrStoreUnavailable
	fwd := &stubForwarder{}
	h := newTestHandler(store, fwd)

	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(paidPayload)))
	require.Len(t, fwd.sent, 1)
}

func TestHandleNonActionableEventIsAckOnly(t *testing.T) {
	store := newStubStore(storedRow())
	fwd := &stubForwarder{}
	h := newTestHandler(store, fwd)

	payload := `{"type":"transaction","data":{"id":"tx-1","status":"waiting_payment"}}`
	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(payload)))

	require.Empty(t, fwd.sent)
	require.Empty(t, store.updates)
}

func TestHandleUnparseablePayloadReturnsError(t *testing.T) {
	h := newTestHandler(newStubStore(), &stubForwarder{})
	err := h.Handle(context.Background(), types.PaymentProviderPayevo, []byte("garbage"))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestHandleForwardFailureStaysInternal(t *testing.T) {
	store := newStubStore(storedRow())
	fwd := &stubForwarder{err: context.DeadlineExceeded}
	h := newTestHandler(store, fwd)

	// the provider still gets an ack
	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(paidPayload)))
	require.Len(t, fwd.sent, 1)
}

func TestHandleRawPayloadLogged(t *testing.T) {
	logs := &stubRawLog{}
	h := newHandler(newStubStore(storedRow()), &stubForwarder{}, logs, zap.NewNop().Sugar())

	require.NoError(t, h.Handle(context.Background(), types.PaymentProviderPayevo, []byte(paidPayload)))

	require.Len(t, logs.saved, 2)
	require.Equal(t, models.WebhookLogStatusReceived, logs.saved[0].Status)
	require.Equal(t, models.WebhookLogStatusHandled, logs.saved[1].Status)
	require.JSONEq(t, paidPayload, string(logs.saved[0].Data))
}
