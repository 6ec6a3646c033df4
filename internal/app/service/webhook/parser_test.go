package webhook

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promofunnel/pixpay/pkg/types"
)

func TestEnvelopeParserPaidEvent(t *testing.T) {
	raw := []byte(`{
		"id": "evt-1",
		"type": "transaction",
		"data": {
			"id": 48213,
			"status": "paid",
			"amount": 2951,
			"paidAt": "2026-08-30T14:22:01Z",
			"metadata": "{\"orderId\":\"PIX-1700000000000-a1b2c3\",\"utm_source\":\"facebook\",\"src\":\"ad-7\"}",
			"customer": {"name": "Maria Souza", "email": "maria@example.com", "phone": "11988887777", "cpf": "52998224725"}
		}
	}`)

	event, err := NewPayevoParser().Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "48213", event.TransactionID)
	require.Equal(t, types.TransactionStatusPaid, event.Status)
	require.True(t, event.Actionable)
	require.NotNil(t, event.PaidAt)
	require.Equal(t, int64(2951), event.AmountCents)
	require.Equal(t, "PIX-1700000000000-a1b2c3", event.OrderID)
	require.NotNil(t, event.UTM)
	require.Equal(t, "facebook", event.UTM.UTMSource)
	require.Equal(t, "ad-7", event.UTM.Src)
	require.NotNil(t, event.Customer)
	require.Equal(t, "52998224725", event.Customer.CPF)
}

func TestEnvelopeParserIgnoresNonTransactionTypes(t *testing.T) {
	event, err := NewSkalePayParser().Parse([]byte(`{"type":"checkout","data":{"id":"x"}}`))
	require.NoError(t, err)
	require.False(t, event.Actionable)
}

func TestEnvelopeParserWaitingIsNotActionable(t *testing.T) {
	event, err := NewSkalePayParser().Parse([]byte(`{"type":"transaction","data":{"id":"tx-1","status":"waiting_payment"}}`))
	require.NoError(t, err)
	require.Equal(t, types.TransactionStatusWaitingPayment, event.Status)
	require.False(t, event.Actionable)
}

func TestEnvelopeParserRejectsGarbage(t *testing.T) {
	_, err := NewPayevoParser().Parse([]byte(`not json at all`))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, types.PaymentProviderPayevo, parseErr.Provider)
}

func TestEnvelopeParserSkalePayDocumentFallback(t *testing.T) {
	raw := []byte(`{"type":"transaction","data":{"id":"tx-2","status":"refused","customer":{"name":"Ana","document":{"number":"12345678909"}}}}`)
	event, err := NewSkalePayParser().Parse(raw)
	require.NoError(t, err)
	require.Equal(t, types.TransactionStatusRefused, event.Status)
	require.True(t, event.Actionable)
	require.Equal(t, "12345678909", event.Customer.CPF)
}

func TestSunizeParserMapsNativeVocabulary(t *testing.T) {
	raw := []byte(`{
		"id": 910,
		"external_id": "PIX-1700000000000-a1b2c3",
		"status": "AUTHORIZED",
		"total_value": 29.51,
		"paid_at": "2026-08-30T14:22:01Z",
		"customer": {"name": "Maria", "email": "maria@example.com", "phone": "11988887777", "document": "52998224725"}
	}`)

	event, err := NewSunizeParser().Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "910", event.TransactionID)
	require.Equal(t, "PIX-1700000000000-a1b2c3", event.OrderID)
	require.Equal(t, types.TransactionStatusPaid, event.Status)
	require.Equal(t, int64(2951), event.AmountCents)
}

func TestSunizeParserPendingAndDispute(t *testing.T) {
	for _, native := range []string{"PENDING", "IN_DISPUTE"} {
		event, err := NewSunizeParser().Parse([]byte(`{"id":1,"status":"` + native + `"}`))
		require.NoError(t, err, native)
		require.Equal(t, types.TransactionStatusWaitingPayment, event.Status, native)
		require.False(t, event.Actionable, native)
	}

	event, err := NewSunizeParser().Parse([]byte(`{"id":1,"status":"CHARGEBACK"}`))
	require.NoError(t, err)
	require.Equal(t, types.TransactionStatusChargedback, event.Status)
	require.True(t, event.Actionable)
}

func TestDuttyfyParserCompletedDecodesUTMQuery(t *testing.T) {
	raw := []byte(`{
		"transactionId": "dt-55",
		"status": "COMPLETED",
		"amount": 29.51,
		"description": "Taxa de envio",
		"utm": "utm_source=google&utm_campaign=promo",
		"customer": {"name": "João", "document": "52998224725"}
	}`)

	event, err := NewDuttyfyParser().Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "dt-55", event.TransactionID)
	require.Equal(t, "dt-55", event.OrderID)
	require.Equal(t, types.TransactionStatusPaid, event.Status)
	require.Equal(t, int64(2951), event.AmountCents)
	require.Equal(t, "Taxa de envio", event.ProductName)
	require.NotNil(t, event.UTM)
	require.Equal(t, "google", event.UTM.UTMSource)
	require.Equal(t, "promo", event.UTM.UTMCampaign)
}

func TestDuttyfyParserPendingIsAcknowledged(t *testing.T) {
	event, err := NewDuttyfyParser().Parse([]byte(`{"status":"PENDING"}`))
	require.NoError(t, err)
	require.False(t, event.Actionable)
}

func TestDuttyfyParserCompletedWithoutIDFails(t *testing.T) {
	_, err := NewDuttyfyParser().Parse([]byte(`{"status":"COMPLETED"}`))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}
