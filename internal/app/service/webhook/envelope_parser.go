package webhook

import (
	"encoding/json"

	"github.com/promofunnel/pixpay/pkg/types"
)

// Payevo and SkalePay push the same envelope shape: a typed wrapper whose
// data block carries an already-canonical status and the metadata string we
// attached at charge creation.
type pushEnvelope struct {
	Type string `json:"type"`
	Data struct {
		ID       flexID `json:"id"`
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		PaidAt   string `json:"paidAt"`
		Metadata string `json:"metadata"`
		Customer *struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Phone    string `json:"phone"`
			CPF      string `json:"cpf"`
			Document struct {
				Number string `json:"number"`
			} `json:"document"`
		} `json:"customer"`
	} `json:"data"`
}

type envelopeParser struct {
	provider types.PaymentProvider
}

func NewPayevoParser() EventParser {
	return &envelopeParser{provider: types.PaymentProviderPayevo}
}

func NewSkalePayParser() EventParser {
	return &envelopeParser{provider: types.PaymentProviderSkalePay}
}

func (p *envelopeParser) Provider() types.PaymentProvider { return p.provider }

func (p *envelopeParser) Parse(raw []byte) (*Event, error) {
	var payload pushEnvelope
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ParseError{Provider: p.provider, Detail: err.Error()}
	}

	// Checkout and transfer events carry no transaction data.
	if payload.Type != "transaction" {
		return &Event{
			Provider:     p.provider,
			NativeStatus: payload.Type,
			Actionable:   false,
		}, nil
	}
	if payload.Data.ID == "" {
		return nil, &ParseError{Provider: p.provider, Detail: "missing transaction id"}
	}

	status := types.TransactionStatus(payload.Data.Status)
	if !status.Valid() {
		status = types.TransactionStatusWaitingPayment
	}

	event := &Event{
		Provider:      p.provider,
		TransactionID: string(payload.Data.ID),
		NativeStatus:  payload.Data.Status,
		Status:        status,
		Actionable:    actionable(status),
		AmountCents:   payload.Data.Amount,
	}
	if status == types.TransactionStatusPaid {
		event.PaidAt = parseEventTime(payload.Data.PaidAt)
	}
	if c := payload.Data.Customer; c != nil {
		cpf := c.CPF
		if cpf == "" {
			cpf = c.Document.Number
		}
		event.Customer = &types.CustomerInfo{
			Name:  c.Name,
			Email: c.Email,
			Phone: c.Phone,
			CPF:   cpf,
		}
	}
	event.OrderID, event.UTM = decodeMetadata(payload.Data.Metadata)
	return event, nil
}

// decodeMetadata unpacks the flat JSON string attached at charge creation.
// Malformed metadata is dropped, not fatal: the local record remains the
// authoritative source for attribution.
func decodeMetadata(raw string) (string, *types.UTMParams) {
	if raw == "" {
		return "", nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return "", nil
	}
	utm := &types.UTMParams{
		UTMSource:   m["utm_source"],
		UTMMedium:   m["utm_medium"],
		UTMCampaign: m["utm_campaign"],
		UTMTerm:     m["utm_term"],
		UTMContent:  m["utm_content"],
		Src:         m["src"],
		Sck:         m["sck"],
	}
	if utm.IsZero() {
		utm = nil
	}
	return m["orderId"], utm
}
