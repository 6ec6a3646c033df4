package webhook

import (
	"encoding/json"

	"github.com/promofunnel/pixpay/internal/platform/gateway"
	"github.com/promofunnel/pixpay/pkg/money"
	"github.com/promofunnel/pixpay/pkg/types"
)

// Sunize pushes a flat payload in its native vocabulary with amounts in
// major units and the order id echoed as external_id.
type sunizePush struct {
	ID         flexID  `json:"id"`
	ExternalID string  `json:"external_id"`
	Status     string  `json:"status"`
	TotalValue float64 `json:"total_value"`
	PaidAt     string  `json:"paid_at"`
	Customer   *struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Document string `json:"document"`
	} `json:"customer"`
}

type sunizeParser struct{}

func NewSunizeParser() EventParser { return &sunizeParser{} }

func (p *sunizeParser) Provider() types.PaymentProvider { return types.PaymentProviderSunize }

func (p *sunizeParser) Parse(raw []byte) (*Event, error) {
	var payload sunizePush
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ParseError{Provider: p.Provider(), Detail: err.Error()}
	}
	if payload.ID == "" {
		return nil, &ParseError{Provider: p.Provider(), Detail: "missing transaction id"}
	}

	status := gateway.SunizeCanonicalStatus(payload.Status)
	event := &Event{
		Provider:      p.Provider(),
		TransactionID: string(payload.ID),
		OrderID:       payload.ExternalID,
		NativeStatus:  payload.Status,
		Status:        status,
		Actionable:    actionable(status),
		AmountCents:   money.ToCents(payload.TotalValue),
	}
	if status == types.TransactionStatusPaid {
		event.PaidAt = parseEventTime(payload.PaidAt)
	}
	if c := payload.Customer; c != nil {
		event.Customer = &types.CustomerInfo{
			Name:  c.Name,
			Email: c.Email,
			Phone: c.Phone,
			CPF:   c.Document,
		}
	}
	return event, nil
}
