package webhook

import (
	"encoding/json"

	"github.com/promofunnel/pixpay/internal/platform/gateway"
	"github.com/promofunnel/pixpay/pkg/money"
	"github.com/promofunnel/pixpay/pkg/types"
)

// DUTTYFY pushes a flat payload with amounts in major units and the
// attribution parameters flattened into a single query string. Its
// transaction id doubles as the order id.
type duttyfyPush struct {
	TransactionID string  `json:"transactionId"`
	Status        string  `json:"status"`
	PaidAt        string  `json:"paidAt"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Customer      *struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Document string `json:"document"`
	} `json:"customer"`
	UTM string `json:"utm"`
}

type duttyfyParser struct{}

func NewDuttyfyParser() EventParser { return &duttyfyParser{} }

func (p *duttyfyParser) Provider() types.PaymentProvider { return types.PaymentProviderDuttyfy }

func (p *duttyfyParser) Parse(raw []byte) (*Event, error) {
	var payload duttyfyPush
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ParseError{Provider: p.Provider(), Detail: err.Error()}
	}

	// Only COMPLETED drives processing. PENDING and anything unknown is
	// acknowledged without a transaction id requirement.
	if payload.Status != "COMPLETED" {
		return &Event{
			Provider:     p.Provider(),
			NativeStatus: payload.Status,
			Status:       types.TransactionStatusWaitingPayment,
			Actionable:   false,
		}, nil
	}
	if payload.TransactionID == "" {
		return nil, &ParseError{Provider: p.Provider(), Detail: "missing transactionId"}
	}

	event := &Event{
		Provider:      p.Provider(),
		TransactionID: payload.TransactionID,
		OrderID:       payload.TransactionID,
		NativeStatus:  payload.Status,
		Status:        types.TransactionStatusPaid,
		Actionable:    true,
		PaidAt:        parseEventTime(payload.PaidAt),
		AmountCents:   money.ToCents(payload.Amount),
		ProductName:   payload.Description,
		UTM:           gateway.DecodeUTMQuery(payload.UTM),
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
