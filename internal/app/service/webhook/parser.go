package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/promofunnel/pixpay/pkg/types"
)

// Event is the canonical shape every provider payload is normalized into.
type Event struct {
	Provider      types.PaymentProvider
	TransactionID string
	// OrderID is set when the provider echoes the order correlation key
	// back (metadata or external_id); empty otherwise.
	OrderID      string
	NativeStatus string
	Status       types.TransactionStatus
	// Actionable is true only for paid-equivalent and terminal failure
	// events. Everything else is acknowledged without side effects.
	Actionable  bool
	PaidAt      *time.Time
	Customer    *types.CustomerInfo
	AmountCents int64
	ProductName string
	UTM         *types.UTMParams
}

// ParseError marks a completely unparseable payload, the only case that
// earns the provider a 4xx.
type ParseError struct {
	Provider types.PaymentProvider
	Detail   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s webhook parse failed: %s", e.Provider, e.Detail)
}

type EventParser interface {
	Provider() types.PaymentProvider
	Parse(raw []byte) (*Event, error)
}

// flexID tolerates providers that send the transaction id as either a JSON
// string or a number.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func parseEventTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// actionable per the reconciliation contract: paid drives the forward path,
// terminal failures update the row, everything else is an ack-only event.
func actionable(status types.TransactionStatus) bool {
	switch status {
	case types.TransactionStatusPaid,
		types.TransactionStatusRefused,
		types.TransactionStatusRefunded,
		types.TransactionStatusChargedback:
		return true
	}
	return false
}
