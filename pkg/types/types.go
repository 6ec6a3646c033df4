package types

// PaymentProvider identifies one of the supported PIX gateways.
type PaymentProvider string

const (
	PaymentProviderSkalePay PaymentProvider = "skalepay"
	PaymentProviderPayevo   PaymentProvider = "payevo"
	PaymentProviderSunize   PaymentProvider = "sunize"
	PaymentProviderDuttyfy  PaymentProvider = "duttyfy"
)

func (p PaymentProvider) Valid() bool {
	switch p {
	case PaymentProviderSkalePay, PaymentProviderPayevo, PaymentProviderSunize, PaymentProviderDuttyfy:
		return true
	}
	return false
}

// TransactionStatus is the canonical status vocabulary every provider's
// native status is mapped to.
type TransactionStatus string

const (
	TransactionStatusWaitingPayment TransactionStatus = "waiting_payment"
	TransactionStatusPaid           TransactionStatus = "paid"
	TransactionStatusRefused        TransactionStatus = "refused"
	TransactionStatusRefunded       TransactionStatus = "refunded"
	TransactionStatusChargedback    TransactionStatus = "chargedback"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusWaitingPayment, TransactionStatusPaid, TransactionStatusRefused,
		TransactionStatusRefunded, TransactionStatusChargedback:
		return true
	}
	return false
}

// Terminal reports whether no further gateway-driven transition is expected.
func (s TransactionStatus) Terminal() bool {
	return s.Valid() && s != TransactionStatusWaitingPayment
}

// CustomerInfo is the checkout-time customer snapshot.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	CPF   string `json:"cpf"`
}

// Address is captured at checkout; only Payevo ever sees it.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// UTMParams carries campaign attribution captured in the browser.
// Empty string means "absent"; the conversion forwarder turns absent
// values into explicit JSON nulls.
type UTMParams struct {
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	Src         string `json:"src,omitempty"`
	Sck         string `json:"sck,omitempty"`
}

func (u *UTMParams) IsZero() bool {
	if u == nil {
		return true
	}
	return *u == UTMParams{}
}
