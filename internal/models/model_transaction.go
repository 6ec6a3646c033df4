package models

import (
	"time"

	"github.com/promofunnel/pixpay/pkg/types"
)

// Transaction is the durable record of one checkout attempt. OrderID is the
// client-visible correlation key, TransactionID the gateway-visible one;
// both are unique and immutable once set.
type Transaction struct {
	ID      string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	OrderID string `gorm:"column:order_id;type:varchar(255);not null;uniqueIndex" json:"order_id"`
	// TransactionID is assigned by the gateway on charge creation.
	TransactionID string                  `gorm:"column:transaction_id;type:varchar(255);not null;uniqueIndex" json:"transaction_id"`
	ProviderID    types.PaymentProvider   `gorm:"column:provider_id;type:varchar(64);not null;index" json:"provider_id"`
	Status        types.TransactionStatus `gorm:"column:status;type:varchar(32);not null;default:waiting_payment;index" json:"status"`

	// Money is stored as integer cents.
	Amount       int64 `gorm:"column:amount;type:bigint;not null" json:"amount"`
	ProductPrice int64 `gorm:"column:product_price;type:bigint;not null" json:"product_price"`

	CustomerName  string `gorm:"column:customer_name;type:varchar(255);not null" json:"customer_name"`
	CustomerEmail string `gorm:"column:customer_email;type:varchar(320);not null" json:"customer_email"`
	CustomerPhone string `gorm:"column:customer_phone;type:varchar(20);not null" json:"customer_phone"`
	CustomerCPF   string `gorm:"column:customer_cpf;type:varchar(14);not null" json:"customer_cpf"`

	ProductName     string `gorm:"column:product_name;type:varchar(255);not null" json:"product_name"`
	ProductQuantity int    `gorm:"column:product_quantity;not null;default:1" json:"product_quantity"`
	PaymentMethod   string `gorm:"column:payment_method;type:varchar(50);not null;default:pix" json:"payment_method"`

	UTMSource   *string `gorm:"column:utm_source;type:varchar(255)" json:"utm_source"`
	UTMMedium   *string `gorm:"column:utm_medium;type:varchar(255)" json:"utm_medium"`
	UTMCampaign *string `gorm:"column:utm_campaign;type:varchar(255)" json:"utm_campaign"`
	UTMTerm     *string `gorm:"column:utm_term;type:varchar(255)" json:"utm_term"`
	UTMContent  *string `gorm:"column:utm_content;type:varchar(255)" json:"utm_content"`
	Src         *string `gorm:"column:src;type:varchar(255)" json:"src"`
	Sck         *string `gorm:"column:sck;type:varchar(255)" json:"sck"`

	// UTMifySent guards at-most-once forwarding of the paid event. It only
	// ever transitions false -> true.
	UTMifySent bool `gorm:"column:utmify_sent;not null;default:false" json:"utmify_sent"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	PaidAt    *time.Time `gorm:"column:paid_at;default:null" json:"paid_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// UTM reassembles the attribution columns into the wire shape.
func (t *Transaction) UTM() *types.UTMParams {
	if t == nil {
		return nil
	}
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	u := &types.UTMParams{
		UTMSource:   deref(t.UTMSource),
		UTMMedium:   deref(t.UTMMedium),
		UTMCampaign: deref(t.UTMCampaign),
		UTMTerm:     deref(t.UTMTerm),
		UTMContent:  deref(t.UTMContent),
		Src:         deref(t.Src),
		Sck:         deref(t.Sck),
	}
	if u.IsZero() {
		return nil
	}
	return u
}

// Customer reassembles the checkout-time customer snapshot.
func (t *Transaction) Customer() types.CustomerInfo {
	return types.CustomerInfo{
		Name:  t.CustomerName,
		Email: t.CustomerEmail,
		Phone: t.CustomerPhone,
		CPF:   t.CustomerCPF,
	}
}
