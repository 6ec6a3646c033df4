package conversion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/pkg/brdoc"
	cfgpkg "github.com/promofunnel/pixpay/pkg/config"
	"github.com/promofunnel/pixpay/pkg/logctx"
	"github.com/promofunnel/pixpay/pkg/metrics"
	"github.com/promofunnel/pixpay/pkg/money"
	"github.com/promofunnel/pixpay/pkg/types"
)

const utmifyOrdersURL = "https://api.utmify.com.br/api-credentials/orders"

// ErrTokenNotConfigured: the attribution API token is missing.
var ErrTokenNotConfigured = errors.New("UTMify API token not configured")

type ForwardErrorKind string

const (
	// ForwardErrorAuth: 401/403, a configuration problem.
	ForwardErrorAuth ForwardErrorKind = "auth"
	// ForwardErrorValidation: other non-2xx with body detail.
	ForwardErrorValidation ForwardErrorKind = "validation"
	// ForwardErrorTransport: network or decode failure.
	ForwardErrorTransport ForwardErrorKind = "transport"
)

// ForwardError is logged, never surfaced to end users, never retried.
type ForwardError struct {
	Kind       ForwardErrorKind
	StatusCode int
	Detail     string
}

func (e *ForwardError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("utmify %s error: HTTP %d: %s", e.Kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("utmify %s error: %s", e.Kind, e.Detail)
}

// ProductData describes the sold item as reported to attribution.
type ProductData struct {
	Name     string
	Price    float64
	Quantity int
}

// ConversionData is the canonical forward input. Amount and Price are in
// major units; the payload carries cents.
type ConversionData struct {
	OrderID       string
	TransactionID string
	Amount        float64
	Customer      types.CustomerInfo
	Product       ProductData
	UTM           *types.UTMParams
	PaymentMethod string
}

// Forwarder sends paid conversions to the attribution sink. One outbound
// call, no retry; the caller's response path never depends on the outcome.
type Forwarder interface {
	Send(ctx context.Context, data *ConversionData) error
	// SendAsync is the fire-and-forget dispatch used where even the error
	// return must not delay the caller.
	SendAsync(ctx context.Context, data *ConversionData)
}

type utmifyCustomer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
	Country  string `json:"country"`
}

type utmifyProduct struct {
	ID           string `json:"id"`
	PlanID       string `json:"planId"`
	PlanName     string `json:"planName"`
	Name         string `json:"name"`
	PriceInCents int64  `json:"priceInCents"`
	Quantity     int    `json:"quantity"`
}

// utmifyTracking uses pointers so absent attribution is an explicit null,
// which the sink requires, not an omitted key.
type utmifyTracking struct {
	Src         *string `json:"src"`
	Sck         *string `json:"sck"`
	UTMSource   *string `json:"utm_source"`
	UTMCampaign *string `json:"utm_campaign"`
	UTMMedium   *string `json:"utm_medium"`
	UTMContent  *string `json:"utm_content"`
	UTMTerm     *string `json:"utm_term"`
}

type utmifyCommission struct {
	TotalPriceInCents     int64  `json:"totalPriceInCents"`
	GatewayFeeInCents     int64  `json:"gatewayFeeInCents"`
	UserCommissionInCents int64  `json:"userCommissionInCents"`
	Currency              string `json:"currency"`
}

type utmifyOrder struct {
	OrderID            string           `json:"orderId"`
	Platform           string           `json:"platform"`
	PaymentMethod      string           `json:"paymentMethod"`
	Status             string           `json:"status"`
	CreatedAt          string           `json:"createdAt"`
	ApprovedDate       string           `json:"approvedDate"`
	RefundedAt         *string          `json:"refundedAt"`
	Customer           utmifyCustomer   `json:"customer"`
	Products           []utmifyProduct  `json:"products"`
	TrackingParameters utmifyTracking   `json:"trackingParameters"`
	Commission         utmifyCommission `json:"commission"`
	IsTest             bool             `json:"isTest"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func buildOrder(data *ConversionData, now time.Time) *utmifyOrder {
	amountCents := money.ToCents(data.Amount)
	ts := now.UTC().Format(time.RFC3339)

	var utm types.UTMParams
	if data.UTM != nil {
		utm = *data.UTM
	}

	paymentMethod := data.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "pix"
	}

	return &utmifyOrder{
		OrderID:       data.OrderID,
		Platform:      "custom",
		PaymentMethod: paymentMethod,
		Status:        string(types.TransactionStatusPaid),
		CreatedAt:     ts,
		ApprovedDate:  ts,
		Customer: utmifyCustomer{
			Name:     data.Customer.Name,
			Email:    data.Customer.Email,
			Phone:    brdoc.WithCountryCode(data.Customer.Phone),
			Document: brdoc.SanitizeCPF(data.Customer.CPF),
			Country:  "BR",
		},
		Products: []utmifyProduct{{
			ID:           "PROD-" + data.OrderID,
			PlanID:       "pix-funnel",
			PlanName:     data.Product.Name,
			Name:         data.Product.Name,
			PriceInCents: money.ToCents(data.Product.Price),
			Quantity:     data.Product.Quantity,
		}},
		TrackingParameters: utmifyTracking{
			Src:         nullable(utm.Src),
			Sck:         nullable(utm.Sck),
			UTMSource:   nullable(utm.UTMSource),
			UTMCampaign: nullable(utm.UTMCampaign),
			UTMMedium:   nullable(utm.UTMMedium),
			UTMContent:  nullable(utm.UTMContent),
			UTMTerm:     nullable(utm.UTMTerm),
		},
		Commission: utmifyCommission{
			TotalPriceInCents:     amountCents,
			GatewayFeeInCents:     0,
			UserCommissionInCents: amountCents,
			Currency:              "BRL",
		},
	}
}

type Service struct {
	token string
	url   string
	http  *http.Client
	log   *zap.SugaredLogger
}

func NewService(cfg *cfgpkg.Config, log *zap.SugaredLogger) Forwarder {
	return &Service{
		token: cfg.UTMify.APIToken,
		url:   utmifyOrdersURL,
		http:  http.DefaultClient,
		log:   log,
	}
}

func (s *Service) Send(ctx context.Context, data *ConversionData) error {
	err := s.send(ctx, data)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		logctx.FromCtx(ctx, s.log).Errorw("conversion forward failed",
			"order_id", data.OrderID,
			"transaction_id", data.TransactionID,
			"err", err,
		)
	}
	metrics.ConversionsForwarded.WithLabelValues(outcome).Inc()
	return err
}

func (s *Service) SendAsync(ctx context.Context, data *ConversionData) {
	// Detached from the caller's response path; outcome goes to logs and
	// metrics only.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.Send(sendCtx, data)
	}()
}

func (s *Service) send(ctx context.Context, data *ConversionData) error {
	if s.token == "" {
		return ErrTokenNotConfigured
	}

	order := buildOrder(data, time.Now())
	raw, err := json.Marshal(order)
	if err != nil {
		return &ForwardError{Kind: ForwardErrorTransport, Detail: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return &ForwardError{Kind: ForwardErrorTransport, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-token", s.token)

	resp, err := s.http.Do(req)
	if err != nil {
		return &ForwardError{Kind: ForwardErrorTransport, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &ForwardError{Kind: ForwardErrorAuth, StatusCode: resp.StatusCode, Detail: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ForwardError{Kind: ForwardErrorValidation, StatusCode: resp.StatusCode, Detail: string(body)}
	}

	logctx.FromCtx(ctx, s.log).Infow("conversion forwarded",
		"order_id", data.OrderID,
		"transaction_id", data.TransactionID,
	)
	return nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
