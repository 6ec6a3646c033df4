package checkout

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/internal/app/service/conversion"
	"github.com/promofunnel/pixpay/internal/app/service/transaction"
	"github.com/promofunnel/pixpay/internal/models"
	"github.com/promofunnel/pixpay/internal/platform/cache"
	"github.com/promofunnel/pixpay/internal/platform/gateway"
	"github.com/promofunnel/pixpay/pkg/brdoc"
	cfgpkg "github.com/promofunnel/pixpay/pkg/config"
	"github.com/promofunnel/pixpay/pkg/logctx"
	"github.com/promofunnel/pixpay/pkg/metrics"
	"github.com/promofunnel/pixpay/pkg/money"
	"github.com/promofunnel/pixpay/pkg/tool"
	"github.com/promofunnel/pixpay/pkg/types"
)

// CreatePixRequest is the checkout input: the prize product plus the
// shipping fee the PIX charge is actually issued for.
type CreatePixRequest struct {
	Customer       types.CustomerInfo
	Address        types.Address
	ShippingMethod string
	ShippingFee    float64
	ProductID      string
	ProductName    string
	ProductSize    string
	UTM            *types.UTMParams
	ClientIP       string
}

type CreatePixResponse struct {
	OrderID       string                  `json:"order_id"`
	TransactionID string                  `json:"transaction_id"`
	PixPayload    string                  `json:"pix_payload"`
	SecureURL     string                  `json:"secure_url,omitempty"`
	Status        types.TransactionStatus `json:"status"`
}

type StatusResponse struct {
	Status types.TransactionStatus `json:"status"`
	IsPaid bool                    `json:"is_paid"`
}

// SendConversionRequest is the manual, client-driven forward trigger fired
// as soon as the browser itself observes a paid status.
type SendConversionRequest struct {
	OrderID       string
	TransactionID string
	Amount        float64
	Customer      types.CustomerInfo
	ProductName   string
	ProductPrice  float64
	Quantity      int
	UTM           *types.UTMParams
	PaymentMethod string
}

// gatewayRegistry is the adapter-selection surface of gateway.Registry.
type gatewayRegistry interface {
	Active() gateway.Client
	Get(p types.PaymentProvider) (gateway.Client, bool)
}

type Service struct {
	cfg       *cfgpkg.Config
	registry  gatewayRegistry
	store     transaction.Store
	forwarder conversion.Forwarder
	cache     *cache.StatusCache
	log       *zap.SugaredLogger
}

func NewService(cfg *cfgpkg.Config, registry *gateway.Registry, store transaction.Store, forwarder conversion.Forwarder, statusCache *cache.StatusCache, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, registry: registry, store: store, forwarder: forwarder, cache: statusCache, log: log}
}

func validateCreatePix(req *CreatePixRequest) error {
	if len(strings.TrimSpace(req.Customer.Name)) < 3 {
		return &gateway.ValidationError{Field: "customer.name", Message: "name must have at least 3 characters"}
	}
	if !strings.Contains(req.Customer.Email, "@") {
		return &gateway.ValidationError{Field: "customer.email", Message: "invalid email"}
	}
	if len(brdoc.OnlyDigits(req.Customer.Phone)) < 10 {
		return &gateway.ValidationError{Field: "customer.phone", Message: "phone must have at least 10 digits"}
	}
	if len(brdoc.OnlyDigits(req.Customer.CPF)) < 11 {
		return &gateway.ValidationError{Field: "customer.cpf", Message: "cpf must have at least 11 digits"}
	}
	if req.ShippingFee <= 0 {
		return &gateway.ValidationError{Field: "freteValue", Message: "shipping fee must be positive"}
	}
	return nil
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreatePix issues the PIX charge on the active gateway and records the
// transaction. Gateway success with a store failure still succeeds for the
// user: the charge exists and the webhook path can run without the row.
func (s *Service) CreatePix(ctx context.Context, req *CreatePixRequest) (*CreatePixResponse, error) {
	if err := validateCreatePix(req); err != nil {
		return nil, err
	}

	client := s.registry.Active()
	orderID := tool.GenerateOrderID()

	result, err := client.CreatePixTransaction(ctx, &gateway.CreatePixRequest{
		Customer:    req.Customer,
		Address:     &req.Address,
		Amount:      req.ShippingFee,
		Description: req.ProductName,
		OrderID:     orderID,
		UTM:         req.UTM,
		WebhookURL:  s.cfg.WebhookURL(client.Provider()),
		ClientIP:    req.ClientIP,
	})
	if err != nil {
		metrics.TransactionsCreated.WithLabelValues(string(client.Provider()), "error").Inc()
		logctx.FromCtx(ctx, s.log).Errorw("pix charge creation failed",
			"provider", client.Provider(),
			"order_id", orderID,
			"customer_cpf", brdoc.MaskCPF(req.Customer.CPF),
			"err", err,
		)
		return nil, err
	}
	metrics.TransactionsCreated.WithLabelValues(string(client.Provider()), "ok").Inc()

	var utm types.UTMParams
	if req.UTM != nil {
		utm = *req.UTM
	}
	cents := money.ToCents(req.ShippingFee)
	txn := &models.Transaction{
		ID:              tool.GenerateUUIDV7(),
		OrderID:         orderID,
		TransactionID:   result.TransactionID,
		ProviderID:      client.Provider(),
		Status:          types.TransactionStatusWaitingPayment,
		Amount:          cents,
		ProductPrice:    cents,
		CustomerName:    req.Customer.Name,
		CustomerEmail:   req.Customer.Email,
		CustomerPhone:   brdoc.SanitizePhone(req.Customer.Phone),
		CustomerCPF:     brdoc.SanitizeCPF(req.Customer.CPF),
		ProductName:     req.ProductName,
		ProductQuantity: 1,
		PaymentMethod:   "pix",
		UTMSource:       optStr(utm.UTMSource),
		UTMMedium:       optStr(utm.UTMMedium),
		UTMCampaign:     optStr(utm.UTMCampaign),
		UTMTerm:         optStr(utm.UTMTerm),
		UTMContent:      optStr(utm.UTMContent),
		Src:             optStr(utm.Src),
		Sck:             optStr(utm.Sck),
	}
	if err := s.store.Create(ctx, txn); err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("transaction persist failed after gateway success",
			"order_id", orderID,
			"transaction_id", result.TransactionID,
			"err", err,
		)
	}

	return &CreatePixResponse{
		OrderID:       orderID,
		TransactionID: result.TransactionID,
		PixPayload:    result.PixPayload,
		SecureURL:     result.SecureURL,
		Status:        types.TransactionStatusWaitingPayment,
	}, nil
}

// CheckStatus polls the issuing gateway for a transaction. A short-lived
// cache absorbs the client's poll loop; a newly paid result drives the same
// reconciliation as a webhook so both paths converge.
func (s *Service) CheckStatus(ctx context.Context, transactionID string) (*StatusResponse, error) {
	if cached := s.cache.Get(ctx, transactionID); cached != "" {
		var res StatusResponse
		if err := json.Unmarshal([]byte(cached), &res); err == nil {
			return &res, nil
		}
	}

	txn, lookupErr := s.store.GetByTransactionID(ctx, transactionID)
	if lookupErr != nil {
		txn = nil
	}

	client := s.registry.Active()
	if txn != nil {
		if c, ok := s.registry.Get(txn.ProviderID); ok {
			client = c
		}
	}

	result, err := client.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	res := &StatusResponse{Status: result.Status, IsPaid: result.IsPaid}

	if result.Status != types.TransactionStatusWaitingPayment {
		s.reconcile(ctx, transactionID, txn, result)
	}

	if raw, err := json.Marshal(res); err == nil {
		s.cache.Set(ctx, transactionID, string(raw))
	}
	return res, nil
}

// reconcile applies a gateway-observed terminal status to the local record
// and, for paid, forwards the conversion behind the same at-most-once guard
// the webhook path uses.
func (s *Service) reconcile(ctx context.Context, transactionID string, txn *models.Transaction, result *gateway.TransactionStatusResult) {
	var paidAt *time.Time
	if result.IsPaid {
		now := time.Now()
		paidAt = &now
	}
	if err := s.store.UpdateStatus(ctx, transactionID, result.Status, paidAt); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("status reconciliation update failed",
			"transaction_id", transactionID,
			"err", err,
		)
	}
	if !result.IsPaid || txn == nil {
		return
	}

	won, err := s.store.MarkConversionSent(ctx, transactionID)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("conversion guard unavailable",
			"transaction_id", transactionID,
			"err", err,
		)
		return
	}
	if !won {
		return
	}
	s.forwarder.SendAsync(ctx, &conversion.ConversionData{
		OrderID:       txn.OrderID,
		TransactionID: txn.TransactionID,
		Amount:        money.FromCents(txn.Amount),
		Customer:      txn.Customer(),
		Product: conversion.ProductData{
			Name:     txn.ProductName,
			Price:    money.FromCents(txn.ProductPrice),
			Quantity: txn.ProductQuantity,
		},
		UTM:           txn.UTM(),
		PaymentMethod: txn.PaymentMethod,
	})
}

// SendConversion is the explicit client-triggered forward. When a local row
// exists it is authoritative and the CAS guard applies; without one the
// caller-supplied data is forwarded as-is.
func (s *Service) SendConversion(ctx context.Context, req *SendConversionRequest) (bool, error) {
	txn, err := s.store.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		txn = nil
	}

	data := &conversion.ConversionData{
		OrderID:       req.OrderID,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Customer:      req.Customer,
		Product: conversion.ProductData{
			Name:     req.ProductName,
			Price:    req.ProductPrice,
			Quantity: req.Quantity,
		},
		UTM:           req.UTM,
		PaymentMethod: req.PaymentMethod,
	}
	if data.Product.Quantity <= 0 {
		data.Product.Quantity = 1
	}
	if data.PaymentMethod == "" {
		data.PaymentMethod = "pix"
	}

	if txn != nil {
		won, err := s.store.MarkConversionSent(ctx, req.TransactionID)
		if err == nil && !won {
			return false, nil
		}
		data.OrderID = txn.OrderID
		data.Amount = money.FromCents(txn.Amount)
		data.Customer = txn.Customer()
		data.Product = conversion.ProductData{
			Name:     txn.ProductName,
			Price:    money.FromCents(txn.ProductPrice),
			Quantity: txn.ProductQuantity,
		}
		if u := txn.UTM(); u != nil {
			data.UTM = u
		}
		data.PaymentMethod = txn.PaymentMethod
	}

	if err := s.forwarder.Send(ctx, data); err != nil {
		return false, err
	}
	return true, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
