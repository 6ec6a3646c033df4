package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/promofunnel/pixpay/internal/app/service/conversion"
	"github.com/promofunnel/pixpay/internal/app/service/transaction"
	"github.com/promofunnel/pixpay/internal/app/service/webhooklog"
	"github.com/promofunnel/pixpay/internal/models"
	"github.com/promofunnel/pixpay/pkg/metrics"
	"github.com/promofunnel/pixpay/pkg/money"
	"github.com/promofunnel/pixpay/pkg/types"
)

// Fallback values used when an event references a transaction the store
// never saw and the provider sent no customer block.
const (
	fallbackCustomerName  = "Cliente"
	fallbackCustomerEmail = "cliente@email.com"
	fallbackCustomerPhone = "11999999999"
	fallbackCustomerCPF   = "00000000000"
	fallbackProductName   = "Produto"
)

// rawLogSaver is the async persistence surface of webhooklog.Service.
type rawLogSaver interface {
	Save(ctx context.Context, entry *models.WebhookLog)
}

// Handler drives the reconciliation pipeline for inbound gateway webhooks:
// parse, update the local record, and forward newly paid conversions with
// an at-most-once guarantee.
type Handler struct {
	parsers   map[types.PaymentProvider]EventParser
	store     transaction.Store
	forwarder conversion.Forwarder
	logSvc    rawLogSaver
	log       *zap.SugaredLogger
}

func NewHandler(store transaction.Store, forwarder conversion.Forwarder, logSvc *webhooklog.Service, log *zap.SugaredLogger) *Handler {
	return newHandler(store, forwarder, logSvc, log)
}

func newHandler(store transaction.Store, forwarder conversion.Forwarder, logSvc rawLogSaver, log *zap.SugaredLogger) *Handler {
	parsers := map[types.PaymentProvider]EventParser{}
	for _, p := range []EventParser{
		NewSkalePayParser(),
		NewPayevoParser(),
		NewSunizeParser(),
		NewDuttyfyParser(),
	} {
		parsers[p.Provider()] = p
	}
	return &Handler{parsers: parsers, store: store, forwarder: forwarder, logSvc: logSvc, log: log}
}

func traceIDFromCtx(ctx context.Context) string {
	if tid, ok := ctx.Value("traceID").(string); ok {
		return tid
	}
	return ""
}

// Handle processes one raw webhook delivery. A non-nil return means the
// payload was unparseable; every other outcome is internal and the HTTP
// layer acknowledges regardless.
func (h *Handler) Handle(ctx context.Context, provider types.PaymentProvider, raw []byte) (resErr error) {
	parser, ok := h.parsers[provider]
	if !ok {
		return &ParseError{Provider: provider, Detail: "unsupported provider"}
	}

	event, err := parser.Parse(raw)
	if err != nil {
		h.log.Errorw("webhook parse failed", "provider", provider, "err", err)
		metrics.WebhookEvents.WithLabelValues(string(provider), "unparseable").Inc()
		return err
	}

	metrics.WebhookEvents.WithLabelValues(string(provider), string(event.Status)).Inc()

	traceID := traceIDFromCtx(ctx)
	h.logSvc.Save(ctx, &models.WebhookLog{
		ProviderID:    string(provider),
		TraceID:       traceID,
		TransactionID: event.TransactionID,
		EventTime:     time.Now(),
		Data:          datatypes.JSON(raw),
		Status:        models.WebhookLogStatusReceived,
	})

	defer func() {
		resMap := map[string]any{
			"status":     event.Status,
			"actionable": event.Actionable,
		}
		if resErr != nil {
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		status := models.WebhookLogStatusHandled
		if resErr != nil {
			status = models.WebhookLogStatusHandleFailed
		}
		h.logSvc.Save(ctx, &models.WebhookLog{
			ProviderID:    string(provider),
			TraceID:       traceID,
			TransactionID: event.TransactionID,
			EventTime:     time.Now(),
			Data:          datatypes.JSON(raw),
			Result:        func() *datatypes.JSON { j := datatypes.JSON(resBytes); return &j }(),
			Status:        status,
		})
		// Internal failures stay internal; the provider always gets an ack.
		resErr = nil
	}()

	if !event.Actionable {
		h.log.Infow("webhook acknowledged without side effects",
			"provider", provider,
			"native_status", event.NativeStatus,
			"transaction_id", event.TransactionID,
		)
		return nil
	}

	// Best-effort lookup: a missing row or an unavailable store must not
	// stop the forward path.
	txn, err := h.store.GetByTransactionID(ctx, event.TransactionID)
	if err != nil {
		txn = nil
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			h.log.Warnw("webhook for unknown transaction",
				"provider", provider,
				"transaction_id", event.TransactionID,
			)
		} else {
			h.log.Warnw("webhook transaction lookup failed, continuing best-effort",
				"provider", provider,
				"transaction_id", event.TransactionID,
				"err", err,
			)
		}
	}

	if err := h.store.UpdateStatus(ctx, event.TransactionID, event.Status, event.PaidAt); err != nil {
		h.log.Warnw("webhook status update failed, continuing best-effort",
			"transaction_id", event.TransactionID,
			"err", err,
		)
	}

	if event.Status != types.TransactionStatusPaid {
		return nil
	}
	return h.forwardPaid(ctx, event, txn)
}

// forwardPaid sends the conversion for a newly paid transaction exactly
// once: the atomic utmify_sent flip decides the winner. When the store is
// out of the picture entirely, forwarding wins over bookkeeping.
func (h *Handler) forwardPaid(ctx context.Context, event *Event, txn *models.Transaction) error {
	if txn != nil {
		won, err := h.store.MarkConversionSent(ctx, event.TransactionID)
		if err == nil && !won {
			h.log.Infow("conversion already forwarded, skipping",
				"transaction_id", event.TransactionID,
				"order_id", txn.OrderID,
			)
			return nil
		}
		if err != nil {
			h.log.Warnw("conversion guard unavailable, forwarding anyway",
				"transaction_id", event.TransactionID,
				"err", err,
			)
		}
	}

	data := h.conversionData(event, txn)
	if err := h.forwarder.Send(ctx, data); err != nil {
		return fmt.Errorf("conversion forward: %w", err)
	}
	return nil
}

// conversionData prefers the locally stored record over webhook-supplied
// values: the row was captured at true checkout time and is authoritative.
func (h *Handler) conversionData(event *Event, txn *models.Transaction) *conversion.ConversionData {
	if txn != nil {
		return &conversion.ConversionData{
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
		}
	}

	customer := types.CustomerInfo{
		Name:  fallbackCustomerName,
		Email: fallbackCustomerEmail,
		Phone: fallbackCustomerPhone,
		CPF:   fallbackCustomerCPF,
	}
	if c := event.Customer; c != nil {
		if c.Name != "" {
			customer.Name = c.Name
		}
		if c.Email != "" {
			customer.Email = c.Email
		}
		if c.Phone != "" {
			customer.Phone = c.Phone
		}
		if c.CPF != "" {
			customer.CPF = c.CPF
		}
	}

	orderID := event.OrderID
	if orderID == "" {
		orderID = event.TransactionID
	}
	productName := event.ProductName
	if productName == "" {
		productName = fallbackProductName
	}
	amount := money.FromCents(event.AmountCents)

	return &conversion.ConversionData{
		OrderID:       orderID,
		TransactionID: event.TransactionID,
		Amount:        amount,
		Customer:      customer,
		Product: conversion.ProductData{
			Name:     productName,
			Price:    amount,
			Quantity: 1,
		},
		UTM:           event.UTM,
		PaymentMethod: "pix",
	}
}

var Module = fx.Options(
	fx.Provide(NewHandler),
)
