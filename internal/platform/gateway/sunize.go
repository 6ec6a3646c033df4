package gateway

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/pkg/brdoc"
	cfgpkg "github.com/promofunnel/pixpay/pkg/config"
	"github.com/promofunnel/pixpay/pkg/types"
)

const sunizeBaseURL = "https://api.sunize.com.br/v1"

const sunizePaidStatus = "AUTHORIZED"

// Sunize adapter. Auth is an x-api-key / x-api-secret header pair. Sunize
// takes amounts in major units (not cents) and uses its own status
// vocabulary; see SunizeCanonicalStatus.
type Sunize struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *http.Client
	log       *zap.SugaredLogger
}

func NewSunize(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Sunize {
	return &Sunize{
		apiKey:    cfg.Gateways.Sunize.APIKey,
		apiSecret: cfg.Gateways.Sunize.APISecret,
		baseURL:   sunizeBaseURL,
		http:      http.DefaultClient,
		log:       log,
	}
}

func (s *Sunize) Provider() types.PaymentProvider { return types.PaymentProviderSunize }

type sunizeCustomer struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DocumentType string `json:"document_type"`
	Document     string `json:"document"`
}

type sunizeItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	IsPhysical  bool    `json:"is_physical"`
}

type sunizeCreateRequest struct {
	ExternalID    string         `json:"external_id"`
	TotalAmount   float64        `json:"total_amount"`
	PaymentMethod string         `json:"payment_method"`
	Items         []sunizeItem   `json:"items"`
	IP            string         `json:"ip"`
	Customer      sunizeCustomer `json:"customer"`
}

type sunizeTransactionResponse struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Pix        *struct {
		Payload string `json:"payload"`
	} `json:"pix"`
	HasError bool   `json:"hasError"`
	Err      string `json:"error"`
}

// SunizeCanonicalStatus maps Sunize's vocabulary onto the canonical one.
// IN_DISPUTE stays waiting_payment: the funnel has no dispute concept and
// must not forward a conversion for it.
func SunizeCanonicalStatus(native string) types.TransactionStatus {
	switch native {
	case "AUTHORIZED":
		return types.TransactionStatusPaid
	case "CHARGEBACK":
		return types.TransactionStatusChargedback
	case "FAILED":
		return types.TransactionStatusRefused
	default: // PENDING, IN_DISPUTE, unknown
		return types.TransactionStatusWaitingPayment
	}
}

func (s *Sunize) setAuth(req *http.Request) {
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("x-api-secret", s.apiSecret)
}

func (s *Sunize) CreatePixTransaction(ctx context.Context, req *CreatePixRequest) (*CreatePixResult, error) {
	if s.apiKey == "" || s.apiSecret == "" {
		return nil, fmt.Errorf("Sunize %w", ErrNotConfigured)
	}

	cpf := brdoc.SanitizeCPF(req.Customer.CPF)
	if !brdoc.IsStructurallyValidCPF(cpf) {
		return nil, &ValidationError{Field: "cpf", Message: "CPF inválido"}
	}

	body := sunizeCreateRequest{
		ExternalID:    req.OrderID,
		TotalAmount:   req.Amount,
		PaymentMethod: "PIX",
		Items: []sunizeItem{{
			ID:          "frete-" + req.OrderID,
			Title:       "Frete - " + req.Description,
			Description: "Taxa de envio",
			Price:       req.Amount,
			Quantity:    1,
			IsPhysical:  true,
		}},
		IP: req.ClientIP,
		Customer: sunizeCustomer{
			Name:         req.Customer.Name,
			Email:        req.Customer.Email,
			Phone:        brdoc.SanitizePhone(req.Customer.Phone),
			DocumentType: "CPF",
			Document:     cpf,
		},
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, s.baseURL+"/transactions", body)
	if err != nil {
		return nil, err
	}
	s.setAuth(httpReq)

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Provider: s.Provider(), Message: err.Error()}
	}
	defer resp.Body.Close()

	var data sunizeTransactionResponse
	if err := decodeJSONResponse(s.Provider(), resp, &data); err != nil {
		return nil, err
	}

	s.log.Infow("sunize create response", "status", resp.StatusCode, "transaction_id", data.ID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || data.HasError {
		msg := firstNonEmpty(data.Err, fmt.Sprintf("HTTP %d", resp.StatusCode))
		return nil, &GatewayError{Provider: s.Provider(), StatusCode: resp.StatusCode, Message: msg}
	}
	if data.ID == "" {
		return nil, &GatewayError{Provider: s.Provider(), StatusCode: resp.StatusCode, Message: "transaction id not found in response"}
	}

	res := &CreatePixResult{TransactionID: data.ID}
	if data.Pix != nil {
		res.PixPayload = data.Pix.Payload
	}
	return res, nil
}

func (s *Sunize) GetTransaction(ctx context.Context, transactionID string) (*TransactionStatusResult, error) {
	if s.apiKey == "" || s.apiSecret == "" {
		return nil, fmt.Errorf("Sunize %w", ErrNotConfigured)
	}

	httpReq, err := newJSONRequest(ctx, http.MethodGet, s.baseURL+"/transactions/"+transactionID, nil)
	if err != nil {
		return nil, err
	}
	s.setAuth(httpReq)

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Provider: s.Provider(), Message: err.Error()}
	}
	defer resp.Body.Close()

	var data sunizeTransactionResponse
	if err := decodeJSONResponse(s.Provider(), resp, &data); err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := firstNonEmpty(data.Err, "failed to get transaction")
		return nil, &GatewayError{Provider: s.Provider(), StatusCode: resp.StatusCode, Message: msg}
	}

	return &TransactionStatusResult{
		NativeStatus: data.Status,
		Status:       SunizeCanonicalStatus(data.Status),
		IsPaid:       data.Status == sunizePaidStatus,
	}, nil
}
