package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/pkg/brdoc"
	cfgpkg "github.com/promofunnel/pixpay/pkg/config"
	"github.com/promofunnel/pixpay/pkg/money"
	"github.com/promofunnel/pixpay/pkg/types"
)

const payevoBaseURL = "https://apiv2.payevo.com.br/functions/v1"

const payevoPaidStatus = "paid"

// Payevo adapter. Basic auth with "secret:" (empty password), needs both a
// secret key and a company id. Payevo is lenient about customer documents:
// absent values are zero-filled rather than rejected.
type Payevo struct {
	secretKey string
	companyID string
	baseURL   string
	http      *http.Client
	log       *zap.SugaredLogger
}

func NewPayevo(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Payevo {
	return &Payevo{
		secretKey: cfg.Gateways.Payevo.SecretKey,
		companyID: cfg.Gateways.Payevo.CompanyID,
		baseURL:   payevoBaseURL,
		http:      http.DefaultClient,
		log:       log,
	}
}

func (p *Payevo) Provider() types.PaymentProvider { return types.PaymentProviderPayevo }

func (p *Payevo) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(p.secretKey+":"))
}

type payevoCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	CPF   string `json:"cpf"`
}

type payevoItem struct {
	Title       string `json:"title"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	ExternalRef string `json:"externalRef,omitempty"`
}

type payevoCreateRequest struct {
	Amount        int64          `json:"amount"`
	PaymentMethod string         `json:"paymentMethod"`
	Customer      payevoCustomer `json:"customer"`
	Items         []payevoItem   `json:"items"`
	Pix           struct {
		ExpiresInDays int `json:"expiresInDays"`
	} `json:"pix"`
	Metadata    string `json:"metadata,omitempty"`
	Description string `json:"description,omitempty"`
	IP          string `json:"ip,omitempty"`
	PostbackURL string `json:"postbackUrl,omitempty"`
}

type payevoTransactionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Pix    *struct {
		QRCode string `json:"qrcode"`
	} `json:"pix"`
	Message string `json:"message"`
	Err     string `json:"error"`
}

// usablePostbackURL rejects callbacks Payevo would refuse to deliver to.
func usablePostbackURL(u string) bool {
	return u != "" && strings.HasPrefix(u, "https://") && !strings.Contains(u, "localhost")
}

func (p *Payevo) CreatePixTransaction(ctx context.Context, req *CreatePixRequest) (*CreatePixResult, error) {
	if p.secretKey == "" || p.companyID == "" {
		return nil, fmt.Errorf("Payevo %w", ErrNotConfigured)
	}

	cents := money.ToCents(req.Amount)

	phone := brdoc.SanitizePhone(req.Customer.Phone)
	if phone == "" {
		phone = "11999999999"
	}
	cpf := brdoc.SanitizeCPF(req.Customer.CPF)
	if cpf == "" {
		cpf = "00000000000"
	}

	ip := req.ClientIP
	if ip == "" {
		ip = "0.0.0.0"
	}

	body := payevoCreateRequest{
		Amount:        cents,
		PaymentMethod: "PIX",
		Customer: payevoCustomer{
			Name:  nameOrDefault(req.Customer.Name),
			Email: emailOrDefault(req.Customer.Email),
			Phone: phone,
			CPF:   cpf,
		},
		Items: []payevoItem{{
			Title:       "Frete - " + req.Description,
			Quantity:    1,
			UnitPrice:   cents,
			ExternalRef: req.OrderID,
		}},
		Metadata:    metadataBlob(req.OrderID, req.UTM),
		Description: fmt.Sprintf("Pedido %s - %s", req.OrderID, req.Description),
		IP:          ip,
	}
	body.Pix.ExpiresInDays = 1
	if usablePostbackURL(req.WebhookURL) {
		body.PostbackURL = req.WebhookURL
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, p.baseURL+"/transactions", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", p.authHeader())

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Provider: p.Provider(), Message: err.Error()}
	}
	defer resp.Body.Close()

	// Payevo sometimes answers with HTML error pages; those surface as
	// decode-marked gateway errors with a body snippet.
	var data payevoTransactionResponse
	if err := decodeJSONResponse(p.Provider(), resp, &data); err != nil {
		return nil, err
	}

	p.log.Infow("payevo create response", "status", resp.StatusCode, "transaction_id", data.ID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := firstNonEmpty(data.Message, data.Err, fmt.Sprintf("HTTP %d", resp.StatusCode))
		return nil, &GatewayError{Provider: p.Provider(), StatusCode: resp.StatusCode, Message: msg}
	}
	if data.ID == "" {
		return nil, &GatewayError{Provider: p.Provider(), StatusCode: resp.StatusCode, Message: "transaction id not found in response"}
	}

	res := &CreatePixResult{TransactionID: data.ID}
	if data.Pix != nil {
		res.PixPayload = data.Pix.QRCode
	}
	return res, nil
}

func (p *Payevo) GetTransaction(ctx context.Context, transactionID string) (*TransactionStatusResult, error) {
	if p.secretKey == "" {
		return nil, fmt.Errorf("Payevo %w", ErrNotConfigured)
	}

	httpReq, err := newJSONRequest(ctx, http.MethodGet, p.baseURL+"/transactions/"+transactionID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", p.authHeader())

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Provider: p.Provider(), Message: err.Error()}
	}
	defer resp.Body.Close()

	var data payevoTransactionResponse
	if err := decodeJSONResponse(p.Provider(), resp, &data); err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := firstNonEmpty(data.Message, data.Err, "failed to get transaction")
		return nil, &GatewayError{Provider: p.Provider(), StatusCode: resp.StatusCode, Message: msg}
	}

	return &TransactionStatusResult{
		NativeStatus: data.Status,
		Status:       canonicalStatusIdentity(data.Status),
		IsPaid:       data.Status == payevoPaidStatus,
	}, nil
}
