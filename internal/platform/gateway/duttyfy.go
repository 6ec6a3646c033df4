package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/pkg/brdoc"
	cfgpkg "github.com/promofunnel/pixpay/pkg/config"
	"github.com/promofunnel/pixpay/pkg/money"
	"github.com/promofunnel/pixpay/pkg/types"
)

const duttyfyBaseURL = "https://www.pagamentos-seguros.app/api-pix"

const duttyfyPaidStatus = "COMPLETED"

// Duttyfy adapter. The API key is embedded in the URL, no auth header.
// DUTTYFY settles against the real document, so structurally invalid input
// is rejected with field-level messages instead of being synthesized away.
type Duttyfy struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.SugaredLogger
}

func NewDuttyfy(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Duttyfy {
	return &Duttyfy{
		apiKey:  cfg.Gateways.Duttyfy.APIKey,
		baseURL: duttyfyBaseURL,
		http:    http.DefaultClient,
		log:     log,
	}
}

func (d *Duttyfy) Provider() types.PaymentProvider { return types.PaymentProviderDuttyfy }

type duttyfyCustomer struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type duttyfyItem struct {
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type duttyfyCreateRequest struct {
	Amount        int64           `json:"amount"`
	Description   string          `json:"description"`
	Customer      duttyfyCustomer `json:"customer"`
	Item          duttyfyItem     `json:"item"`
	PaymentMethod string          `json:"paymentMethod"`
	UTM           string          `json:"utm,omitempty"`
}

type duttyfyTransactionResponse struct {
	PixCode       string `json:"pixCode"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Err           string `json:"error"`
}

// EncodeUTMQuery flattens attribution into the query-string form DUTTYFY
// carries through to its webhook.
func EncodeUTMQuery(utm *types.UTMParams) string {
	if utm.IsZero() {
		return ""
	}
	v := url.Values{}
	for k, val := range map[string]string{
		"utm_source":   utm.UTMSource,
		"utm_medium":   utm.UTMMedium,
		"utm_campaign": utm.UTMCampaign,
		"utm_term":     utm.UTMTerm,
		"utm_content":  utm.UTMContent,
		"src":          utm.Src,
		"sck":          utm.Sck,
	} {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v.Encode()
}

// DecodeUTMQuery reverses EncodeUTMQuery for webhook payloads.
func DecodeUTMQuery(raw string) *types.UTMParams {
	if raw == "" {
		return nil
	}
	v, err := url.ParseQuery(raw)
	if err != nil {
		return nil
	}
	u := &types.UTMParams{
		UTMSource:   v.Get("utm_source"),
		UTMMedium:   v.Get("utm_medium"),
		UTMCampaign: v.Get("utm_campaign"),
		UTMTerm:     v.Get("utm_term"),
		UTMContent:  v.Get("utm_content"),
		Src:         v.Get("src"),
		Sck:         v.Get("sck"),
	}
	if u.IsZero() {
		return nil
	}
	return u
}

// duttyfyCanonicalStatus: native vocabulary is PENDING | COMPLETED.
func duttyfyCanonicalStatus(native string) types.TransactionStatus {
	if native == duttyfyPaidStatus {
		return types.TransactionStatusPaid
	}
	return types.TransactionStatusWaitingPayment
}

func (d *Duttyfy) CreatePixTransaction(ctx context.Context, req *CreatePixRequest) (*CreatePixResult, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("DUTTYFY %w", ErrNotConfigured)
	}

	cpf := brdoc.SanitizeCPF(req.Customer.CPF)
	if len(cpf) < 11 {
		return nil, &ValidationError{Field: "cpf", Message: "CPF inválido"}
	}
	phone := brdoc.SanitizePhone(req.Customer.Phone)
	if len(phone) < 10 {
		return nil, &ValidationError{Field: "phone", Message: "Telefone inválido"}
	}

	cents := money.ToCents(req.Amount)

	body := duttyfyCreateRequest{
		Amount:      cents,
		Description: req.Description,
		Customer: duttyfyCustomer{
			Name:     nameOrDefault(req.Customer.Name),
			Document: cpf,
			Email:    emailOrDefault(req.Customer.Email),
			Phone:    phone,
		},
		Item: duttyfyItem{
			Title:    req.Description,
			Price:    cents,
			Quantity: 1,
		},
		PaymentMethod: "PIX",
		UTM:           EncodeUTMQuery(req.UTM),
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, d.baseURL+"/"+d.apiKey, body)
	if err != nil {
		return nil, err
	}

	resp, err := d.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Provider: d.Provider(), Message: err.Error()}
	}
	defer resp.Body.Close()

	var data duttyfyTransactionResponse
	if err := decodeJSONResponse(d.Provider(), resp, &data); err != nil {
		return nil, err
	}

	d.log.Infow("duttyfy create response", "status", resp.StatusCode, "transaction_id", data.TransactionID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := firstNonEmpty(data.Err, fmt.Sprintf("HTTP %d", resp.StatusCode))
		return nil, &GatewayError{Provider: d.Provider(), StatusCode: resp.StatusCode, Message: msg}
	}
	if data.PixCode == "" || data.TransactionID == "" {
		return nil, &GatewayError{Provider: d.Provider(), StatusCode: resp.StatusCode, Message: "invalid response"}
	}

	return &CreatePixResult{TransactionID: data.TransactionID, PixPayload: data.PixCode}, nil
}

func (d *Duttyfy) GetTransaction(ctx context.Context, transactionID string) (*TransactionStatusResult, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("DUTTYFY %w", ErrNotConfigured)
	}

	u := fmt.Sprintf("%s/%s?transactionId=%s", d.baseURL, d.apiKey, url.QueryEscape(transactionID))
	httpReq, err := newJSONRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Provider: d.Provider(), Message: err.Error()}
	}
	defer resp.Body.Close()

	var data duttyfyTransactionResponse
	if err := decodeJSONResponse(d.Provider(), resp, &data); err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := firstNonEmpty(data.Err, "failed to get transaction")
		return nil, &GatewayError{Provider: d.Provider(), StatusCode: resp.StatusCode, Message: msg}
	}

	return &TransactionStatusResult{
		NativeStatus: data.Status,
		Status:       duttyfyCanonicalStatus(data.Status),
		IsPaid:       data.Status == duttyfyPaidStatus,
	}, nil
}
