package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/pkg/brdoc"
	cfgpkg "github.com/promofunnel/pixpay/pkg/config"
	"github.com/promofunnel/pixpay/pkg/money"
	"github.com/promofunnel/pixpay/pkg/types"
)

const skalePayBaseURL = "https://api.conta.skalepay.com.br/v1"

// skalePayPaidStatus is SkalePay's paid sentinel; the rest of its status
// vocabulary already matches the canonical one.
const skalePayPaidStatus = "paid"

// SkalePay adapter. Auth is Basic with "secret:x". SkalePay validates the
// customer document, so a checksum-valid CPF is always synthesized instead
// of sending the customer's own.
type SkalePay struct {
	secretKey string
	baseURL   string
	http      *http.Client
	log       *zap.SugaredLogger
}

func NewSkalePay(cfg *cfgpkg.Config, log *zap.SugaredLogger) *SkalePay {
	return &SkalePay{
		secretKey: cfg.Gateways.SkalePay.SecretKey,
		baseURL:   skalePayBaseURL,
		http:      http.DefaultClient,
		log:       log,
	}
}

func (s *SkalePay) Provider() types.PaymentProvider { return types.PaymentProviderSkalePay }

func (s *SkalePay) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(s.secretKey+":x"))
}

type skalePayDocument struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

type skalePayCustomer struct {
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Document skalePayDocument `json:"document"`
	Phone    string           `json:"phone"`
}

type skalePayItem struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Tangible  bool   `json:"tangible"`
}

type skalePayCreateRequest struct {
	Amount        int64            `json:"amount"`
	PaymentMethod string           `json:"paymentMethod"`
	Customer      skalePayCustomer `json:"customer"`
	Items         []skalePayItem   `json:"items"`
	Pix           struct {
		ExpiresInDays int `json:"expiresInDays"`
	} `json:"pix"`
	Metadata    string `json:"metadata,omitempty"`
	PostbackURL string `json:"postbackUrl,omitempty"`
}

type skalePayTransactionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Pix    *struct {
		QRCode string `json:"qrcode"`
	} `json:"pix"`
	SecureURL string `json:"secureUrl"`
	Message   string `json:"message"`
	Err       string `json:"error"`
}

// metadataBlob carries the order correlation key and attribution through the
// gateway, echoed back in webhooks.
func metadataBlob(orderID string, utm *types.UTMParams) string {
	m := map[string]string{"orderId": orderID}
	if utm != nil {
		for k, v := range map[string]string{
			"utm_source":   utm.UTMSource,
			"utm_medium":   utm.UTMMedium,
			"utm_campaign": utm.UTMCampaign,
			"utm_term":     utm.UTMTerm,
			"utm_content":  utm.UTMContent,
			"src":          utm.Src,
			"sck":          utm.Sck,
		} {
			if v != "" {
				m[k] = v
			}
		}
	}
	raw, _ := json.Marshal(m)
	return string(raw)
}

func (s *SkalePay) CreatePixTransaction(ctx context.Context, req *CreatePixRequest) (*CreatePixResult, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("SkalePay %w", ErrNotConfigured)
	}

	cents := money.ToCents(req.Amount)

	phone := brdoc.SanitizePhone(req.Customer.Phone)
	if phone == "" {
		phone = "11999999999"
	}

	body := skalePayCreateRequest{
		Amount:        cents,
		PaymentMethod: "pix",
		Customer: skalePayCustomer{
			Name:  nameOrDefault(req.Customer.Name),
			Email: emailOrDefault(req.Customer.Email),
			Document: skalePayDocument{
				Number: brdoc.GenerateCPF(),
				Type:   "cpf",
			},
			Phone: phone,
		},
		Items: []skalePayItem{{
			Title:     "Frete - " + req.Description,
			Quantity:  1,
			UnitPrice: cents,
			Tangible:  true,
		}},
		Metadata:    metadataBlob(req.OrderID, req.UTM),
		PostbackURL: req.WebhookURL,
	}
	body.Pix.ExpiresInDays = 1

	httpReq, err := newJSONRequest(ctx, http.MethodPost, s.baseURL+"/transactions", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", s.authHeader())

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Provider: s.Provider(), Message: err.Error()}
	}
	defer resp.Body.Close()

	var data skalePayTransactionResponse
	if err := decodeJSONResponse(s.Provider(), resp, &data); err != nil {
		return nil, err
	}

	s.log.Infow("skalepay create response", "status", resp.StatusCode, "transaction_id", data.ID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := firstNonEmpty(data.Message, data.Err, fmt.Sprintf("HTTP %d", resp.StatusCode))
		return nil, &GatewayError{Provider: s.Provider(), StatusCode: resp.StatusCode, Message: msg}
	}
	if data.ID == "" {
		return nil, &GatewayError{Provider: s.Provider(), StatusCode: resp.StatusCode, Message: "transaction id not found in response"}
	}

	res := &CreatePixResult{TransactionID: data.ID, SecureURL: data.SecureURL}
	if data.Pix != nil {
		res.PixPayload = data.Pix.QRCode
	}
	return res, nil
}

func (s *SkalePay) GetTransaction(ctx context.Context, transactionID string) (*TransactionStatusResult, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("SkalePay %w", ErrNotConfigured)
	}

	httpReq, err := newJSONRequest(ctx, http.MethodGet, s.baseURL+"/transactions/"+transactionID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", s.authHeader())

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Provider: s.Provider(), Message: err.Error()}
	}
	defer resp.Body.Close()

	var data skalePayTransactionResponse
	if err := decodeJSONResponse(s.Provider(), resp, &data); err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := firstNonEmpty(data.Message, data.Err, "failed to get transaction")
		return nil, &GatewayError{Provider: s.Provider(), StatusCode: resp.StatusCode, Message: msg}
	}

	return &TransactionStatusResult{
		NativeStatus: data.Status,
		Status:       canonicalStatusIdentity(data.Status),
		IsPaid:       data.Status == skalePayPaidStatus,
	}, nil
}

// canonicalStatusIdentity maps providers whose native vocabulary already is
// the canonical one; unknown values stay waiting_payment.
func canonicalStatusIdentity(native string) types.TransactionStatus {
	st := types.TransactionStatus(native)
	if st.Valid() {
		return st
	}
	return types.TransactionStatusWaitingPayment
}

func nameOrDefault(name string) string {
	if name == "" {
		return "Cliente"
	}
	return name
}

func emailOrDefault(email string) string {
	if email == "" {
		return "cliente@email.com"
	}
	return email
}
