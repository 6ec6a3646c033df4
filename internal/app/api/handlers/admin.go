package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/promofunnel/pixpay/internal/app/service/transaction"
	"github.com/promofunnel/pixpay/internal/models"
	"github.com/promofunnel/pixpay/pkg/brdoc"
	"github.com/promofunnel/pixpay/pkg/response"
	"github.com/promofunnel/pixpay/pkg/types"
)

// TransactionItem is the ops-facing projection of a transaction row. The
// customer tax-id is masked; the raw value never leaves the store.
type TransactionItem struct {
	ID            string                  `json:"id"`
	OrderID       string                  `json:"order_id"`
	TransactionID string                  `json:"transaction_id"`
	ProviderID    types.PaymentProvider   `json:"provider_id"`
	Status        types.TransactionStatus `json:"status"`
	Amount        int64                   `json:"amount"`
	CustomerName  string                  `json:"customer_name"`
	CustomerEmail string                  `json:"customer_email"`
	CustomerCPF   string                  `json:"customer_cpf"`
	ProductName   string                  `json:"product_name"`
	UTMSource     *string                 `json:"utm_source"`
	UTMCampaign   *string                 `json:"utm_campaign"`
	UTMifySent    bool                    `json:"utmify_sent"`
	CreatedAt     time.Time               `json:"created_at"`
	PaidAt        *time.Time              `json:"paid_at"`
}

func toTransactionItem(m *models.Transaction) *TransactionItem {
	return &TransactionItem{
		ID:            m.ID,
		OrderID:       m.OrderID,
		TransactionID: m.TransactionID,
		ProviderID:    m.ProviderID,
		Status:        m.Status,
		Amount:        m.Amount,
		CustomerName:  m.CustomerName,
		CustomerEmail: m.CustomerEmail,
		CustomerCPF:   brdoc.MaskCPF(m.CustomerCPF),
		ProductName:   m.ProductName,
		UTMSource:     m.UTMSource,
		UTMCampaign:   m.UTMCampaign,
		UTMifySent:    m.UTMifySent,
		CreatedAt:     m.CreatedAt,
		PaidAt:        m.PaidAt,
	}
}

type ListTransactionsResponse struct {
	Items []*TransactionItem `json:"items"`
	Total int64              `json:"total"`
}

// @Summary      List Transactions (Admin)
// @Description  Retrieves a paginated, filterable list of PIX transactions.
// @Tags         Admin
// @Produce      json
// @Param        status query string false "Canonical status filter"
// @Param        provider query string false "Gateway filter"
// @Param        from query int false "Offset"
// @Param        size query int false "Page size"
// @Success      200  {object}  RespListTransactions
// @Security     BearerAuth
// @Router       /api/v1/admin/transactions [get]
func ApiListTransactions(store transaction.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := types.TransactionStatus(c.Query("status"))
		if status != "" && !status.Valid() {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "unknown status"))
			return
		}
		provider := types.PaymentProvider(c.Query("provider"))
		if provider != "" && !provider.Valid() {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "unknown provider"))
			return
		}
		from, _ := strconv.Atoi(c.DefaultQuery("from", "0"))
		size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

		res, err := store.ScanTransactions(c.Request.Context(), &transaction.ScanRequest{
			Status:    status,
			Provider:  provider,
			From:      from,
			Size:      size,
			SortBy:    c.DefaultQuery("sort_by", "created_at"),
			SortOrder: c.DefaultQuery("sort_order", "desc"),
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		items := lo.Map(res.Items, func(it *models.Transaction, _ int) *TransactionItem { return toTransactionItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListTransactionsResponse{Items: items, Total: res.Total}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, store transaction.Store) {
	r.GET("/transactions", ApiListTransactions(store))
}
