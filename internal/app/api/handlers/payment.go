package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/internal/app/service/checkout"
	"github.com/promofunnel/pixpay/internal/platform/gateway"
	"github.com/promofunnel/pixpay/pkg/logctx"
	"github.com/promofunnel/pixpay/pkg/response"
	"github.com/promofunnel/pixpay/pkg/types"
)

// CreatePixPayload mirrors the funnel client's checkout call: the prize
// product plus the shipping fee the charge is issued for.
type CreatePixPayload struct {
	Customer   types.CustomerInfo `json:"customer" binding:"required"`
	Address    types.Address      `json:"address"`
	FreteType  string             `json:"freteType"`
	FreteValue float64            `json:"freteValue"`
	CamisaID   string             `json:"camisaId"`
	CamisaName string             `json:"camisaName"`
	CamisaSize string             `json:"camisaSize"`
	UTM        *types.UTMParams   `json:"utm"`
}

type SendConversionPayload struct {
	OrderID       string             `json:"orderId" binding:"required"`
	TransactionID string             `json:"transactionId" binding:"required"`
	Amount        float64            `json:"amount"`
	Customer      types.CustomerInfo `json:"customer"`
	Product       struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	} `json:"product"`
	UTM           *types.UTMParams `json:"utm"`
	PaymentMethod string           `json:"paymentMethod"`
}

type SendConversionResponse struct {
	Forwarded bool `json:"forwarded"`
}

// checkoutError maps service failures onto the envelope without leaking
// gateway detail to the end user.
func checkoutError(c *gin.Context, log *zap.SugaredLogger, err error) {
	var vErr *gateway.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, vErr.Error()))
		return
	}
	if errors.Is(err, gateway.ErrNotConfigured) {
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
		return
	}
	logctx.FromGin(c, log).Errorw("checkout request failed", "err", err)
	c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, "payment request failed, please try again"))
}

// @Summary      Create PIX charge
// @Description  Creates a PIX transaction on the active payment gateway and records it.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body CreatePixPayload true "Checkout payload"
// @Success      200  {object}  RespCreatePix
// @Router       /api/v1/payment/create_pix [post]
func ApiCreatePix(svc *checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload CreatePixPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := svc.CreatePix(c.Request.Context(), &checkout.CreatePixRequest{
			Customer:       payload.Customer,
			Address:        payload.Address,
			ShippingMethod: payload.FreteType,
			ShippingFee:    payload.FreteValue,
			ProductID:      payload.CamisaID,
			ProductName:    payload.CamisaName,
			ProductSize:    payload.CamisaSize,
			UTM:            payload.UTM,
			ClientIP:       c.ClientIP(),
		})
		if err != nil {
			checkoutError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Check transaction status
// @Description  Polls the issuing gateway for the current status of a PIX transaction.
// @Tags         Payment
// @Produce      json
// @Param        transaction_id query string true "Gateway transaction id"
// @Success      200  {object}  RespCheckStatus
// @Router       /api/v1/payment/check_status [get]
func ApiCheckStatus(svc *checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		transactionID := c.Query("transaction_id")
		if transactionID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing transaction_id"))
			return
		}

		res, err := svc.CheckStatus(c.Request.Context(), transactionID)
		if err != nil {
			checkoutError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Send conversion
// @Description  Client-triggered forward of a paid conversion to the attribution service.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body SendConversionPayload true "Conversion payload"
// @Success      200  {object}  RespSendConversion
// @Router       /api/v1/payment/send_conversion [post]
func ApiSendConversion(svc *checkout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload SendConversionPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		forwarded, err := svc.SendConversion(c.Request.Context(), &checkout.SendConversionRequest{
			OrderID:       payload.OrderID,
			TransactionID: payload.TransactionID,
			Amount:        payload.Amount,
			Customer:      payload.Customer,
			ProductName:   payload.Product.Name,
			ProductPrice:  payload.Product.Price,
			Quantity:      payload.Product.Quantity,
			UTM:           payload.UTM,
			PaymentMethod: payload.PaymentMethod,
		})
		if err != nil {
			logctx.FromGin(c, log).Errorw("manual conversion forward failed",
				"order_id", payload.OrderID,
				"transaction_id", payload.TransactionID,
				"err", err,
			)
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, "conversion forward failed"))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&SendConversionResponse{Forwarded: forwarded}))
	}
}

func RegisterPaymentRoutes(r gin.IRouter, svc *checkout.Service, log *zap.SugaredLogger) {
	r.POST("/create_pix", ApiCreatePix(svc, log))
	r.GET("/check_status", ApiCheckStatus(svc, log))
	r.POST("/send_conversion", ApiSendConversion(svc, log))
}
