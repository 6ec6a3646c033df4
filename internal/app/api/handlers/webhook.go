package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/internal/app/service/webhook"
	"github.com/promofunnel/pixpay/pkg/logctx"
	"github.com/promofunnel/pixpay/pkg/response"
	"github.com/promofunnel/pixpay/pkg/types"
)

// @Summary      Gateway webhook
// @Description  Receives a payment gateway's native notification payload. Always acknowledges with 200 unless the body is unparseable.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        provider path string true "Gateway name" Enums(skalepay, payevo, sunize, duttyfy)
// @Success      200  {object}  response.WebhookAck
// @Router       /api/v1/webhook/{provider} [post]
func ApiProviderWebhook(h *webhook.Handler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := types.PaymentProvider(c.Param("provider"))
		if !provider.Valid() {
			c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeBadRequest, "unknown provider"))
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		logctx.FromGin(c, log).Infow("webhook_received", "provider", provider)

		if err := h.Handle(c.Request.Context(), provider, body); err != nil {
			var parseErr *webhook.ParseError
			if errors.As(err, &parseErr) {
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, parseErr.Error()))
				return
			}
		}
		// internal outcomes never reach the provider
		c.JSON(http.StatusOK, response.Ack())
	}
}

func RegisterWebhookRoutes(r gin.IRouter, h *webhook.Handler, log *zap.SugaredLogger) {
	r.POST("/:provider", ApiProviderWebhook(h, log))
}
