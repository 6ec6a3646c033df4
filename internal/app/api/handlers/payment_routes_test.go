package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/pkg/response"
)

func TestRegisterPaymentRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/payment")
	RegisterPaymentRoutes(g, nil, zap.NewNop().Sugar())

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/payment/create_pix"))
	require.True(t, contains("GET /api/v1/payment/check_status"))
	require.True(t, contains("POST /api/v1/payment/send_conversion"))
}

func TestApiCreatePixRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPaymentRoutes(r.Group("/api/v1/payment"), nil, zap.NewNop().Sugar())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/create_pix", strings.NewReader("{"))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var env response.APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}

func TestApiCheckStatusRequiresTransactionID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPaymentRoutes(r.Group("/api/v1/payment"), nil, zap.NewNop().Sugar())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/check_status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var env response.APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}
