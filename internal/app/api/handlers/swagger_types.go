package handlers

import (
	"github.com/promofunnel/pixpay/internal/app/service/checkout"
	"github.com/promofunnel/pixpay/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespCreatePix wraps checkout.CreatePixResponse in the standard envelope.
type RespCreatePix struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    checkout.CreatePixResponse `json:"data"`
}

// RespCheckStatus wraps checkout.StatusResponse in the standard envelope.
type RespCheckStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    checkout.StatusResponse  `json:"data"`
}

// RespSendConversion wraps SendConversionResponse in the standard envelope.
type RespSendConversion struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SendConversionResponse   `json:"data"`
}

// RespListTransactions wraps ListTransactionsResponse in the standard envelope.
type RespListTransactions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ListTransactionsResponse `json:"data"`
}
