package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/promofunnel/pixpay/internal/app/api/server"
	"github.com/promofunnel/pixpay/internal/app/service/checkout"
	"github.com/promofunnel/pixpay/internal/app/service/conversion"
	"github.com/promofunnel/pixpay/internal/app/service/poller"
	"github.com/promofunnel/pixpay/internal/app/service/transaction"
	"github.com/promofunnel/pixpay/internal/app/service/webhook"
	"github.com/promofunnel/pixpay/internal/app/service/webhooklog"
	"github.com/promofunnel/pixpay/internal/platform/cache"
	"github.com/promofunnel/pixpay/internal/platform/db"
	"github.com/promofunnel/pixpay/internal/platform/gateway"
	"github.com/promofunnel/pixpay/pkg/config"
	"github.com/promofunnel/pixpay/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	cache.Module,
	gateway.Module,
	server.Module,
	transaction.Module,
	webhooklog.Module,
	conversion.Module,
	webhook.Module,
	checkout.Module,
	poller.Module,
)
