package poller

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/promofunnel/pixpay/internal/app/service/checkout"
	"github.com/promofunnel/pixpay/internal/app/service/transaction"
	cfgpkg "github.com/promofunnel/pixpay/pkg/config"
	"github.com/promofunnel/pixpay/pkg/types"
)

// statusChecker is the reconciliation surface of checkout.Service: one
// status lookup that updates the record and forwards when newly paid.
type statusChecker interface {
	CheckStatus(ctx context.Context, transactionID string) (*checkout.StatusResponse, error)
}

// Poller sweeps open transactions whose webhook never arrived and drives
// them through the same reconciliation path a webhook would.
type Poller struct {
	interval time.Duration
	grace    time.Duration
	batch    int
	store    transaction.Store
	checker  statusChecker
	log      *zap.SugaredLogger

	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg *cfgpkg.Config, store transaction.Store, checkoutSvc *checkout.Service, log *zap.SugaredLogger) *Poller {
	return &Poller{
		interval: time.Duration(cfg.Poller.IntervalSeconds) * time.Second,
		grace:    time.Duration(cfg.Poller.GraceSeconds) * time.Second,
		batch:    cfg.Poller.BatchSize,
		store:    store,
		checker:  checkoutSvc,
		log:      log,
	}
}

// Start launches the sweep loop. Interval zero disables the poller; the
// client-driven poll path still covers status confirmation.
func (p *Poller) Start() {
	if p.interval <= 0 {
		p.log.Infow("status poller disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx)
	p.log.Infow("status poller started",
		"interval", p.interval,
		"grace", p.grace,
		"batch", p.batch,
	)
}

func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick sweeps one batch of stale open transactions. Any per-row failure
// logs and moves on; the row comes back on the next tick.
func (p *Poller) tick(ctx context.Context) {
	cutoff := time.Now().Add(-p.grace)
	res, err := p.store.ScanTransactions(ctx, &transaction.ScanRequest{
		Status:        types.TransactionStatusWaitingPayment,
		CreatedBefore: &cutoff,
		Size:          p.batch,
		SortBy:        "created_at",
		SortOrder:     "asc",
	})
	if err != nil {
		p.log.Warnw("poller scan failed", "err", err)
		return
	}

	for _, row := range res.Items {
		if ctx.Err() != nil {
			return
		}
		status, err := p.checker.CheckStatus(ctx, row.TransactionID)
		if err != nil {
			p.log.Warnw("poller status check failed",
				"transaction_id", row.TransactionID,
				"provider", row.ProviderID,
				"err", err,
			)
			continue
		}
		if status.Status != types.TransactionStatusWaitingPayment {
			p.log.Infow("poller reconciled transaction",
				"transaction_id", row.TransactionID,
				"status", status.Status,
			)
		}
	}
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, p *Poller) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				p.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				p.Stop()
				return nil
			},
		})
	}),
)
