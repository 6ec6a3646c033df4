package gateway

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/promofunnel/pixpay/pkg/config"
	"github.com/promofunnel/pixpay/pkg/types"
)

// Registry holds one adapter per provider. New charges go through the
// configured active provider; status lookups and webhooks resolve by tag so
// in-flight transactions survive an active-provider switch.
type Registry struct {
	clients map[types.PaymentProvider]Client
	active  types.PaymentProvider
}

func NewRegistry(cfg *cfgpkg.Config, log *zap.SugaredLogger) (*Registry, error) {
	r := &Registry{
		clients: map[types.PaymentProvider]Client{
			types.PaymentProviderSkalePay: NewSkalePay(cfg, log),
			types.PaymentProviderPayevo:   NewPayevo(cfg, log),
			types.PaymentProviderSunize:   NewSunize(cfg, log),
			types.PaymentProviderDuttyfy:  NewDuttyfy(cfg, log),
		},
		active: cfg.Gateways.Active,
	}
	if _, ok := r.clients[r.active]; !ok {
		return nil, fmt.Errorf("unknown active gateway: %s", r.active)
	}
	log.Infow("gateway registry ready", "active", r.active)
	return r, nil
}

// Active returns the adapter new charges are created on.
func (r *Registry) Active() Client {
	return r.clients[r.active]
}

func (r *Registry) Get(p types.PaymentProvider) (Client, bool) {
	c, ok := r.clients[p]
	return c, ok
}

var Module = fx.Options(
	fx.Provide(NewRegistry),
)
