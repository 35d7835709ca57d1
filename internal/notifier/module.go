package notifier

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/config"
	ordersvc "github.com/jsMelius/Gleisure/internal/service/order"
)

// Module wires the hub and the poll loop into the Fx lifecycle. The poller
// starts once at process startup and stops only at shutdown.
var Module = fx.Module("notifier",
	fx.Provide(
		func(cfg config.Config, logger *zap.Logger) *Hub {
			return NewHub(cfg.Notifier.ClientBuffer, logger)
		},
		func(cfg config.Config, svc *ordersvc.Service, hub *Hub, logger *zap.Logger) *Poller {
			return NewPoller(svc, hub, cfg.Notifier.PollInterval, logger)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, poller *Poller, hub *Hub, logger *zap.Logger) {
		if !cfg.Notifier.Enabled {
			logger.Info("notifier disabled")
			return
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				poller.Start()
				logger.Info("notifier started")
				return nil
			},
			OnStop: func(ctx context.Context) error {
				err := poller.Stop(ctx)
				hub.Shutdown()
				logger.Info("notifier stopped")
				return err
			},
		})
	}),
)
