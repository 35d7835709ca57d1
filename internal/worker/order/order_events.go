package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/config"
	"github.com/jsMelius/Gleisure/internal/messaging"
	ordersvc "github.com/jsMelius/Gleisure/internal/service/order"
	"github.com/jsMelius/Gleisure/internal/worker"
)

var workerTracer = otel.Tracer("github.com/jsMelius/Gleisure/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderEventHandler sets up a worker handler that records the order
// lifecycle events emitted by the state machine.
func NewOrderEventHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		logger.Info("order event processed",
			zap.String("event", event.Event),
			zap.Int64("id", event.ID),
			zap.Int64("customer_id", event.CustomerID),
			zap.String("status", event.Status),
			zap.String("total", event.Total.String()),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
