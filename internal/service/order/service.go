package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/cache"
	"github.com/jsMelius/Gleisure/internal/config"
	"github.com/jsMelius/Gleisure/internal/entity"
	"github.com/jsMelius/Gleisure/internal/messaging"
	customerrepo "github.com/jsMelius/Gleisure/internal/repository/customer"
	orderrepo "github.com/jsMelius/Gleisure/internal/repository/order"
	"github.com/jsMelius/Gleisure/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/jsMelius/Gleisure/service/order")

// Service owns the order lifecycle: the admission decision at creation time,
// the approve/reject state machine, and the ledger side effects those
// transitions carry. All credit mutation funnels through here.
type Service struct {
	orders       OrderRepository
	customers    CustomerRepository
	cache        cache.Store
	cacheTTL     time.Duration
	queryTimeout time.Duration
	logger       *zap.Logger
	publisher    messaging.Client
	messaging    messagingConfig
	locks        *customerLocks
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders    *orderrepo.Repository
	Customers *customerrepo.Repository
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance from the Fx graph.
func NewService(p Params) *Service {
	return New(p.Orders, p.Customers, p.Cache, p.Config, p.Logger, p.Publisher)
}

// New assembles a Service from explicit collaborators.
func New(orders OrderRepository, customers CustomerRepository, store cache.Store, cfg config.Config, logger *zap.Logger, publisher messaging.Client) *Service {
	return &Service{
		orders:       orders,
		customers:    customers,
		cache:        store,
		cacheTTL:     cfg.Cache.DefaultTTL,
		queryTimeout: cfg.Database.QueryTimeout,
		logger:       logger,
		publisher:    publisher,
		messaging: messagingConfig{
			enabled: cfg.Messaging.Enabled,
			topic:   cfg.Messaging.Kafka.Topic,
		},
		locks: newCustomerLocks(),
	}
}

// PlaceOrderArgs collects the inputs for a new order.
type PlaceOrderArgs struct {
	CustomerID int64
	SubTotal   decimal.Decimal
	VAT        decimal.Decimal
	Total      decimal.Decimal
	Items      []entity.OrderItem
	ActorID    string
}

// PlaceOrder admits a new order. The admission decision and the ledger commit
// run under the customer's admission lock, so two simultaneous orders for the
// same customer are evaluated against consistent ledger snapshots. The credit
// increment happens only after the order and its items are durably written,
// and only when the order is admitted as Placed.
func (s *Service) PlaceOrder(ctx context.Context, args PlaceOrderArgs) (*entity.Order, error) {
	if err := validatePlaceOrder(args); err != nil {
		return nil, err
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.PlaceOrder", trace.WithAttributes(
		attribute.Int64("order.customer_id", args.CustomerID),
		attribute.String("order.total", args.Total.String()),
	))
	defer span.End()

	lock := s.locks.acquire(args.CustomerID)
	defer lock.Unlock()

	customer, err := s.loadCustomer(ctx, args.CustomerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger read failed")
		return nil, err
	}

	status := evaluateAdmission(customer, args.Total)
	span.SetAttributes(attribute.String("order.status", status.String()))

	now := time.Now().UTC()
	order := &entity.Order{
		CustomerID: args.CustomerID,
		Status:     status,
		SubTotal:   args.SubTotal,
		VAT:        args.VAT,
		Total:      args.Total,
		CreatedBy:  args.ActorID,
		ModifiedBy: args.ActorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.createWithItems(ctx, order, args.Items); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order write failed")
		return nil, err
	}

	if status == entity.StatusPlaced {
		if err := s.commitCredit(ctx, args.CustomerID, args.Total); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "ledger commit failed")
			return nil, err
		}
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}

	s.publishEvent(ctx, eventForAdmission(status), order)
	return order, nil
}

// Approve promotes an order from Awaiting Approval to Placed and commits its
// total against the customer's credit line exactly once. The status flip and
// the ledger increment land in one transaction. Approving an order in any
// other state fails with an invalid transition error; a replayed approval
// therefore never double-charges the ledger.
func (s *Service) Approve(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Approve", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	lock := s.locks.acquire(order.CustomerID)
	defer lock.Unlock()

	// Re-read under the lock: a concurrent approval may have won the race
	// between our first read and acquiring the lock.
	order, err = s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status != entity.StatusAwaitingApproval {
		return nil, errorbank.InvalidTransition(
			fmt.Sprintf("cannot approve order in status %q", order.Status),
			errorbank.WithDetail("order_status", order.Status.String()),
		)
	}

	if err := s.commitApproval(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		return nil, err
	}

	order.Status = entity.StatusPlaced
	order.UpdatedAt = time.Now().UTC()

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}

	s.publishEvent(ctx, "order.approved", order)
	return order, nil
}

// Reject moves an order from Awaiting Approval to Rejected. The ledger is
// never touched: a rejected order consumes no credit.
func (s *Service) Reject(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Reject", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	lock := s.locks.acquire(order.CustomerID)
	defer lock.Unlock()

	order, err = s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status != entity.StatusAwaitingApproval {
		return nil, errorbank.InvalidTransition(
			fmt.Sprintf("cannot reject order in status %q", order.Status),
			errorbank.WithDetail("order_status", order.Status.String()),
		)
	}

	if err := s.updateStatus(ctx, id, entity.StatusRejected); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status write failed")
		return nil, err
	}

	order.Status = entity.StatusRejected
	order.UpdatedAt = time.Now().UTC()

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}

	s.publishEvent(ctx, "order.rejected", order)
	return order, nil
}

// Delete removes an order together with its line items. Credit already
// committed for a placed order is not released; rejecting before approval is
// the only way to avoid consuming credit.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	if err := s.orders.Delete(dataCtx, id); err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return storeErr("failed to delete order", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
			s.logger.Warn("orders cache delete failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	s.publishEvent(ctx, "order.deleted", &entity.Order{ID: id})
	return nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.loadOrder(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}

	return order, nil
}

// List returns the full order collection joined with customer details.
func (s *Service) List(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	orders, err := s.orders.ListAll(dataCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, storeErr("failed to list orders", err)
	}
	return orders, nil
}

// ListItems returns the line items of an order.
func (s *Service) ListItems(ctx context.Context, orderID int64) ([]entity.OrderItem, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListItems", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	items, err := s.orders.ListItemsByOrder(dataCtx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, storeErr("failed to list order items", err)
	}
	return items, nil
}

// AddItems appends line items to an existing order in one insert.
func (s *Service) AddItems(ctx context.Context, orderID int64, items []entity.OrderItem) error {
	if err := validateItems(items); err != nil {
		return err
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.AddItems", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int("order.items", len(items)),
	))
	defer span.End()

	if _, err := s.loadOrder(ctx, orderID); err != nil {
		return err
	}

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	if err := s.orders.CreateItems(dataCtx, orderID, items); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return storeErr("failed to add order items", err)
	}
	return nil
}

func validatePlaceOrder(args PlaceOrderArgs) error {
	if args.CustomerID <= 0 {
		return errorbank.BadRequest("customer_id is required")
	}
	if args.SubTotal.IsNegative() || args.VAT.IsNegative() || args.Total.IsNegative() {
		return errorbank.BadRequest("monetary amounts must not be negative")
	}
	if !args.Total.Equal(args.SubTotal.Add(args.VAT)) {
		return errorbank.BadRequest("total must equal sub_total plus vat")
	}
	if !args.VAT.Equal(args.SubTotal.Mul(entity.VATRate).Round(2)) {
		return errorbank.BadRequest("vat must be sub_total at the statutory rate")
	}
	return validateItems(args.Items)
}

func validateItems(items []entity.OrderItem) error {
	for i, item := range items {
		if item.Quantity <= 0 {
			return errorbank.BadRequest("item quantity must be positive",
				errorbank.WithDetail("item_index", i))
		}
		expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !item.Price.Equal(expected) {
			return errorbank.BadRequest("item price must equal unit_price times quantity",
				errorbank.WithDetail("item_index", i))
		}
	}
	return nil
}

func (s *Service) loadCustomer(ctx context.Context, id int64) (*entity.Customer, error) {
	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	customer, err := s.customers.GetByID(dataCtx, id)
	if err != nil {
		if errors.Is(err, customerrepo.ErrNotFound) {
			return nil, errorbank.NotFound("customer not found")
		}
		return nil, storeErr("failed to load customer", err)
	}
	return customer, nil
}

func (s *Service) loadOrder(ctx context.Context, id int64) (*entity.Order, error) {
	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	order, err := s.orders.GetByID(dataCtx, id)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		return nil, storeErr("failed to load order", err)
	}
	return order, nil
}

func (s *Service) createWithItems(ctx context.Context, order *entity.Order, items []entity.OrderItem) error {
	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	if err := s.orders.CreateWithItems(dataCtx, order, items); err != nil {
		return storeErr("failed to create order", err)
	}
	return nil
}

func (s *Service) updateStatus(ctx context.Context, id int64, status entity.OrderStatus) error {
	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	if err := s.orders.UpdateStatus(dataCtx, id, status); err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		return storeErr("failed to update order status", err)
	}
	return nil
}

func (s *Service) commitApproval(ctx context.Context, order *entity.Order) error {
	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	if err := s.orders.CommitApproval(dataCtx, order.ID, order.CustomerID, order.Total); err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		return storeErr("failed to approve order", err)
	}
	return nil
}

func (s *Service) commitCredit(ctx context.Context, customerID int64, amount decimal.Decimal) error {
	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	if err := s.customers.AddCreditUsed(dataCtx, customerID, amount); err != nil {
		if errors.Is(err, customerrepo.ErrNotFound) {
			return errorbank.NotFound("customer not found")
		}
		return storeErr("failed to commit credit", err)
	}
	return nil
}

// dataCtx bounds a single data access call so a stalled store surfaces as a
// retryable timeout instead of blocking the handler indefinitely.
func (s *Service) dataCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func storeErr(message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errorbank.Timeout(message, errorbank.WithCause(err))
	}
	return errorbank.Unavailable(message, errorbank.WithCause(err))
}

func eventForAdmission(status entity.OrderStatus) string {
	if status == entity.StatusPlaced {
		return "order.placed"
	}
	return "order.awaiting_approval"
}

func (s *Service) publishEvent(ctx context.Context, event string, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(OrderEvent{
		Event:      event,
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status.String(),
		Total:      order.Total,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload); err != nil {
		s.logger.Error("publish order event", zap.String("event", event), zap.Error(err))
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
}

// OrderEvent is emitted on every state machine commit.
type OrderEvent struct {
	Event      string          `json:"event"`
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	Status     string          `json:"order_status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}
