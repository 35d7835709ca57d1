package customer

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/config"
	"github.com/jsMelius/Gleisure/internal/entity"
	repo "github.com/jsMelius/Gleisure/internal/repository/customer"
	"github.com/jsMelius/Gleisure/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/jsMelius/Gleisure/service/customer")

// Service exposes the flat customer operations. Credit mutation is not here:
// the ledger is only ever written by the order state machine.
type Service struct {
	repo         *repo.Repository
	queryTimeout time.Duration
	logger       *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:         p.Repository,
		queryTimeout: p.Config.Database.QueryTimeout,
		logger:       p.Logger,
	}
}

// Get retrieves a customer by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Customer, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.Get", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	customer, err := s.repo.GetByID(dataCtx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("customer not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Unavailable("failed to load customer", errorbank.WithCause(err))
	}
	return customer, nil
}

// List returns all customers.
func (s *Service) List(ctx context.Context) ([]entity.Customer, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.List")
	defer span.End()

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	customers, err := s.repo.List(dataCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Unavailable("failed to list customers", errorbank.WithCause(err))
	}
	return customers, nil
}

// ListHighCreditUsage returns customers at 90% or more of their credit limit.
func (s *Service) ListHighCreditUsage(ctx context.Context) ([]entity.Customer, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.ListHighCreditUsage")
	defer span.End()

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	customers, err := s.repo.ListHighCreditUsage(dataCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Unavailable("failed to list credit usage", errorbank.WithCause(err))
	}
	return customers, nil
}

// Create persists a new customer.
func (s *Service) Create(ctx context.Context, customer *entity.Customer) error {
	if customer == nil {
		return errorbank.BadRequest("customer payload is required")
	}
	if customer.CustomerName == "" {
		return errorbank.BadRequest("customer_name is required")
	}
	if customer.CreditLimit.IsNegative() {
		return errorbank.BadRequest("credit_limit must not be negative")
	}
	if customer.CreatedAt.IsZero() {
		now := time.Now().UTC()
		customer.CreatedAt = now
		customer.UpdatedAt = now
	}

	ctx, span := serviceTracer.Start(ctx, "CustomerService.Create", trace.WithAttributes(attribute.String("customer.name", customer.CustomerName)))
	defer span.End()

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	if err := s.repo.Create(dataCtx, customer); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Unavailable("failed to create customer", errorbank.WithCause(err))
	}
	return nil
}

// Update rewrites a customer's contact details.
func (s *Service) Update(ctx context.Context, customer *entity.Customer) error {
	if customer == nil {
		return errorbank.BadRequest("customer payload is required")
	}
	if customer.CreditLimit.IsNegative() {
		return errorbank.BadRequest("credit_limit must not be negative")
	}
	customer.UpdatedAt = time.Now().UTC()

	ctx, span := serviceTracer.Start(ctx, "CustomerService.Update", trace.WithAttributes(attribute.Int64("customer.id", customer.ID)))
	defer span.End()

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	if err := s.repo.Update(dataCtx, customer); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("customer not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Unavailable("failed to update customer", errorbank.WithCause(err))
	}
	return nil
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "CustomerService.Delete", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	dataCtx, cancel := s.dataCtx(ctx)
	defer cancel()
	if err := s.repo.Delete(dataCtx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("customer not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Unavailable("failed to delete customer", errorbank.WithCause(err))
	}
	return nil
}

func (s *Service) dataCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}
