package customer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsMelius/Gleisure/internal/database"
	"github.com/jsMelius/Gleisure/internal/entity"
)

var repoTracer = otel.Tracer("github.com/jsMelius/Gleisure/repository/customer")

// ErrNotFound is returned when a customer is missing.
var ErrNotFound = errors.New("customer not found")

// highUsageThreshold flags customers who consumed 90% of their credit line.
var highUsageThreshold = decimal.RequireFromString("0.9")

// Repository encapsulates read/write access for customers, including the
// credit ledger columns.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// GetByID fetches a customer by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.GetByID", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	customer := new(entity.Customer)
	err := r.reader.NewSelect().Model(customer).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return customer, nil
}

// List returns all customers.
func (r *Repository) List(ctx context.Context) ([]entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.List")
	defer span.End()

	var customers []entity.Customer
	if err := r.reader.NewSelect().Model(&customers).Order("id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return customers, nil
}

// ListHighCreditUsage returns customers who have consumed at least 90% of
// their credit limit.
func (r *Repository) ListHighCreditUsage(ctx context.Context) ([]entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.ListHighCreditUsage")
	defer span.End()

	var customers []entity.Customer
	err := r.reader.NewSelect().Model(&customers).
		Where("credit_used >= credit_limit * ?", highUsageThreshold).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return customers, nil
}

// AddCreditUsed commits a ledger increment as a single atomic update so
// concurrent commits for the same customer never lose each other.
func (r *Repository) AddCreditUsed(ctx context.Context, id int64, amount decimal.Decimal) error {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.AddCreditUsed", trace.WithAttributes(
		attribute.Int64("customer.id", id),
		attribute.String("amount", amount.String()),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Customer)(nil)).
		Set("credit_used = credit_used + ?", amount).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

// Create persists a new customer.
func (r *Repository) Create(ctx context.Context, customer *entity.Customer) error {
	if customer == nil {
		return errors.New("nil customer")
	}
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Create", trace.WithAttributes(attribute.String("customer.name", customer.CustomerName)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(customer).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// Update rewrites the mutable customer fields, credit_limit included.
// credit_used is deliberately excluded; only AddCreditUsed touches it.
func (r *Repository) Update(ctx context.Context, customer *entity.Customer) error {
	if customer == nil {
		return errors.New("nil customer")
	}
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Update", trace.WithAttributes(attribute.Int64("customer.id", customer.ID)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model(customer).
		Column("customer_name", "email", "address_line_1", "address_line_2",
			"city", "county", "postcode", "phone_number", "credit_limit",
			"last_modified_by", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a customer by primary key.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Delete", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().Model((*entity.Customer)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
