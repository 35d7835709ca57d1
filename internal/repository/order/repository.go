package order

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

var repoTracer = otel.Tracer("github.com/jsMelius/Gleisure/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders and their line items.
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

// CreateWithItems persists an order header and its line items in a single
// transaction. Either everything lands or nothing does, so an order can never
// exist without the items it was submitted with.
func (r *Repository) CreateWithItems(ctx context.Context, order *entity.Order, items []entity.OrderItem) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateWithItems", trace.WithAttributes(
		attribute.Int64("order.customer_id", order.CustomerID),
		attribute.Int("order.items", len(items)),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		_, err := tx.NewInsert().Model(&items).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("o.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// ListAll returns every order joined with the owning customer's name and
// email, ordered by id so consecutive snapshots of an unchanged table
// serialize identically.
func (r *Repository) ListAll(ctx context.Context) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListAll")
	defer span.End()

	var orders []entity.Order
	err := r.reader.NewSelect().Model(&orders).
		ColumnExpr("o.*").
		ColumnExpr("c.customer_name").
		ColumnExpr("c.email").
		Join("JOIN customer AS c ON o.customer_id = c.id").
		Order("o.id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// UpdateStatus rewrites an order's status column.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status entity.OrderStatus) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", status.String()),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("order_status = ?", status).
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

// CommitApproval promotes an awaiting order to Placed and charges its total
// against the customer ledger inside one transaction, so a failure between
// the two writes can never leave the status and the ledger out of step. The
// status update is conditional on Awaiting Approval; zero affected rows means
// the order is gone or already transitioned.
func (r *Repository) CommitApproval(ctx context.Context, orderID, customerID int64, amount decimal.Decimal) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CommitApproval", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("order.customer_id", customerID),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*entity.Order)(nil)).
			Set("order_status = ?", entity.StatusPlaced).
			Where("id = ?", orderID).
			Where("order_status = ?", entity.StatusAwaitingApproval).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}

		res, err = tx.NewUpdate().Model((*entity.Customer)(nil)).
			Set("credit_used = credit_used + ?", amount).
			Where("id = ?", customerID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
	}
	return err
}

// Delete removes the order's line items and then the order header inside one
// transaction. It does not touch the customer ledger.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*entity.OrderItem)(nil)).Where("order_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
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
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

// CreateItems appends line items to an existing order as one insert.
func (r *Repository) CreateItems(ctx context.Context, orderID int64, items []entity.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateItems", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int("order.items", len(items)),
	))
	defer span.End()

	for i := range items {
		items[i].OrderID = orderID
	}
	_, err := r.writer.NewInsert().Model(&items).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ListItemsByOrder returns the line items belonging to an order.
func (r *Repository) ListItemsByOrder(ctx context.Context, orderID int64) ([]entity.OrderItem, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListItemsByOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var items []entity.OrderItem
	err := r.reader.NewSelect().Model(&items).Where("order_id = ?", orderID).Order("id ASC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return items, nil
}
