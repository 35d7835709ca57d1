package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/database"
	"github.com/jsMelius/Gleisure/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Customers seeds example customers with credit lines if they are missing.
func (s *Seeder) Customers(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Customer{
		{
			CustomerName: "The Harbourside Hotel",
			Email:        "orders@harbourside.example",
			AddressLine1: "1 Quay Street",
			City:         "Bristol",
			County:       "Bristol",
			Postcode:     "BS1 4DB",
			PhoneNumber:  "0117 000 0001",
			CreditLimit:  decimal.RequireFromString("1000"),
			CreditUsed:   decimal.RequireFromString("900"),
			CreatedBy:    "seed",
			ModifiedBy:   "seed",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			CustomerName: "Riverside Bar & Kitchen",
			Email:        "purchasing@riverside.example",
			AddressLine1: "42 Bridge Road",
			City:         "Bath",
			County:       "Somerset",
			Postcode:     "BA1 2AA",
			PhoneNumber:  "0117 000 0002",
			CreditLimit:  decimal.RequireFromString("5000"),
			CreditUsed:   decimal.Zero,
			CreatedBy:    "seed",
			ModifiedBy:   "seed",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}

	for _, sample := range samples {
		customer := sample
		exists, err := s.db.NewSelect().Model((*entity.Customer)(nil)).
			Where("email = ?", customer.Email).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.db.NewInsert().Model(&customer).Exec(ctx); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded customers", zap.Int("count", len(samples)))
	}
	return nil
}

// Orders seeds a pair of example orders against the seeded customers: one
// placed within the Riverside credit line and one held for approval against
// the already-stretched Harbourside account. Runs after Customers and is a
// no-op once any orders exist.
func (s *Seeder) Orders(ctx context.Context) error {
	count, err := s.db.NewSelect().Model((*entity.Order)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	samples := []struct {
		email string
		order entity.Order
		items []entity.OrderItem
	}{
		{
			email: "purchasing@riverside.example",
			order: entity.Order{
				Status:     entity.StatusPlaced,
				SubTotal:   decimal.RequireFromString("120.00"),
				VAT:        decimal.RequireFromString("24.00"),
				Total:      decimal.RequireFromString("144.00"),
				CreatedBy:  "seed",
				ModifiedBy: "seed",
				CreatedAt:  now,
				UpdatedAt:  now,
			},
			items: []entity.OrderItem{
				{
					SupplierName: "Westcountry Brewing Co",
					ProductType:  "Keg",
					ProductName:  "House Lager",
					UnitSize:     "50L",
					PackSize:     "1",
					UnitPrice:    decimal.RequireFromString("60.00"),
					Quantity:     2,
					Price:        decimal.RequireFromString("120.00"),
					CreatedBy:    "seed",
					ModifiedBy:   "seed",
					CreatedAt:    now,
				},
			},
		},
		{
			email: "orders@harbourside.example",
			order: entity.Order{
				Status:     entity.StatusAwaitingApproval,
				SubTotal:   decimal.RequireFromString("200.00"),
				VAT:        decimal.RequireFromString("40.00"),
				Total:      decimal.RequireFromString("240.00"),
				CreatedBy:  "seed",
				ModifiedBy: "seed",
				CreatedAt:  now,
				UpdatedAt:  now,
			},
			items: []entity.OrderItem{
				{
					SupplierName: "Severn Cider",
					ProductType:  "Case",
					ProductName:  "Vintage Cider",
					UnitSize:     "500ml",
					PackSize:     "12",
					UnitPrice:    decimal.RequireFromString("25.00"),
					Quantity:     8,
					Price:        decimal.RequireFromString("200.00"),
					CreatedBy:    "seed",
					ModifiedBy:   "seed",
					CreatedAt:    now,
				},
			},
		},
	}

	for _, sample := range samples {
		customer := new(entity.Customer)
		if err := s.db.NewSelect().Model(customer).Where("email = ?", sample.email).Scan(ctx); err != nil {
			return err
		}

		order := sample.order
		order.CustomerID = customer.ID
		if _, err := s.db.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		items := sample.items
		for i := range items {
			items[i].OrderID = order.ID
		}
		if _, err := s.db.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}

		// A placed order has already consumed credit; keep the ledger in step.
		if order.Status == entity.StatusPlaced {
			if _, err := s.db.NewUpdate().Model((*entity.Customer)(nil)).
				Set("credit_used = credit_used + ?", order.Total).
				Where("id = ?", customer.ID).
				Exec(ctx); err != nil {
				return err
			}
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
