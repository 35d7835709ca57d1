package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jsMelius/Gleisure/internal/entity"
)

// CustomerRepository is the slice of the customer store the order state
// machine needs: a ledger snapshot read and the atomic credit commit.
type CustomerRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Customer, error)
	AddCreditUsed(ctx context.Context, id int64, amount decimal.Decimal) error
}

// OrderRepository abstracts order and line item persistence.
type OrderRepository interface {
	CreateWithItems(ctx context.Context, order *entity.Order, items []entity.OrderItem) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	ListAll(ctx context.Context) ([]entity.Order, error)
	UpdateStatus(ctx context.Context, id int64, status entity.OrderStatus) error
	CommitApproval(ctx context.Context, orderID, customerID int64, amount decimal.Decimal) error
	Delete(ctx context.Context, id int64) error
	CreateItems(ctx context.Context, orderID int64, items []entity.OrderItem) error
	ListItemsByOrder(ctx context.Context, orderID int64) ([]entity.OrderItem, error)
}
