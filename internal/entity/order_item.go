package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// OrderItem is a line of an order. Product and supplier details are
// denormalized at creation time and the row is immutable afterwards; its
// lifetime is bound to the owning order (deleted together with it).
type OrderItem struct {
	bun.BaseModel `bun:"table:order_item,alias:oi"`

	ID           int64           `bun:",pk,autoincrement"`
	OrderID      int64           `bun:"order_id"`
	SupplierName string          `bun:"supplier_name"`
	ProductType  string          `bun:"product_type"`
	ProductName  string          `bun:"product_name"`
	UnitSize     string          `bun:"unit_size"`
	PackSize     string          `bun:"pack_size"`
	UnitPrice    decimal.Decimal `bun:"unit_price,type:decimal(12,2)"`
	Quantity     int             `bun:"quantity"`
	Price        decimal.Decimal `bun:"price,type:decimal(12,2)"`
	CreatedBy    string          `bun:"created_by"`
	ModifiedBy   string          `bun:"last_modified_by"`
	CreatedAt    time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time       `bun:"updated_at,nullzero"`
}
