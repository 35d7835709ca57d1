package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// OrderStatus is the closed set of order lifecycle states. The literals are
// persisted as-is, so their exact spelling (including the space in
// "Awaiting Approval") must never change.
type OrderStatus string

const (
	StatusPlaced           OrderStatus = "Placed"
	StatusAwaitingApproval OrderStatus = "Awaiting Approval"
	StatusRejected         OrderStatus = "Rejected"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPlaced, StatusAwaitingApproval, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
// Placed has no reversal path and Rejected is final.
func (s OrderStatus) Terminal() bool {
	return s == StatusPlaced || s == StatusRejected
}

func (s OrderStatus) String() string { return string(s) }

// VATRate is the statutory VAT rate applied to order sub-totals.
var VATRate = decimal.RequireFromString("0.2")

// Order represents a purchase order stored in the relational database.
// Total must always equal SubTotal + VAT; the status is mutated only by the
// order service's state machine.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID         int64           `bun:",pk,autoincrement"`
	CustomerID int64           `bun:"customer_id"`
	Status     OrderStatus     `bun:"order_status"`
	SubTotal   decimal.Decimal `bun:"sub_total,type:decimal(12,2)"`
	VAT        decimal.Decimal `bun:"vat,type:decimal(12,2)"`
	Total      decimal.Decimal `bun:"total,type:decimal(12,2)"`
	CreatedBy  string          `bun:"created_by"`
	ModifiedBy string          `bun:"last_modified_by"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero"`

	// CustomerName and CustomerEmail are populated by the joined listing
	// query only; they are not columns of the orders table.
	CustomerName  string `bun:"customer_name,scanonly"`
	CustomerEmail string `bun:"email,scanonly"`
}
