package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Customer represents an account that draws against a pre-agreed credit line.
// CreditLimit and CreditUsed are the ledger the order state machine commits
// against; they are mutated only through the customer repository's atomic
// increment, never by direct field writes.
type Customer struct {
	bun.BaseModel `bun:"table:customer,alias:c"`

	ID           int64           `bun:",pk,autoincrement"`
	CustomerName string          `bun:"customer_name"`
	Email        string          `bun:"email"`
	AddressLine1 string          `bun:"address_line_1"`
	AddressLine2 string          `bun:"address_line_2,nullzero"`
	City         string          `bun:"city"`
	County       string          `bun:"county"`
	Postcode     string          `bun:"postcode"`
	PhoneNumber  string          `bun:"phone_number"`
	CreditLimit  decimal.Decimal `bun:"credit_limit,type:decimal(12,2)"`
	CreditUsed   decimal.Decimal `bun:"credit_used,type:decimal(12,2)"`
	CreatedBy    string          `bun:"created_by"`
	ModifiedBy   string          `bun:"last_modified_by"`
	CreatedAt    time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time       `bun:"updated_at,nullzero"`
}

// CreditAvailable returns the headroom left on the credit line. It can be
// negative when an approval pushed usage past the limit.
func (c *Customer) CreditAvailable() decimal.Decimal {
	return c.CreditLimit.Sub(c.CreditUsed)
}
