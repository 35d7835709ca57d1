package order

import (
	"github.com/shopspring/decimal"

	"github.com/jsMelius/Gleisure/internal/entity"
)

// evaluateAdmission decides the initial status for a prospective order from a
// ledger snapshot. An order whose total still fits inside the credit limit is
// placed immediately; anything that would breach the limit is deferred for
// human approval. The function has no side effects so a caller can re-run it
// after a transient failure without double-charging.
func evaluateAdmission(customer *entity.Customer, orderTotal decimal.Decimal) entity.OrderStatus {
	wouldBeUsed := customer.CreditUsed.Add(orderTotal)
	if wouldBeUsed.GreaterThan(customer.CreditLimit) {
		return entity.StatusAwaitingApproval
	}
	return entity.StatusPlaced
}
