package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/config"
	"github.com/jsMelius/Gleisure/internal/entity"
	customerrepo "github.com/jsMelius/Gleisure/internal/repository/customer"
	orderrepo "github.com/jsMelius/Gleisure/internal/repository/order"
	"github.com/jsMelius/Gleisure/pkg/errorbank"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[int64]*entity.Customer
	err       error
}

func newFakeCustomerRepo(customers ...*entity.Customer) *fakeCustomerRepo {
	m := make(map[int64]*entity.Customer, len(customers))
	for _, c := range customers {
		m[c.ID] = c
	}
	return &fakeCustomerRepo{customers: m}
}

func (f *fakeCustomerRepo) GetByID(_ context.Context, id int64) (*entity.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.customers[id]
	if !ok {
		return nil, customerrepo.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCustomerRepo) AddCreditUsed(_ context.Context, id int64, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	c, ok := f.customers[id]
	if !ok {
		return customerrepo.ErrNotFound
	}
	c.CreditUsed = c.CreditUsed.Add(amount)
	return nil
}

func (f *fakeCustomerRepo) creditUsed(id int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customers[id].CreditUsed
}

// fakeOrderRepo holds a reference to the customer fake so CommitApproval can
// mimic the real repository's all-or-nothing transaction across both tables.
type fakeOrderRepo struct {
	mu        sync.Mutex
	customers *fakeCustomerRepo
	orders    map[int64]*entity.Order
	items     map[int64][]entity.OrderItem
	nextID    int64
	err       error
	commitErr error
}

func newFakeOrderRepo(customers *fakeCustomerRepo) *fakeOrderRepo {
	return &fakeOrderRepo{
		customers: customers,
		orders:    make(map[int64]*entity.Order),
		items:     make(map[int64][]entity.OrderItem),
	}
}

func (f *fakeOrderRepo) CreateWithItems(_ context.Context, order *entity.Order, items []entity.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	order.ID = f.nextID
	copied := *order
	f.orders[order.ID] = &copied
	for i := range items {
		items[i].OrderID = order.ID
	}
	f.items[order.ID] = append([]entity.OrderItem(nil), items...)
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, orderrepo.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderRepo) ListAll(_ context.Context) ([]entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]entity.Order, 0, len(f.orders))
	for id := int64(1); id <= f.nextID; id++ {
		if o, ok := f.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id int64, status entity.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	o, ok := f.orders[id]
	if !ok {
		return orderrepo.ErrNotFound
	}
	o.Status = status
	return nil
}

func (f *fakeOrderRepo) CommitApproval(ctx context.Context, orderID, customerID int64, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.commitErr != nil {
		return f.commitErr
	}
	o, ok := f.orders[orderID]
	if !ok || o.Status != entity.StatusAwaitingApproval {
		return orderrepo.ErrNotFound
	}
	if err := f.customers.AddCreditUsed(ctx, customerID, amount); err != nil {
		return err
	}
	o.Status = entity.StatusPlaced
	return nil
}

func (f *fakeOrderRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.orders[id]; !ok {
		return orderrepo.ErrNotFound
	}
	delete(f.items, id)
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) CreateItems(_ context.Context, orderID int64, items []entity.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	f.items[orderID] = append(f.items[orderID], items...)
	return nil
}

func (f *fakeOrderRepo) ListItemsByOrder(_ context.Context, orderID int64) ([]entity.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]entity.OrderItem(nil), f.items[orderID]...), nil
}

func (f *fakeOrderRepo) status(id int64) entity.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id].Status
}

func newTestService(orders OrderRepository, customers CustomerRepository) *Service {
	return New(orders, customers, nil, config.Config{}, zap.NewNop(), nil)
}

func testCustomer(id int64, limit, used string) *entity.Customer {
	return &entity.Customer{ID: id, CustomerName: "Test Customer", CreditLimit: dec(limit), CreditUsed: dec(used)}
}

func placeArgs(customerID int64, subTotal string) PlaceOrderArgs {
	sub := dec(subTotal)
	vat := sub.Mul(entity.VATRate).Round(2)
	return PlaceOrderArgs{
		CustomerID: customerID,
		SubTotal:   sub,
		VAT:        vat,
		Total:      sub.Add(vat),
		ActorID:    "tester",
	}
}

func requireKind(t *testing.T, err error, kind errorbank.Kind) {
	t.Helper()
	require.Error(t, err)
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, kind, appErr.Kind())
}

func TestPlaceOrderWithinLimit(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "1000", "0"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	order, err := svc.PlaceOrder(context.Background(), placeArgs(1, "100"))
	require.NoError(t, err)

	assert.Equal(t, entity.StatusPlaced, order.Status)
	assert.True(t, customers.creditUsed(1).Equal(dec("120")), "credit_used should grow by the order total")
}

func TestPlaceOrderOverLimitAwaitsApproval(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "100", "0"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	order, err := svc.PlaceOrder(context.Background(), placeArgs(1, "100"))
	require.NoError(t, err)

	assert.Equal(t, entity.StatusAwaitingApproval, order.Status)
	assert.True(t, customers.creditUsed(1).IsZero(), "deferred order must not consume credit")
}

func TestPlaceOrderUnknownCustomer(t *testing.T) {
	customers := newFakeCustomerRepo()
	svc := newTestService(newFakeOrderRepo(customers), customers)

	_, err := svc.PlaceOrder(context.Background(), placeArgs(42, "10"))
	requireKind(t, err, errorbank.KindNotFound)
}

func TestPlaceOrderValidation(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "1000", "0"))
	svc := newTestService(newFakeOrderRepo(customers), customers)

	tests := []struct {
		name string
		args PlaceOrderArgs
	}{
		{
			name: "missing customer id",
			args: PlaceOrderArgs{SubTotal: dec("10"), VAT: dec("2"), Total: dec("12")},
		},
		{
			name: "mismatched total",
			args: PlaceOrderArgs{CustomerID: 1, SubTotal: dec("10"), VAT: dec("2"), Total: dec("13")},
		},
		{
			name: "wrong vat rate",
			args: PlaceOrderArgs{CustomerID: 1, SubTotal: dec("10"), VAT: dec("3"), Total: dec("13")},
		},
		{
			name: "negative amounts",
			args: PlaceOrderArgs{CustomerID: 1, SubTotal: dec("-10"), VAT: dec("-2"), Total: dec("-12")},
		},
		{
			name: "non-positive item quantity",
			args: PlaceOrderArgs{
				CustomerID: 1, SubTotal: dec("10"), VAT: dec("2"), Total: dec("12"),
				Items: []entity.OrderItem{{UnitPrice: dec("10"), Quantity: 0, Price: dec("0")}},
			},
		},
		{
			name: "item price mismatch",
			args: PlaceOrderArgs{
				CustomerID: 1, SubTotal: dec("10"), VAT: dec("2"), Total: dec("12"),
				Items: []entity.OrderItem{{UnitPrice: dec("5"), Quantity: 2, Price: dec("11")}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), tc.args)
			requireKind(t, err, errorbank.KindBadRequest)
		})
	}

	assert.True(t, customers.creditUsed(1).IsZero(), "rejected input must never touch the ledger")
}

func TestApproveCommitsCreditExactlyOnce(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "100", "0"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	placed, err := svc.PlaceOrder(context.Background(), placeArgs(1, "100"))
	require.NoError(t, err)
	require.Equal(t, entity.StatusAwaitingApproval, placed.Status)

	approved, err := svc.Approve(context.Background(), placed.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPlaced, approved.Status)
	assert.True(t, customers.creditUsed(1).Equal(dec("120")))

	// Replayed approval must not double-charge.
	_, err = svc.Approve(context.Background(), placed.ID)
	requireKind(t, err, errorbank.KindInvalidTransition)
	assert.True(t, customers.creditUsed(1).Equal(dec("120")), "ledger unchanged on replay")
}

func TestApproveFailureLeavesStateConsistent(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "100", "0"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	placed, err := svc.PlaceOrder(context.Background(), placeArgs(1, "100"))
	require.NoError(t, err)
	require.Equal(t, entity.StatusAwaitingApproval, placed.Status)

	// A failed commit rolls back both writes: the order stays approvable and
	// the ledger stays untouched, so the caller can simply retry.
	orders.commitErr = errors.New("connection refused")
	_, err = svc.Approve(context.Background(), placed.ID)
	requireKind(t, err, errorbank.KindUnavailable)
	assert.Equal(t, entity.StatusAwaitingApproval, orders.status(placed.ID))
	assert.True(t, customers.creditUsed(1).IsZero())

	orders.commitErr = nil
	approved, err := svc.Approve(context.Background(), placed.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPlaced, approved.Status)
	assert.True(t, customers.creditUsed(1).Equal(dec("120")), "retry charges exactly once")
}

func TestRejectNeverTouchesLedger(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "100", "0"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	placed, err := svc.PlaceOrder(context.Background(), placeArgs(1, "100"))
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), placed.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, rejected.Status)
	assert.True(t, customers.creditUsed(1).IsZero())
}

func TestTransitionsFromTerminalStates(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "1000", "0"), testCustomer(2, "10", "0"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	placed, err := svc.PlaceOrder(context.Background(), placeArgs(1, "100"))
	require.NoError(t, err)
	require.Equal(t, entity.StatusPlaced, placed.Status)

	deferred, err := svc.PlaceOrder(context.Background(), placeArgs(2, "100"))
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), deferred.ID)
	require.NoError(t, err)

	usedBefore := customers.creditUsed(1)

	_, err = svc.Approve(context.Background(), placed.ID)
	requireKind(t, err, errorbank.KindInvalidTransition)
	_, err = svc.Reject(context.Background(), placed.ID)
	requireKind(t, err, errorbank.KindInvalidTransition)

	_, err = svc.Approve(context.Background(), deferred.ID)
	requireKind(t, err, errorbank.KindInvalidTransition)
	_, err = svc.Reject(context.Background(), deferred.ID)
	requireKind(t, err, errorbank.KindInvalidTransition)

	assert.True(t, customers.creditUsed(1).Equal(usedBefore), "no ledger mutation on refused transitions")
	assert.True(t, customers.creditUsed(2).IsZero())
}

func TestCreditScenario(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "1000", "900"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	first, err := svc.PlaceOrder(context.Background(), PlaceOrderArgs{
		CustomerID: 1, SubTotal: dec("50"), VAT: dec("10"), Total: dec("60"), ActorID: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPlaced, first.Status)
	assert.True(t, customers.creditUsed(1).Equal(dec("960")))

	second, err := svc.PlaceOrder(context.Background(), PlaceOrderArgs{
		CustomerID: 1, SubTotal: dec("100"), VAT: dec("20"), Total: dec("120"), ActorID: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAwaitingApproval, second.Status)
	assert.True(t, customers.creditUsed(1).Equal(dec("960")), "deferred order leaves credit_used alone")

	_, err = svc.Approve(context.Background(), second.ID)
	require.NoError(t, err)
	assert.True(t, customers.creditUsed(1).Equal(dec("1080")), "approval may push usage past the limit")
}

func TestDeleteRemovesOrderAndItems(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "1000", "0"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	args := placeArgs(1, "10")
	args.Items = []entity.OrderItem{
		{ProductName: "House Lager", UnitPrice: dec("5"), Quantity: 2, Price: dec("10")},
	}
	placed, err := svc.PlaceOrder(context.Background(), args)
	require.NoError(t, err)

	items, err := svc.ListItems(context.Background(), placed.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, svc.Delete(context.Background(), placed.ID))

	items, err = svc.ListItems(context.Background(), placed.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.Get(context.Background(), placed.ID)
	requireKind(t, err, errorbank.KindNotFound)

	// Committed credit is not released by deletion.
	assert.True(t, customers.creditUsed(1).Equal(dec("12")))
}

func TestDeleteUnknownOrder(t *testing.T) {
	customers := newFakeCustomerRepo()
	svc := newTestService(newFakeOrderRepo(customers), customers)
	requireKind(t, svc.Delete(context.Background(), 99), errorbank.KindNotFound)
}

func TestConcurrentAdmissionsAreSerialized(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "1000", "900"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	// Each order fits on its own but the pair would overshoot, so exactly
	// one must be admitted as Placed.
	args := PlaceOrderArgs{
		CustomerID: 1, SubTotal: dec("50"), VAT: dec("10"), Total: dec("60"), ActorID: "tester",
	}

	var wg sync.WaitGroup
	results := make([]entity.OrderStatus, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := svc.PlaceOrder(context.Background(), args)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = order.Status
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	placedCount := 0
	for _, status := range results {
		if status == entity.StatusPlaced {
			placedCount++
		}
	}
	assert.Equal(t, 1, placedCount, "exactly one of two racing orders may be placed")
	assert.True(t, customers.creditUsed(1).Equal(dec("960")), "combined usage must not exceed the limit")
}

func TestStoreFailuresAreRetryable(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "1000", "0"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	orders.err = errors.New("connection refused")
	_, err := svc.PlaceOrder(context.Background(), placeArgs(1, "10"))
	requireKind(t, err, errorbank.KindUnavailable)

	orders.err = context.DeadlineExceeded
	_, err = svc.PlaceOrder(context.Background(), placeArgs(1, "10"))
	requireKind(t, err, errorbank.KindTimeout)

	assert.True(t, customers.creditUsed(1).IsZero(), "failed writes never charge the ledger")
}

func TestAddItemsRequiresExistingOrder(t *testing.T) {
	customers := newFakeCustomerRepo(testCustomer(1, "1000", "0"))
	orders := newFakeOrderRepo(customers)
	svc := newTestService(orders, customers)

	items := []entity.OrderItem{{ProductName: "Pale Ale", UnitPrice: dec("4"), Quantity: 3, Price: dec("12")}}
	requireKind(t, svc.AddItems(context.Background(), 7, items), errorbank.KindNotFound)

	placed, err := svc.PlaceOrder(context.Background(), placeArgs(1, "10"))
	require.NoError(t, err)
	require.NoError(t, svc.AddItems(context.Background(), placed.ID, items))

	stored, err := svc.ListItems(context.Background(), placed.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
