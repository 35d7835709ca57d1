package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/config"
	"github.com/jsMelius/Gleisure/internal/entity"
	customerrepo "github.com/jsMelius/Gleisure/internal/repository/customer"
	orderrepo "github.com/jsMelius/Gleisure/internal/repository/order"
	service "github.com/jsMelius/Gleisure/internal/service/order"
)

type memCustomers struct {
	mu        sync.Mutex
	customers map[int64]*entity.Customer
}

func (m *memCustomers) GetByID(_ context.Context, id int64) (*entity.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, customerrepo.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *memCustomers) AddCreditUsed(_ context.Context, id int64, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return customerrepo.ErrNotFound
	}
	c.CreditUsed = c.CreditUsed.Add(amount)
	return nil
}

type memOrders struct {
	mu        sync.Mutex
	customers *memCustomers
	orders    map[int64]*entity.Order
	items     map[int64][]entity.OrderItem
	nextID    int64
}

func (m *memOrders) CreateWithItems(_ context.Context, order *entity.Order, items []entity.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	order.ID = m.nextID
	copied := *order
	m.orders[order.ID] = &copied
	m.items[order.ID] = append([]entity.OrderItem(nil), items...)
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, orderrepo.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *memOrders) ListAll(_ context.Context) ([]entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.Order, 0, len(m.orders))
	for id := int64(1); id <= m.nextID; id++ {
		if o, ok := m.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id int64, status entity.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return orderrepo.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *memOrders) CommitApproval(ctx context.Context, orderID, customerID int64, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != entity.StatusAwaitingApproval {
		return orderrepo.ErrNotFound
	}
	if err := m.customers.AddCreditUsed(ctx, customerID, amount); err != nil {
		return err
	}
	o.Status = entity.StatusPlaced
	return nil
}

func (m *memOrders) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return orderrepo.ErrNotFound
	}
	delete(m.items, id)
	delete(m.orders, id)
	return nil
}

func (m *memOrders) CreateItems(_ context.Context, orderID int64, items []entity.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[orderID] = append(m.items[orderID], items...)
	return nil
}

func (m *memOrders) ListItemsByOrder(_ context.Context, orderID int64) ([]entity.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.OrderItem(nil), m.items[orderID]...), nil
}

func newTestServer(t *testing.T, limit, used string) *echo.Echo {
	t.Helper()
	customers := &memCustomers{customers: map[int64]*entity.Customer{
		1: {
			ID:           1,
			CustomerName: "Harbourside Hotel",
			CreditLimit:  decimal.RequireFromString(limit),
			CreditUsed:   decimal.RequireFromString(used),
		},
	}}
	orders := &memOrders{customers: customers, orders: map[int64]*entity.Order{}, items: map[int64][]entity.OrderItem{}}

	svc := service.New(orders, customers, nil, config.Config{}, zap.NewNop(), nil)

	e := echo.New()
	Register(e, NewHandler(svc))
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func orderStatus(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID     int64  `json:"id"`
			Status string `json:"order_status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data.Status
}

func TestPlaceOrderEndpoint(t *testing.T) {
	e := newTestServer(t, "1000", "0")

	body := `{"customer_id":1,"sub_total":"100","vat":"20","total":"120","created_by":"bar-staff","items":[{"product_name":"House Lager","unit_price":"10","quantity":10,"price":"100"}]}`
	rec := doJSON(e, http.MethodPost, "/orders", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Placed", orderStatus(t, rec))

	rec = doJSON(e, http.MethodGet, "/orders/1/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "House Lager")
}

func TestPlaceOrderEndpointOverLimit(t *testing.T) {
	e := newTestServer(t, "100", "50")

	body := `{"customer_id":1,"sub_total":"100","vat":"20","total":"120","created_by":"bar-staff"}`
	rec := doJSON(e, http.MethodPost, "/orders", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Awaiting Approval", orderStatus(t, rec))
}

func TestApproveEndpointReplayConflicts(t *testing.T) {
	e := newTestServer(t, "100", "50")

	body := `{"customer_id":1,"sub_total":"100","vat":"20","total":"120","created_by":"bar-staff"}`
	rec := doJSON(e, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPut, "/orders/1/approve", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Placed", orderStatus(t, rec))

	rec = doJSON(e, http.MethodPut, "/orders/1/approve", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_transition")
}

func TestRejectEndpoint(t *testing.T) {
	e := newTestServer(t, "100", "50")

	body := `{"customer_id":1,"sub_total":"100","vat":"20","total":"120","created_by":"bar-staff"}`
	rec := doJSON(e, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPut, "/orders/1/reject", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Rejected", orderStatus(t, rec))
}

func TestOrderEndpointErrors(t *testing.T) {
	e := newTestServer(t, "1000", "0")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "unknown order", method: http.MethodGet, path: "/orders/99", status: http.StatusNotFound},
		{name: "bad id", method: http.MethodGet, path: "/orders/abc", status: http.StatusBadRequest},
		{name: "delete unknown", method: http.MethodDelete, path: "/orders/99", status: http.StatusNotFound},
		{name: "approve unknown", method: http.MethodPut, path: "/orders/99/approve", status: http.StatusNotFound},
		{
			name: "unknown customer", method: http.MethodPost, path: "/orders",
			body:   `{"customer_id":7,"sub_total":"10","vat":"2","total":"12"}`,
			status: http.StatusNotFound,
		},
		{
			name: "inconsistent totals", method: http.MethodPost, path: "/orders",
			body:   `{"customer_id":1,"sub_total":"10","vat":"2","total":"99"}`,
			status: http.StatusBadRequest,
		},
		{
			name: "empty items payload", method: http.MethodPost, path: "/orders/1/items",
			body:   `{"items":[]}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestDeleteEndpoint(t *testing.T) {
	e := newTestServer(t, "1000", "0")

	body := `{"customer_id":1,"sub_total":"10","vat":"2","total":"12","created_by":"bar-staff"}`
	rec := doJSON(e, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/orders/1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(e, http.MethodGet, "/orders/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpointOrdering(t *testing.T) {
	e := newTestServer(t, "1000", "0")

	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"customer_id":1,"sub_total":"%d","vat":"%s","total":"%s","created_by":"bar-staff"}`,
			10*(i+1), decimal.NewFromInt(int64(2*(i+1))).String(), decimal.NewFromInt(int64(12*(i+1))).String())
		rec := doJSON(e, http.MethodPost, "/orders", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(e, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	for i, order := range resp.Data {
		assert.Equal(t, int64(i+1), order.ID)
	}
}
