package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jsMelius/Gleisure/internal/entity"
)

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"email,omitempty"`
	Status        string          `json:"order_status"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	VAT           decimal.Decimal `json:"vat"`
	Total         decimal.Decimal `json:"total"`
	CreatedBy     string          `json:"created_by"`
	ModifiedBy    string          `json:"last_modified_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewOrderResponse maps a stored order onto its transport shape.
func NewOrderResponse(order *entity.Order) OrderResponse {
	return OrderResponse{
		ID:            order.ID,
		CustomerID:    order.CustomerID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Status:        order.Status.String(),
		SubTotal:      order.SubTotal,
		VAT:           order.VAT,
		Total:         order.Total,
		CreatedBy:     order.CreatedBy,
		ModifiedBy:    order.ModifiedBy,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

// NewOrderResponses maps a full order collection, preserving its order.
func NewOrderResponses(orders []entity.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = NewOrderResponse(&orders[i])
	}
	return out
}

// NewOrderItemResponse maps a stored line item onto its transport shape.
func NewOrderItemResponse(item *entity.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:           item.ID,
		OrderID:      item.OrderID,
		SupplierName: item.SupplierName,
		ProductType:  item.ProductType,
		ProductName:  item.ProductName,
		UnitSize:     item.UnitSize,
		PackSize:     item.PackSize,
		UnitPrice:    item.UnitPrice,
		Quantity:     item.Quantity,
		Price:        item.Price,
		CreatedAt:    item.CreatedAt,
	}
}

// OrderItemRequest is a single line item submitted with a new order.
type OrderItemRequest struct {
	SupplierName string          `json:"supplier_name"`
	ProductType  string          `json:"product_type"`
	ProductName  string          `json:"product_name"`
	UnitSize     string          `json:"unit_size"`
	PackSize     string          `json:"pack_size"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

// OrderItemResponse represents a stored line item.
type OrderItemResponse struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	SupplierName string          `json:"supplier_name"`
	ProductType  string          `json:"product_type"`
	ProductName  string          `json:"product_name"`
	UnitSize     string          `json:"unit_size"`
	PackSize     string          `json:"pack_size"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	CreatedAt    time.Time       `json:"created_at"`
}
