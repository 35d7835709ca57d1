package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsMelius/Gleisure/internal/dto"
	"github.com/jsMelius/Gleisure/internal/entity"
	"github.com/jsMelius/Gleisure/internal/presentation/http/response"
	service "github.com/jsMelius/Gleisure/internal/service/order"
	"github.com/jsMelius/Gleisure/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/jsMelius/Gleisure/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("", h.list)
	g.POST("", h.place)
	g.GET("/:id", h.getByID)
	g.PUT("/:id/approve", h.approve)
	g.PUT("/:id/reject", h.reject)
	g.DELETE("/:id", h.remove)
	g.GET("/:id/items", h.listItems)
	g.POST("/:id/items", h.addItems)
}

type placeOrderPayload struct {
	CustomerID int64                  `json:"customer_id"`
	SubTotal   decimal.Decimal        `json:"sub_total"`
	VAT        decimal.Decimal        `json:"vat"`
	Total      decimal.Decimal        `json:"total"`
	Items      []dto.OrderItemRequest `json:"items"`
	CreatedBy  string                 `json:"created_by"`
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderResponses(orders)).Build()
}

func (h *Handler) place(c echo.Context) error {
	b := response.New(c)

	var payload placeOrderPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.place", trace.WithAttributes(
		attribute.Int64("order.customer_id", payload.CustomerID),
	))
	defer span.End()

	order, err := h.svc.PlaceOrder(ctx, service.PlaceOrderArgs{
		CustomerID: payload.CustomerID,
		SubTotal:   payload.SubTotal,
		VAT:        payload.VAT,
		Total:      payload.Total,
		Items:      toItems(payload.Items, payload.CreatedBy),
		ActorID:    payload.CreatedBy,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) approve(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.approve", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Approve(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) reject(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.reject", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Reject(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) remove(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(map[string]string{"message": "order deleted"}).Build()
}

func (h *Handler) listItems(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listItems", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	items, err := h.svc.ListItems(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.OrderItemResponse, len(items))
	for i := range items {
		out[i] = dto.NewOrderItemResponse(&items[i])
	}
	return b.WithData(out).Build()
}

func (h *Handler) addItems(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Items     []dto.OrderItemRequest `json:"items"`
		CreatedBy string                 `json:"created_by"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if len(payload.Items) == 0 {
		return b.WithError(errorbank.BadRequest("items are required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.addItems", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.AddItems(ctx, id, toItems(payload.Items, payload.CreatedBy)); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(map[string]string{"message": "order items added"}).Build()
}

func orderID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return id, nil
}

func toItems(reqs []dto.OrderItemRequest, actor string) []entity.OrderItem {
	items := make([]entity.OrderItem, len(reqs))
	for i, r := range reqs {
		items[i] = entity.OrderItem{
			SupplierName: r.SupplierName,
			ProductType:  r.ProductType,
			ProductName:  r.ProductName,
			UnitSize:     r.UnitSize,
			PackSize:     r.PackSize,
			UnitPrice:    r.UnitPrice,
			Quantity:     r.Quantity,
			Price:        r.Price,
			CreatedBy:    actor,
			ModifiedBy:   actor,
		}
	}
	return items
}
