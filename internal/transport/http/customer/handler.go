package customer

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsMelius/Gleisure/internal/dto"
	"github.com/jsMelius/Gleisure/internal/entity"
	"github.com/jsMelius/Gleisure/internal/presentation/http/response"
	service "github.com/jsMelius/Gleisure/internal/service/customer"
	"github.com/jsMelius/Gleisure/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/jsMelius/Gleisure/transport/http/customer")

// Handler exposes customer endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a customer Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group. The credit-usage route must be
// registered before /:id so the literal path wins.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/customers")
	g.GET("", h.list)
	g.GET("/credit-usage", h.creditUsage)
	g.GET("/:id", h.getByID)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "customers.list")
	defer span.End()

	customers, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTOs(customers)).Build()
}

func (h *Handler) creditUsage(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "customers.creditUsage")
	defer span.End()

	customers, err := h.svc.ListHighCreditUsage(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTOs(customers)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := customerID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "customers.getByID", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	customer, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(customer)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CustomerRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "customers.create", trace.WithAttributes(
		attribute.String("customer.name", payload.CustomerName),
	))
	defer span.End()

	customer := fromRequest(payload)
	if err := h.svc.Create(ctx, customer); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(toDTO(customer)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := customerID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.CustomerRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "customers.update", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	customer := fromRequest(payload)
	customer.ID = id
	if err := h.svc.Update(ctx, customer); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(map[string]int64{"id": id}).Build()
}

func (h *Handler) remove(c echo.Context) error {
	b := response.New(c)

	id, err := customerID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "customers.delete", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(map[string]string{"message": "customer deleted"}).Build()
}

func customerID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return id, nil
}

func fromRequest(payload dto.CustomerRequest) *entity.Customer {
	return &entity.Customer{
		CustomerName: payload.CustomerName,
		Email:        payload.Email,
		AddressLine1: payload.AddressLine1,
		AddressLine2: payload.AddressLine2,
		City:         payload.City,
		County:       payload.County,
		Postcode:     payload.Postcode,
		PhoneNumber:  payload.PhoneNumber,
		CreditLimit:  payload.CreditLimit,
		CreatedBy:    payload.CreatedBy,
		ModifiedBy:   payload.ModifiedBy,
	}
}

func toDTO(customer *entity.Customer) dto.CustomerResponse {
	return dto.CustomerResponse{
		ID:           customer.ID,
		CustomerName: customer.CustomerName,
		Email:        customer.Email,
		AddressLine1: customer.AddressLine1,
		AddressLine2: customer.AddressLine2,
		City:         customer.City,
		County:       customer.County,
		Postcode:     customer.Postcode,
		PhoneNumber:  customer.PhoneNumber,
		CreditLimit:  customer.CreditLimit,
		CreditUsed:   customer.CreditUsed,
		CreatedAt:    customer.CreatedAt,
		UpdatedAt:    customer.UpdatedAt,
	}
}

func toDTOs(customers []entity.Customer) []dto.CustomerResponse {
	out := make([]dto.CustomerResponse, len(customers))
	for i := range customers {
		out[i] = toDTO(&customers[i])
	}
	return out
}
