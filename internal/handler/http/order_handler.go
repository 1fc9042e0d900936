package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/auth"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/order"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"
)

type OrderItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Size      int             `json:"size" validate:"required,gt=0"`
	Color     string          `json:"color"`
	Image     string          `json:"image"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" validate:"required"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderHandler struct {
	service  order.Service
	metrics  Recorder
	validate *validator.Validate
}

func NewOrderHandler(service order.Service, metrics Recorder) *OrderHandler {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &OrderHandler{
		service:  service,
		metrics:  metrics,
		validate: newValidator(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/orders", h.handleCreateOrder)
		r.Get("/orders", h.handleListOrders)
		r.Get("/orders/{id}", h.handleGetOrder)
		r.With(auth.RequireRole(user.RoleAdmin)).Put("/orders/{id}/status", h.handleUpdateOrderStatus)
	})
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())

	items := make([]order.OrderItem, len(requestPayload.Items))
	for i, it := range requestPayload.Items {
		items[i] = order.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
			Image:     it.Image,
		}
	}

	created, err := h.service.CreateOrder(r.Context(), order.CreateOrderInput{
		UserID:          identity.UserID,
		Items:           items,
		ShippingAddress: requestPayload.ShippingAddress.toAddress(),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create order")
		return
	}

	h.metrics.OrderPlaced(created.Total)
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	q := r.URL.Query()

	var filter order.ListFilter
	if raw := q.Get("status"); raw != "" {
		status, err := order.ParseStatus(raw)
		if err != nil {
			respondWithServiceError(w, err, "Failed to list orders")
			return
		}
		filter.Status = status
	}
	if raw := q.Get("user_id"); raw != "" {
		userID, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid user_id parameter")
			return
		}
		filter.UserID = userID
	}

	orders, err := h.service.ListOrders(r.Context(), identity, filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())

	o, err := h.service.GetOrder(r.Context(), identity, orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	status, err := order.ParseStatus(requestPayload.Status)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}

	updated, err := h.service.UpdateOrderStatus(r.Context(), orderID, status)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}
