package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/auth"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/product"
)

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusPaid:      true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusShipped: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

var (
	ErrInvalidOrder            = errors.New("invalid order")
	ErrInvalidStatus           = errors.New("unknown order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrForbidden               = errors.New("not allowed to access this order")
)

type Service interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error)
	// GetOrder returns the order to its owner or an admin.
	GetOrder(ctx context.Context, requester auth.Identity, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, requester auth.Identity, f ListFilter) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (*Order, error)
}

type service struct {
	orderRepo Repository
	shipping  ShippingPolicy
}

func NewService(orderRepo Repository, shipping ShippingPolicy) Service {
	return &service{
		orderRepo: orderRepo,
		shipping:  shipping,
	}
}

func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if err := validateInput(in); err != nil {
		log.Warn().Err(err).Stringer("user_id", in.UserID).Msg("service: rejected order input")
		return nil, err
	}

	items := make([]OrderItem, len(in.Items))
	copy(items, in.Items)

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	shippingCost := s.shipping.Cost(subtotal)

	o := &Order{
		UserID:          in.UserID,
		Items:           items,
		Subtotal:        subtotal,
		ShippingCost:    shippingCost,
		Total:           subtotal.Add(shippingCost),
		Status:          StatusPending,
		ShippingAddress: in.ShippingAddress,
	}

	if err := s.orderRepo.CreateOrder(ctx, o); err != nil {
		if errors.Is(err, product.ErrInsufficientStock) || errors.Is(err, product.ErrProductNotFound) {
			log.Warn().Err(err).Stringer("user_id", in.UserID).Msg("service: order rejected by inventory")
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID).
		Stringer("user_id", o.UserID).
		Str("total", o.Total.StringFixed(2)).
		Msg("service: order created successfully")

	return o, nil
}

func validateInput(in CreateOrderInput) error {
	if in.UserID == uuid.Nil {
		return fmt.Errorf("%w: user is required", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}

	for i, item := range in.Items {
		switch {
		case item.ProductID == uuid.Nil:
			return fmt.Errorf("%w: item %d: product id is required", ErrInvalidOrder, i)
		case strings.TrimSpace(item.Name) == "":
			return fmt.Errorf("%w: item %d: name is required", ErrInvalidOrder, i)
		case item.Price.IsNegative():
			return fmt.Errorf("%w: item %d: price cannot be negative", ErrInvalidOrder, i)
		case item.Quantity < 1:
			return fmt.Errorf("%w: item %d: quantity must be at least 1", ErrInvalidOrder, i)
		case item.Size <= 0:
			return fmt.Errorf("%w: item %d: size must be positive", ErrInvalidOrder, i)
		}
	}

	a := in.ShippingAddress
	required := []struct {
		field, value string
	}{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"address", a.Address},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: shipping address %s is required", ErrInvalidOrder, r.field)
		}
	}

	return nil
}

func (s *service) GetOrder(ctx context.Context, requester auth.Identity, id uuid.UUID) (*Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	if order.UserID != requester.UserID && !requester.IsAdmin() {
		log.Warn().Stringer("order_id", id).Stringer("user_id", requester.UserID).Msg("service: order access forbidden")
		return nil, ErrForbidden
	}

	return order, nil
}

func (s *service) ListOrders(ctx context.Context, requester auth.Identity, f ListFilter) ([]Order, error) {
	if !requester.IsAdmin() {
		f.UserID = requester.UserID
	}

	orders, err := s.orderRepo.ListOrders(ctx, f)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", requester.UserID).Msg("service: failed to list orders in repository")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}

	return orders, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (*Order, error) {
	if _, ok := allowedTransitions[newStatus]; !ok {
		return nil, ErrInvalidStatus
	}

	currentOrder, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to get order for status update")
		return nil, fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if currentOrder.Status == newStatus {
		log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return currentOrder, nil
	}

	if !allowedTransitions[currentOrder.Status][newStatus] {
		log.Warn().
			Stringer("order_id", currentOrder.ID).
			Stringer("current_status", currentOrder.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, currentOrder.Status, newStatus)
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, currentOrder.Status, newStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		if errors.Is(err, ErrInvalidStatusTransition) {
			log.Warn().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order status changed concurrently")
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("old_status", currentOrder.Status).Stringer("new_status", newStatus).Msg("service: order status updated successfully")

	return s.orderRepo.GetOrderByID(ctx, orderID)
}
