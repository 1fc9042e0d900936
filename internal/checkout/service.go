package checkout

import (
	"context"
	"errors"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/cart"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/order"
)

var ErrEmptyCart = errors.New("cart is empty")

// OrderCreator is the part of the order service checkout needs.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in order.CreateOrderInput) (*order.Order, error)
}

type Service interface {
	// Checkout turns the cart into an order. The cart is emptied only once the order exists.
	Checkout(ctx context.Context, userID uuid.UUID, c *cart.Store, addr order.ShippingAddress) (*order.Order, error)
}

type service struct {
	orders OrderCreator
}

func NewService(orders OrderCreator) Service {
	return &service{orders: orders}
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID, c *cart.Store, addr order.ShippingAddress) (*order.Order, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	lines := c.Lines()
	items := make([]order.OrderItem, len(lines))
	for i, l := range lines {
		items[i] = order.OrderItem{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
			Image:     l.Product.Image,
		}
	}

	created, err := s.orders.CreateOrder(ctx, order.CreateOrderInput{
		UserID:          userID,
		Items:           items,
		ShippingAddress: addr,
	})
	if err != nil {
		return nil, err
	}

	if err := c.Clear(ctx); err != nil {
		log.Error().Err(err).Stringer("order_id", created.ID).Msg("checkout: order placed but cart was not cleared")
	}

	return created, nil
}
