package admin

import (
	"context"
	"sort"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/order"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/product"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"
)

type ProductSource interface {
	All() []product.Product
}

type OrderSource interface {
	ListOrders(ctx context.Context, f order.ListFilter) ([]order.Order, error)
}

type UserSource interface {
	Count() int
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type memoryRepository struct {
	products ProductSource
	orders   OrderSource
	users    UserSource
}

// NewMemoryRepository computes stats from the in-memory stores.
func NewMemoryRepository(products ProductSource, orders OrderSource, users UserSource) Repository {
	return &memoryRepository{products: products, orders: orders, users: users}
}

func (r *memoryRepository) Stats(ctx context.Context, q Query) (*Stats, error) {
	orders, err := r.orders.ListOrders(ctx, order.ListFilter{})
	if err != nil {
		return nil, err
	}
	products := r.products.All()

	stats := &Stats{
		TotalOrders:   len(orders),
		TotalRevenue:  decimal.Zero,
		TotalProducts: len(products),
		TotalUsers:    r.users.Count(),
	}

	for _, o := range orders {
		stats.TotalRevenue = stats.TotalRevenue.Add(o.Total)
	}

	sort.Slice(products, func(i, j int) bool {
		if products[i].Stock != products[j].Stock {
			return products[i].Stock < products[j].Stock
		}
		return products[i].Name < products[j].Name
	})
	for _, p := range products {
		if p.Stock > q.LowStockThreshold || len(stats.LowStockProducts) >= q.LowStockLimit {
			break
		}
		stats.LowStockProducts = append(stats.LowStockProducts, LowStockProduct{ID: p.ID, Slug: p.Slug, Name: p.Name, Stock: p.Stock})
	}

	for i, o := range orders {
		if i >= q.RecentOrdersLimit {
			break
		}
		ro := RecentOrder{ID: o.ID, UserID: o.UserID, Total: o.Total, Status: o.Status.String(), CreatedAt: o.CreatedAt}
		if u, err := r.users.GetByID(ctx, o.UserID); err == nil {
			ro.UserName = u.Name
			ro.UserEmail = u.Email
		}
		stats.RecentOrders = append(stats.RecentOrders, ro)
	}

	return stats, nil
}
