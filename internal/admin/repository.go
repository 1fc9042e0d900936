package admin

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type sqlxRepository struct {
	db *sqlx.DB
}

// NewRepository reads dashboard aggregates through sqlx.
func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) Stats(ctx context.Context, q Query) (*Stats, error) {
	var stats Stats

	counts := struct {
		Orders   int `db:"orders"`
		Products int `db:"products"`
		Users    int `db:"users"`
	}{}
	err := r.db.GetContext(ctx, &counts, `
		SELECT
			(SELECT count(*) FROM orders)   AS orders,
			(SELECT count(*) FROM products) AS products,
			(SELECT count(*) FROM users)    AS users
	`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to count entities: %w", err)
	}
	stats.TotalOrders = counts.Orders
	stats.TotalProducts = counts.Products
	stats.TotalUsers = counts.Users

	if err := r.db.GetContext(ctx, &stats.TotalRevenue, `SELECT COALESCE(sum(total), 0) FROM orders`); err != nil {
		return nil, fmt.Errorf("repository: failed to sum revenue: %w", err)
	}

	err = r.db.SelectContext(ctx, &stats.LowStockProducts, `
		SELECT id, slug, name, stock
		FROM products
		WHERE stock <= $1
		ORDER BY stock ASC, name ASC
		LIMIT $2
	`, q.LowStockThreshold, q.LowStockLimit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to select low stock products: %w", err)
	}

	err = r.db.SelectContext(ctx, &stats.RecentOrders, `
		SELECT o.id, o.user_id, u.name AS user_name, u.email AS user_email, o.total, o.status, o.created_at
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
		LIMIT $1
	`, q.RecentOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to select recent orders: %w", err)
	}

	return &stats, nil
}
