package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	lowStockLimit     = 5
	recentOrdersLimit = 10
)

type LowStockProduct struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Slug  string    `json:"slug" db:"slug"`
	Name  string    `json:"name" db:"name"`
	Stock int       `json:"stock" db:"stock"`
}

type RecentOrder struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	UserName  string          `json:"user_name" db:"user_name"`
	UserEmail string          `json:"user_email" db:"user_email"`
	Total     decimal.Decimal `json:"total" db:"total"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalOrders      int               `json:"total_orders"`
	TotalRevenue     decimal.Decimal   `json:"total_revenue"`
	TotalProducts    int               `json:"total_products"`
	TotalUsers       int               `json:"total_users"`
	LowStockProducts []LowStockProduct `json:"low_stock_products"`
	RecentOrders     []RecentOrder     `json:"recent_orders"`
}

// Query bounds what the repository collects.
type Query struct {
	LowStockThreshold int
	LowStockLimit     int
	RecentOrdersLimit int
}

type Repository interface {
	Stats(ctx context.Context, q Query) (*Stats, error)
}

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo              Repository
	lowStockThreshold int
}

func NewService(repo Repository, lowStockThreshold int) Service {
	return &service{repo: repo, lowStockThreshold: lowStockThreshold}
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, Query{
		LowStockThreshold: s.lowStockThreshold,
		LowStockLimit:     lowStockLimit,
		RecentOrdersLimit: recentOrdersLimit,
	})
	if err != nil {
		log.Error().Err(err).Msg("service: failed to collect admin stats")
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}

	if stats.LowStockProducts == nil {
		stats.LowStockProducts = []LowStockProduct{}
	}
	if stats.RecentOrders == nil {
		stats.RecentOrders = []RecentOrder{}
	}
	return stats, nil
}
