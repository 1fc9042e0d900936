package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/admin"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/cart"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/checkout"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/config"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/db"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/order"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/product"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/review"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"
)

// app holds the wired services for one storage driver.
type app struct {
	users    user.Service
	products product.Service
	orders   order.Service
	reviews  review.Service
	checkout checkout.Service
	stats    admin.Service

	closers []func()
}

type repositories struct {
	users    user.Repository
	products product.Repository
	orders   order.Repository
	reviews  review.Repository
	stats    admin.Repository
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	var repos repositories
	switch cfg.App.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		userRepo := user.NewMemoryRepository()
		productRepo := product.NewMemoryRepository()
		orderRepo := order.NewMemoryRepository(productRepo)
		repos = repositories{
			users:    userRepo,
			products: productRepo,
			orders:   orderRepo,
			reviews:  review.NewMemoryRepository(userRepo),
			stats:    admin.NewMemoryRepository(productRepo, orderRepo, userRepo),
		}
	default:
		if cfg.App.AutoMigrate {
			if err := db.ApplyMigrations(cfg.Postgres); err != nil {
				return nil, err
			}
		}

		pg, err := db.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		sqlxDB := pg.SQLX()
		a.closers = append(a.closers, func() {
			if err := sqlxDB.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close sqlx handle")
			}
			pg.Close()
		})

		repos = repositories{
			users:    user.NewRepository(pg.Pool),
			products: product.NewRepository(pg.Pool),
			orders:   order.NewRepository(pg.Pool),
			reviews:  review.NewRepository(pg.Pool),
			stats:    admin.NewRepository(sqlxDB),
		}
	}

	a.users = user.NewService(repos.users)
	a.products = product.NewService(repos.products, repos.reviews)
	a.reviews = review.NewService(repos.reviews, repos.products)
	a.orders = order.NewService(repos.orders, order.ShippingPolicy{
		FreeThreshold: cfg.Shop.FreeShippingThreshold,
		FlatCost:      cfg.Shop.FlatShippingCost,
	})
	a.checkout = checkout.NewService(a.orders)
	a.stats = admin.NewService(repos.stats, cfg.Shop.LowStockThreshold)

	return a, nil
}

// cartSessions prefers Redis and falls back to process memory when no address is configured.
func (a *app) cartSessions(ctx context.Context, cfg config.RedisConfig) (cart.Sessions, error) {
	if cfg.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set; carts are kept in process memory")
		return cart.NewMemorySessions(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	})

	log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")
	return cart.NewRedisSessions(client, cfg.CartTTL), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
