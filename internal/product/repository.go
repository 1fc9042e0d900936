package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrSlugExists        = errors.New("product slug already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
}

const productColumns = `id, slug, name, description, price, images, model3d_url, sizes, colors,
	category, stock, featured, tags, created_at, updated_at`

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) List(ctx context.Context, f Filter) ([]Product, error) {
	tail, args := f.SQL(0)
	query := `SELECT ` + productColumns + ` FROM products` + tail

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed to iterate products: %w", err)
	}

	return products, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

func (r *postgresRepository) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return scanProduct(r.db.QueryRow(ctx, query, slug))
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO products (id, slug, name, description, price, images, model3d_url, sizes, colors,
			category, stock, featured, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.Slug, p.Name, p.Description, p.Price, nonNil(p.Images), p.Model3DURL, sizesArg(p.Sizes),
		nonNil(p.Colors), p.Category, p.Stock, p.Featured, nonNil(p.Tags), now, now,
	)
	if err != nil {
		return mapWriteError(err, "insert")
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET slug = $2, name = $3, description = $4, price = $5, images = $6, model3d_url = $7,
			sizes = $8, colors = $9, category = $10, stock = $11, featured = $12, tags = $13,
			updated_at = $14
		WHERE id = $1
		RETURNING created_at
	`

	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Slug, p.Name, p.Description, p.Price, nonNil(p.Images), p.Model3DURL, sizesArg(p.Sizes),
		nonNil(p.Colors), p.Category, p.Stock, p.Featured, nonNil(p.Tags), now,
	).Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return mapWriteError(err, "update")
	}

	p.UpdatedAt = now
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check product: %w", err)
	}
	return exists, nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p     Product
		sizes []int32
	)
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.Price, &p.Images, &p.Model3DURL, &sizes,
		&p.Colors, &p.Category, &p.Stock, &p.Featured, &p.Tags, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to scan product: %w", err)
	}

	p.Sizes = make([]int, len(sizes))
	for i, s := range sizes {
		p.Sizes[i] = int(s)
	}
	return &p, nil
}

func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrSlugExists
	}
	return fmt.Errorf("repository: failed to %s product: %w", op, err)
}

func sizesArg(sizes []int) []int32 {
	out := make([]int32, len(sizes))
	for i, s := range sizes {
		out[i] = int32(s)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
