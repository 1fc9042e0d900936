package review

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
	ErrReviewNotFound  = errors.New("review not found")
	ErrProductNotFound = errors.New("product not found")
)

type Repository interface {
	// Upsert inserts the review or replaces rating and comment of the user's existing review
	// for the same product. created reports which of the two happened.
	Upsert(ctx context.Context, r *Review) (created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	List(ctx context.Context, productID *uuid.UUID) ([]Review, error)
	ListByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const reviewSelect = `
	SELECT r.id, r.product_id, r.user_id, u.name, r.rating, r.comment, r.created_at, r.updated_at
	FROM reviews r
	JOIN users u ON u.id = r.user_id
`

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Upsert(ctx context.Context, rv *Review) (bool, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return false, fmt.Errorf("repository: failed to generate review ID: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (product_id, user_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err = r.db.QueryRow(ctx, query, id, rv.ProductID, rv.UserID, rv.Rating, rv.Comment, now).
		Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt, &inserted)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return false, ErrProductNotFound
		}
		return false, fmt.Errorf("repository: failed to upsert review: %w", err)
	}

	return inserted, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	rv, err := scanReview(r.db.QueryRow(ctx, reviewSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return rv, nil
}

func (r *postgresRepository) List(ctx context.Context, productID *uuid.UUID) ([]Review, error) {
	query := reviewSelect
	var args []any
	if productID != nil {
		query += ` WHERE r.product_id = $1`
		args = append(args, *productID)
	}
	query += ` ORDER BY r.created_at DESC, r.id`

	return r.queryReviews(ctx, query, args...)
}

func (r *postgresRepository) ListByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]Review, error) {
	out := make(map[uuid.UUID][]Review, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	reviews, err := r.queryReviews(ctx, reviewSelect+` WHERE r.product_id = ANY($1) ORDER BY r.created_at DESC, r.id`, productIDs)
	if err != nil {
		return nil, err
	}
	for _, rv := range reviews {
		out[rv.ProductID] = append(out[rv.ProductID], rv)
	}
	return out, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (r *postgresRepository) queryReviews(ctx context.Context, query string, args ...any) ([]Review, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("repository: failed to scan review: %w", err)
	}
	return &rv, nil
}
