package product

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/review"
)

var ErrInvalidProduct = errors.New("invalid product")

// ReviewReader loads the reviews embedded in catalog reads.
type ReviewReader interface {
	ListByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]review.Review, error)
}

type Service interface {
	ListProducts(ctx context.Context, f Filter) ([]Product, error)
	// GetProduct accepts either a product id or its slug.
	GetProduct(ctx context.Context, idOrSlug string) (*Product, error)
	CreateProduct(ctx context.Context, in Input) (*Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in Input) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo    Repository
	reviews ReviewReader
}

func NewService(repo Repository, reviews ReviewReader) Service {
	return &service{repo: repo, reviews: reviews}
}

func (s *service) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	products, err := s.repo.List(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products in repository")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if err := s.attachReviews(ctx, products); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *service) GetProduct(ctx context.Context, idOrSlug string) (*Product, error) {
	var (
		p   *Product
		err error
	)
	if id, parseErr := uuid.FromString(idOrSlug); parseErr == nil {
		p, err = s.repo.GetByID(ctx, id)
		// A slug may itself look like a UUID.
		if errors.Is(err, ErrProductNotFound) {
			p, err = s.repo.GetBySlug(ctx, idOrSlug)
		}
	} else {
		p, err = s.repo.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Str("product", idOrSlug).Msg("service: failed to get product in repository")
		return nil, fmt.Errorf("failed to get product '%s': %w", idOrSlug, err)
	}

	single := []Product{*p}
	if err := s.attachReviews(ctx, single); err != nil {
		return nil, err
	}

	return &single[0], nil
}

func (s *service) CreateProduct(ctx context.Context, in Input) (*Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	p := &Product{}
	in.apply(p)

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrSlugExists) {
			return nil, ErrSlugExists
		}
		log.Error().Err(err).Msg("service: failed to create product in repository")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	p.Reviews = []review.Review{}
	log.Info().Stringer("product_id", p.ID).Str("slug", p.Slug).Msg("service: product created")
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, in Input) (*Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	p := &Product{ID: id}
	in.apply(p)

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrSlugExists) {
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update product in repository")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	single := []Product{*p}
	if err := s.attachReviews(ctx, single); err != nil {
		return nil, err
	}

	return &single[0], nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product in repository")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	log.Info().Stringer("product_id", id).Msg("service: product deleted")
	return nil
}

func (s *service) attachReviews(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	byProduct, err := s.reviews.ListByProducts(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to load product reviews")
		return fmt.Errorf("failed to load reviews: %w", err)
	}

	for i := range products {
		products[i].Reviews = byProduct[products[i].ID]
		if products[i].Reviews == nil {
			products[i].Reviews = []review.Review{}
		}
	}
	return nil
}

func validateInput(in Input) error {
	switch {
	case in.Slug == "" || in.Name == "":
		return fmt.Errorf("%w: slug and name are required", ErrInvalidProduct)
	case in.Price.IsNegative():
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidProduct)
	case !in.Price.Equal(in.Price.Round(2)):
		return fmt.Errorf("%w: price cannot have more than two decimal places", ErrInvalidProduct)
	case in.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	case len(in.Images) == 0:
		return fmt.Errorf("%w: at least one image is required", ErrInvalidProduct)
	}
	for _, size := range in.Sizes {
		if size <= 0 || size > math.MaxInt32 {
			return fmt.Errorf("%w: sizes must be positive 32-bit integers", ErrInvalidProduct)
		}
	}
	for _, color := range in.Colors {
		if color == "" {
			return fmt.Errorf("%w: colors cannot be empty", ErrInvalidProduct)
		}
	}
	return nil
}
