package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/auth"
)

var (
	ErrInvalidReview = errors.New("invalid review")
	ErrForbidden     = errors.New("not allowed to modify this review")
)

type ProductChecker interface {
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service interface {
	// Submit creates the caller's review of a product or overwrites the previous one.
	Submit(ctx context.Context, userID uuid.UUID, in SubmitInput) (*Review, bool, error)
	ListByProduct(ctx context.Context, productID *uuid.UUID) ([]Review, error)
	Delete(ctx context.Context, requester auth.Identity, id uuid.UUID) error
}

type service struct {
	repo     Repository
	products ProductChecker
}

func NewService(repo Repository, products ProductChecker) Service {
	return &service{repo: repo, products: products}
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, in SubmitInput) (*Review, bool, error) {
	comment := strings.TrimSpace(in.Comment)
	switch {
	case in.ProductID == uuid.Nil:
		return nil, false, fmt.Errorf("%w: product id is required", ErrInvalidReview)
	case in.Rating < MinRating || in.Rating > MaxRating:
		return nil, false, fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidReview, MinRating, MaxRating)
	case comment == "":
		return nil, false, fmt.Errorf("%w: comment is required", ErrInvalidReview)
	}

	exists, err := s.products.ProductExists(ctx, in.ProductID)
	if err != nil {
		log.Error().Err(err).Stringer("product_id", in.ProductID).Msg("service: failed to check product for review")
		return nil, false, fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return nil, false, ErrProductNotFound
	}

	rv := &Review{
		ProductID: in.ProductID,
		UserID:    userID,
		Rating:    in.Rating,
		Comment:   comment,
	}

	created, err := s.repo.Upsert(ctx, rv)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, false, ErrProductNotFound
		}
		log.Error().Err(err).Msg("service: failed to upsert review in repository")
		return nil, false, fmt.Errorf("failed to save review: %w", err)
	}

	log.Info().
		Stringer("review_id", rv.ID).
		Stringer("product_id", rv.ProductID).
		Bool("created", created).
		Msg("service: review submitted")

	return rv, created, nil
}

func (s *service) ListByProduct(ctx context.Context, productID *uuid.UUID) ([]Review, error) {
	reviews, err := s.repo.List(ctx, productID)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list reviews in repository")
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *service) Delete(ctx context.Context, requester auth.Identity, id uuid.UUID) error {
	rv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("failed to get review: %w", err)
	}

	if rv.UserID != requester.UserID && !requester.IsAdmin() {
		log.Warn().Stringer("review_id", id).Stringer("user_id", requester.UserID).Msg("service: review delete forbidden")
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		log.Error().Err(err).Stringer("review_id", id).Msg("service: failed to delete review in repository")
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return nil
}
