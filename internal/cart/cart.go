package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// ProductSnapshot is the part of a catalog product a cart line keeps.
type ProductSnapshot struct {
	ID    uuid.UUID       `json:"id"`
	Slug  string          `json:"slug"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

type Line struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
	Size     int             `json:"size"`
	Color    string          `json:"color"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) matches(productID uuid.UUID, size int, color string) bool {
	return l.Product.ID == productID && l.Size == size && l.Color == color
}

// Store is one session's cart. Every mutation is written through the persister.
// A Store is not safe for concurrent use.
type Store struct {
	lines     []Line
	persister Persister
}

// Open loads the cart once. A corrupt saved payload yields an empty cart; any other
// load failure is returned so the stored cart is never overwritten.
func Open(ctx context.Context, p Persister) (*Store, error) {
	lines, err := p.Load(ctx)
	if errors.Is(err, ErrCorruptCart) {
		log.Warn().Err(err).Msg("cart: saved cart is corrupt, starting empty")
		lines = nil
	} else if err != nil {
		return nil, fmt.Errorf("cart: failed to load: %w", err)
	}

	return &Store{lines: lines, persister: p}, nil
}

// AddItem merges quantity into the line with the same product, size and color, or appends a new line.
func (s *Store) AddItem(ctx context.Context, product ProductSnapshot, quantity, size int, color string) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	for i := range s.lines {
		if s.lines[i].matches(product.ID, size, color) {
			s.lines[i].Quantity += quantity
			return s.save(ctx)
		}
	}

	s.lines = append(s.lines, Line{Product: product, Quantity: quantity, Size: size, Color: color})
	return s.save(ctx)
}

// RemoveItem drops the matching line. Removing an absent line is not an error.
func (s *Store) RemoveItem(ctx context.Context, productID uuid.UUID, size int, color string) error {
	kept := s.lines[:0]
	for _, l := range s.lines {
		if !l.matches(productID, size, color) {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	return s.save(ctx)
}

// UpdateQuantity sets the line's quantity exactly; quantity <= 0 removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID uuid.UUID, size int, color string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID, size, color)
	}

	for i := range s.lines {
		if s.lines[i].matches(productID, size, color) {
			s.lines[i].Quantity = quantity
			break
		}
	}
	return s.save(ctx)
}

func (s *Store) Clear(ctx context.Context) error {
	s.lines = nil
	return s.save(ctx)
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (s *Store) ItemCount() int {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

func (s *Store) IsEmpty() bool {
	return len(s.lines) == 0
}

func (s *Store) save(ctx context.Context) error {
	if err := s.persister.Save(ctx, s.Lines()); err != nil {
		return fmt.Errorf("cart: failed to save: %w", err)
	}
	return nil
}
