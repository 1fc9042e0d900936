package review

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one customer's rating of a product. A user has at most one review per product.
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	UserName  string    `json:"user_name,omitempty" db:"user_name"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type SubmitInput struct {
	ProductID uuid.UUID
	Rating    int
	Comment   string
}
