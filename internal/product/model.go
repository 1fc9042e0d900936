package product

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/review"
)

type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Slug        string          `json:"slug" db:"slug"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Images      []string        `json:"images" db:"images"`
	Model3DURL  *string         `json:"model3d_url,omitempty" db:"model3d_url"`
	Sizes       []int           `json:"sizes" db:"sizes"`
	Colors      []string        `json:"colors" db:"colors"`
	Category    string          `json:"category" db:"category"`
	Stock       int             `json:"stock" db:"stock"`
	Featured    bool            `json:"featured" db:"featured"`
	Tags        []string        `json:"tags" db:"tags"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	Reviews []review.Review `json:"reviews"`
}

// FirstImage returns the cover image or an empty string.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Input carries the writable fields of a product for create and update.
type Input struct {
	Slug        string
	Name        string
	Description string
	Price       decimal.Decimal
	Images      []string
	Model3DURL  *string
	Sizes       []int
	Colors      []string
	Category    string
	Stock       int
	Featured    bool
	Tags        []string
}

func (in Input) apply(p *Product) {
	p.Slug = in.Slug
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Images = in.Images
	p.Model3DURL = in.Model3DURL
	p.Sizes = in.Sizes
	p.Colors = in.Colors
	p.Category = in.Category
	p.Stock = in.Stock
	p.Featured = in.Featured
	p.Tags = in.Tags
}
