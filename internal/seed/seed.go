// Package seed loads demo users and catalog products from a YAML fixture.
// Running it twice is safe: known emails and slugs are left untouched.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/product"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/user"
	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Users    []UserFixture    `yaml:"users"`
	Products []ProductFixture `yaml:"products"`
}

type UserFixture struct {
	Name     string    `yaml:"name"`
	Email    string    `yaml:"email"`
	Password string    `yaml:"password"`
	Role     user.Role `yaml:"role"`
}

type ProductFixture struct {
	Slug        string   `yaml:"slug"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Price       string   `yaml:"price"`
	Images      []string `yaml:"images"`
	Model3DURL  *string  `yaml:"model3d_url"`
	Sizes       []int    `yaml:"sizes"`
	Colors      []string `yaml:"colors"`
	Category    string   `yaml:"category"`
	Stock       int      `yaml:"stock"`
	Featured    bool     `yaml:"featured"`
	Tags        []string `yaml:"tags"`
}

func (f ProductFixture) input() (product.Input, error) {
	price, err := decimal.NewFromString(f.Price)
	if err != nil {
		return product.Input{}, fmt.Errorf("product %q: invalid price %q: %w", f.Slug, f.Price, err)
	}

	return product.Input{
		Slug:        f.Slug,
		Name:        f.Name,
		Description: f.Description,
		Price:       price,
		Images:      f.Images,
		Model3DURL:  f.Model3DURL,
		Sizes:       f.Sizes,
		Colors:      f.Colors,
		Category:    f.Category,
		Stock:       f.Stock,
		Featured:    f.Featured,
		Tags:        f.Tags,
	}, nil
}

func Load(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

func Parse(r io.Reader) (*Catalog, error) {
	var c Catalog
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return &c, nil
}

// ProductCreator is the part of the product service seeding needs.
type ProductCreator interface {
	CreateProduct(ctx context.Context, in product.Input) (*product.Product, error)
}

type Result struct {
	Users           int
	ProductsCreated int
	ProductsSkipped int
}

// Apply creates the fixture's users and products. Existing product slugs are skipped.
func Apply(ctx context.Context, c *Catalog, users user.Service, products ProductCreator) (Result, error) {
	var res Result

	for _, u := range c.Users {
		if _, err := users.EnsureUser(ctx, u.Name, u.Email, u.Password, u.Role); err != nil {
			return res, fmt.Errorf("seed user %q: %w", u.Email, err)
		}
		res.Users++
	}

	for _, f := range c.Products {
		in, err := f.input()
		if err != nil {
			return res, err
		}

		if _, err := products.CreateProduct(ctx, in); err != nil {
			if errors.Is(err, product.ErrSlugExists) {
				res.ProductsSkipped++
				continue
			}
			return res, fmt.Errorf("seed product %q: %w", f.Slug, err)
		}
		res.ProductsCreated++
	}

	log.Info().
		Int("users", res.Users).
		Int("products_created", res.ProductsCreated).
		Int("products_skipped", res.ProductsSkipped).
		Msg("seed: catalog applied")

	return res, nil
}
