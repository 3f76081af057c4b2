package domain

import (
	"errors"
	"time"
)

// ErrProductNotFound is returned by catalog lookups for unknown ids. It
// lives in the domain package so consumers don't have to import a
// concrete repository to match on it.
var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
	SalePrice   *float64
	Stock       int
	ImageURL    string
	CreatedAt   time.Time
}

// EffectivePrice is the unit price a cart line snapshots at add time:
// the sale price when one is set, the regular price otherwise.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}
