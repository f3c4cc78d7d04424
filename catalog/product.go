package catalog

import (
	"encoding/json"
	"slices"

	"github.com/shopspring/decimal"
)

// Price is an amount of money in a currency.
type Price struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// MarshalJSON encodes the amount as a JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Currency string      `json:"currency"`
		Amount   json.Number `json:"amount"`
	}{
		Currency: p.Currency,
		Amount:   json.Number(p.Amount.String()),
	})
}

// ProductRecord is one product row.
type ProductRecord struct {
	SKU         string `json:"sku"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       Price  `json:"price"`
	ImageURL    string `json:"image_url"`
	CategoryIDs []int  `json:"categoryIds"`
}

// SearchResult is the answer to a LoadKey. Products hold every match; they are not cut to the page.
type SearchResult struct {
	Total    int             `json:"total"`
	Offset   int             `json:"offset"`
	Limit    int             `json:"limit"`
	Products []ProductRecord `json:"products"`
}

// Clone returns a deep copy of r.
func (r SearchResult) Clone() SearchResult {
	if r.Products == nil {
		return r
	}
	products := make([]ProductRecord, len(r.Products))
	for i, p := range r.Products {
		p.CategoryIDs = slices.Clone(p.CategoryIDs)
		products[i] = p
	}
	r.Products = products
	return r
}
