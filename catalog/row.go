package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/karupanerura/batchloader/sheets"
)

// column offsets of a product row
const (
	colID    = 0
	colTitle = 1
	colPrice = 3
	colImage = 4
)

// placeholderCategoryIDs is given to every product; the table has no category column.
var placeholderCategoryIDs = []int{1, 2}

func rowID(row sheets.Row) string {
	return row.Cell(colID)
}

func rowTitle(row sheets.Row) string {
	return row.Cell(colTitle)
}

// toRecord maps a row to a product priced in currency.
func toRecord(row sheets.Row, currency string) (ProductRecord, error) {
	amount, err := decimal.NewFromString(row.Cell(colPrice))
	if err != nil {
		return ProductRecord{}, fmt.Errorf("%w: price of %q: %w", ErrMalformedRow, rowID(row), err)
	}
	title := rowTitle(row)
	return ProductRecord{
		SKU:         rowID(row),
		Title:       title,
		Description: "Description of " + title,
		Price:       Price{Currency: currency, Amount: amount},
		ImageURL:    row.Cell(colImage),
		CategoryIDs: append([]int(nil), placeholderCategoryIDs...),
	}, nil
}
