package catalog_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/catalog"
	"github.com/karupanerura/batchloader/sheets"
)

type staticTable []sheets.Row

func (t staticTable) AcquireToken(context.Context) (sheets.Token, error) {
	return sheets.Token{AccessToken: "static", TokenType: "Bearer", ExpiresAt: batchloader.NeverExpires}, nil
}

func (t staticTable) FetchTable(context.Context, sheets.Token, string, string) ([]sheets.Row, error) {
	return t, nil
}

func ExampleNewLoader() {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	table := staticTable{
		{"S1", "Shirt", "", "19.99", "img1"},
		{"S2", "Shoe", "", "49.99", "img2"},
	}
	conf, _ := catalog.NewConfig("products")
	loader := catalog.NewLoader(
		catalog.NewResolver(table, table, conf, catalog.WithResolverLogger(logger)),
		batchloader.WithLogger[catalog.LoadKey, catalog.SearchResult](logger),
	)

	ctx := context.Background()
	for _, s := range []string{
		`{"filter":{"sku":{"eq":"S2"}},"currentPage":0,"pageSize":10}`,
		`{"filter":{"sku":{"eq":"UNKNOWN"}},"currentPage":0,"pageSize":10}`,
	} {
		var raw catalog.RawKey
		_ = json.Unmarshal([]byte(s), &raw)

		entry, _ := loader.Get(ctx, catalog.ParseKey(raw))
		if entry == nil {
			fmt.Println("null")
			continue
		}
		b, _ := json.Marshal(entry.Value)
		fmt.Println(string(b))
	}
	// Output:
	// {"total":1,"offset":0,"limit":10,"products":[{"sku":"S2","title":"Shoe","description":"Description of Shoe","price":{"currency":"USD","amount":49.99},"image_url":"img2","categoryIds":[1,2]}]}
	// null
}
