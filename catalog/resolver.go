package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/internal/iterutil"
	"github.com/karupanerura/batchloader/sheets"
)

// TokenSource issues access tokens for the table backend.
type TokenSource interface {
	AcquireToken(ctx context.Context) (sheets.Token, error)
}

// TableFetcher fetches a whole range of a table.
type TableFetcher interface {
	FetchTable(ctx context.Context, token sheets.Token, tableID, rng string) ([]sheets.Row, error)
}

// tokenInvalidator is implemented by token sources that cache tokens.
type tokenInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Resolver resolves batches of LoadKeys with one table fetch per batch.
type Resolver struct {
	tokens TokenSource
	tables TableFetcher
	conf   Config
	logger logrus.FieldLogger
}

var _ batchloader.BatchResolver[LoadKey, SearchResult] = (*Resolver)(nil)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger. The default is logrus.StandardLogger().
func WithResolverLogger(logger logrus.FieldLogger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver reading conf.Range of conf.Spreadsheet.
func NewResolver(tokens TokenSource, tables TableFetcher, conf Config, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		tokens: tokens,
		tables: tables,
		conf:   conf,
		logger: logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve fetches the table once and answers every key from it.
// It never returns an error: a backend failure fails every key with ErrBackendUnavailable.
func (r *Resolver) Resolve(ctx context.Context, keys []LoadKey) ([]batchloader.Outcome[SearchResult], error) {
	outcomes := make([]batchloader.Outcome[SearchResult], len(keys))

	rows, err := r.fetch(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		r.logger.WithFields(logrus.Fields{"keys": len(keys), "error": err}).Error("unable to fetch the product table")
		for i := range outcomes {
			outcomes[i] = batchloader.Fail[SearchResult](err)
		}
		return outcomes, nil
	}

	for i, key := range keys {
		outcomes[i] = r.resolveKey(rows, key)
	}
	return outcomes, nil
}

// fetch reads the table. A rejected token is dropped from the token cache and retried once.
func (r *Resolver) fetch(ctx context.Context) ([]sheets.Row, error) {
	token, err := r.tokens.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.tables.FetchTable(ctx, token, r.conf.Spreadsheet, r.conf.Range)
	if err == nil || !sheets.IsUnauthorized(err) {
		return rows, err
	}

	invalidator, ok := r.tokens.(tokenInvalidator)
	if !ok {
		return nil, err
	}
	r.logger.WithField("error", err).Info("token rejected, acquiring a new one")
	if err := invalidator.Invalidate(ctx); err != nil {
		return nil, err
	}
	if token, err = r.tokens.AcquireToken(ctx); err != nil {
		return nil, err
	}
	return r.tables.FetchTable(ctx, token, r.conf.Spreadsheet, r.conf.Range)
}

func (r *Resolver) resolveKey(rows []sheets.Row, key LoadKey) batchloader.Outcome[SearchResult] {
	if err := key.Validate(); err != nil {
		return batchloader.Fail[SearchResult](err)
	}

	var matched []sheets.Row
	switch q := key.Query.(type) {
	case Search:
		matched = slices.Collect(iterutil.Filter(slices.Values(rows), func(row sheets.Row) bool {
			return strings.Contains(rowTitle(row), q.Term)
		}))

	case ExactMatch:
		i := slices.IndexFunc(rows, func(row sheets.Row) bool {
			return rowID(row) == q.Value
		})
		if i < 0 {
			return batchloader.Fail[SearchResult](&NotFoundError{Field: q.Field, Value: q.Value})
		}
		matched = rows[i : i+1]

	case MembershipMatch:
		ids := map[string]struct{}{}
		for id := range iterutil.Uniq(slices.Values(q.Values)) {
			ids[id] = struct{}{}
		}
		matched = slices.Collect(iterutil.Filter(slices.Values(rows), func(row sheets.Row) bool {
			_, ok := ids[rowID(row)]
			return ok
		}))

	default:
		return batchloader.Fail[SearchResult](fmt.Errorf("%w: no search or filter", ErrMalformedKey))
	}

	products := make([]ProductRecord, 0, len(matched))
	for _, row := range matched {
		record, err := toRecord(row, r.conf.Currency)
		if err != nil {
			return batchloader.Fail[SearchResult](err)
		}
		products = append(products, record)
	}
	return batchloader.Succeed(SearchResult{
		Total:    len(products),
		Offset:   key.CurrentPage * key.PageSize,
		Limit:    key.PageSize,
		Products: products,
	})
}
