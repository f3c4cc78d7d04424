package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/catalog"
	"github.com/karupanerura/batchloader/sheets"
	"github.com/karupanerura/batchloader/storage/lrustorage"
	"github.com/karupanerura/batchloader/storage/memstorage"
	"github.com/karupanerura/batchloader/storage/redisstorage"
)

type options struct {
	spreadsheet  string
	rng          string
	currency     string
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	batchWait    time.Duration
	ttl          time.Duration
	cache        string
	lruSize      int
	redisAddr    string
	redisPrefix  string
	verbose      bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Query the product catalog through a batching loader",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.spreadsheet, "spreadsheet", os.Getenv("CATALOG_SPREADSHEET"), "spreadsheet id of the product table")
	flags.StringVar(&opts.rng, "range", catalog.DefaultConfig.Range, "range of the product rows")
	flags.StringVar(&opts.currency, "currency", catalog.DefaultConfig.Currency, "currency of the prices")
	flags.StringVar(&opts.clientID, "client-id", os.Getenv("SHEETS_CLIENT_ID"), "OAuth2 client id")
	flags.StringVar(&opts.clientSecret, "client-secret", os.Getenv("SHEETS_CLIENT_SECRET"), "OAuth2 client secret")
	flags.StringVar(&opts.baseURL, "base-url", sheets.DefaultConfig.BaseURL, "root of the values API")
	flags.StringVar(&opts.tokenURL, "token-url", sheets.DefaultConfig.TokenURL, "token endpoint")
	flags.DurationVar(&opts.batchWait, "batch-wait", batchloader.DefaultBatchWait, "how long a batch collects keys")
	flags.DurationVar(&opts.ttl, "ttl", 0, "how long results stay cached, 0 keeps them")
	flags.StringVar(&opts.cache, "cache", "memory", "result cache: memory, lru or redis")
	flags.IntVar(&opts.lruSize, "lru-size", 1024, "maximum number of results kept by the lru cache")
	flags.StringVar(&opts.redisAddr, "redis-addr", "localhost:6379", "address of the redis cache")
	flags.StringVar(&opts.redisPrefix, "redis-prefix", "catalog:", "key prefix of the redis cache")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every batch")

	cmd.AddCommand(newQueryCommand(opts))
	return cmd
}

func newQueryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "query <json-key>...",
		Short: "Load every key concurrently and print one JSON line per key",
		Example: `  catalogctl --spreadsheet ID query '{"search":"Sh","currentPage":0,"pageSize":10}'
  catalogctl --spreadsheet ID query '{"filter":{"sku":{"in":["S1","S2"]}},"currentPage":0,"pageSize":5}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]catalog.LoadKey, len(args))
			for i, arg := range args {
				var raw catalog.RawKey
				if err := json.Unmarshal([]byte(arg), &raw); err != nil {
					return fmt.Errorf("key %d: %w", i, err)
				}
				keys[i] = catalog.ParseKey(raw)
			}

			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
			loader, closeLoader, err := newLoader(opts, logger)
			if err != nil {
				return err
			}
			defer closeLoader()

			results, err := query(cmd.Context(), loader, keys)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results)
		},
	}
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func newLoader(opts *options, logger logrus.FieldLogger) (*catalog.Loader, func(), error) {
	if opts.spreadsheet == "" {
		return nil, nil, fmt.Errorf("--spreadsheet or CATALOG_SPREADSHEET is required")
	}

	sheetsConf, err := sheets.NewConfig(opts.clientID, opts.clientSecret)
	if err != nil {
		return nil, nil, err
	}
	sheetsConf.BaseURL = opts.baseURL
	sheetsConf.TokenURL = opts.tokenURL
	client := sheets.NewClient(sheetsConf)
	tokens := sheets.NewTokenCache(client, sheetsConf.ClientID, sheetsConf.TokenLeeway, batchloader.SystemClock)

	catalogConf, err := catalog.NewConfig(opts.spreadsheet)
	if err != nil {
		return nil, nil, err
	}
	catalogConf.Range = opts.rng
	catalogConf.Currency = opts.currency
	resolver := catalog.NewResolver(tokens, client, catalogConf, catalog.WithResolverLogger(logger))

	storage, closeStorage, err := newStorage(opts)
	if err != nil {
		return nil, nil, err
	}

	loader := batchloader.New(storage, resolver, catalog.CacheKey,
		batchloader.WithBatchWait[catalog.LoadKey, catalog.SearchResult](opts.batchWait),
		batchloader.WithTTL[catalog.LoadKey, catalog.SearchResult](opts.ttl),
		batchloader.WithFailureTTL[catalog.LoadKey, catalog.SearchResult](opts.ttl),
		batchloader.WithLogger[catalog.LoadKey, catalog.SearchResult](logger),
	)
	return loader, closeStorage, nil
}

func newStorage(opts *options) (batchloader.CacheStorage[string, catalog.SearchResult], func(), error) {
	switch opts.cache {
	case "memory":
		return memstorage.New[string, catalog.SearchResult](), func() {}, nil
	case "lru":
		storage, err := lrustorage.New[string, catalog.SearchResult](opts.lruSize)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		storage := redisstorage.New(client, redisstorage.WithPrefix[catalog.SearchResult](opts.redisPrefix))
		return storage, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache %q", opts.cache)
	}
}

// query loads every key on its own goroutine so that all of them join the same batch.
func query(ctx context.Context, loader *catalog.Loader, keys []catalog.LoadKey) ([]*catalog.SearchResult, error) {
	results := make([]*catalog.SearchResult, len(keys))
	eg, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		eg.Go(func() error {
			entry, err := loader.Get(ctx, key)
			if err != nil {
				return err
			}
			if entry != nil {
				results[i] = &entry.Value
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// printResults writes one JSON line per result, null for a key without a result.
func printResults(w io.Writer, results []*catalog.SearchResult) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
