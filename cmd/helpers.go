package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	cfgpkg "github.com/KaramelBytes/tidyseg-cli/internal/config"
	"github.com/KaramelBytes/tidyseg-cli/internal/geocode"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
	"go.uber.org/zap"
)

// readTable loads a CSV/TSV/XLSX file.
func readTable(path, sheetName string, sheetIndex int) (*table.Table, error) {
	t, err := table.ReadFile(path, table.ReadOptions{SheetName: sheetName, SheetIndex: sheetIndex})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// delimitedPath maps spreadsheet inputs to a CSV output next to them.
func delimitedPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
	}
	return path
}

// openStore opens the persistent location cache named by the config.
// The memory backend yields a nil store.
func openStore(ctx context.Context, c *cfgpkg.Global) (geocode.Store, error) {
	return geocode.OpenStore(ctx, geocode.StoreConfig{
		Backend: c.CacheBackend,
		Path:    c.CachePath,
		TTL:     c.CacheTTL(),
		Redis: geocode.RedisConfig{
			Addr:      c.RedisAddr,
			Password:  c.RedisPassword,
			DB:        c.RedisDB,
			KeyPrefix: c.RedisPrefix,
		},
	})
}

// buildResolver wires the HTTP geocoder behind the run cache and the
// configured persistent store. A store that cannot be opened is reported
// and skipped; lookups still work for the run.
func buildResolver(ctx context.Context, c *cfgpkg.Global, logger *zap.Logger, offline bool) (geocode.Resolver, func()) {
	if offline {
		return geocode.Unavailable, func() {}
	}
	store, err := openStore(ctx, c)
	if err != nil {
		logger.Warn("location cache unavailable, continuing without it", zap.Error(err))
		store = nil
	}
	client := geocode.NewClient(geocode.Options{
		BaseURL:          c.GeocodeURL,
		APIKey:           c.GeocodeAPIKey,
		Country:          c.GeocodeCountry,
		MinDelay:         c.GeocodeDelay(),
		Timeout:          time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMaxAttempts: c.RetryMaxAttempts,
		RetryBaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		RetryMaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		Logger:           logger,
	})
	var cache geocode.Cache
	if store != nil {
		cache = store
	}
	resolver := geocode.NewCachingResolver(client, c.GeocodeCountry, cache, logger)
	closer := func() {
		if store != nil {
			if err := store.Close(); err != nil {
				logger.Warn("close location cache", zap.Error(err))
			}
		}
	}
	return resolver, closer
}
