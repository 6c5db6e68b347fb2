// Package cache persists imported metadata graphs so that later runs against
// the same environment can skip the metadata queries.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tordrt/dbtranscode/internal/model"
	"github.com/tordrt/dbtranscode/internal/schema"
)

// Config configures a CachingImporter.
type Config struct {
	// Dir holds the cache files. Optional, defaults to DefaultDir().
	Dir string

	// Codec selects the file format. Optional, defaults to XMLCodec.
	Codec Codec

	// TTL is the maximum age of a usable cache file. Negative values never
	// expire. Optional, defaults to TTLFromEnv.
	TTL *time.Duration

	// Logger for cache events. Optional, defaults to slog.Default().
	Logger *slog.Logger

	// Now is the clock used for expiry. Optional, defaults to time.Now.
	Now func() time.Time
}

// CachingImporter wraps an importer and keeps a cache file of its fully
// imported graph per environment.
type CachingImporter struct {
	real        model.Importer
	environment string
	dir         string
	codec       Codec
	ttl         time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// DefaultDir returns the per-user cache directory.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "dbtranscode")
}

// NewCachingImporter wraps real for the given environment name.
func NewCachingImporter(real model.Importer, environment string, cfg Config) *CachingImporter {
	c := &CachingImporter{
		real:        real,
		environment: environment,
		dir:         cfg.Dir,
		codec:       cfg.Codec,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.dir == "" {
		c.dir = DefaultDir()
	}
	if c.codec == nil {
		c.codec = XMLCodec{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if cfg.TTL != nil {
		c.ttl = *cfg.TTL
	} else {
		c.ttl = TTLFromEnv(c.logger)
	}
	return c
}

// CacheFile returns the cache file path of an environment. An existing file
// whose name differs only in case is preferred over the exact name.
func (c *CachingImporter) CacheFile(environment string) string {
	name := environment + c.codec.Extension()
	path := filepath.Join(c.dir, name)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return path
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			return filepath.Join(c.dir, e.Name())
		}
	}
	return path
}

// ImportDatabase reads the cache file if it is younger than the TTL and
// otherwise imports through the wrapped importer and rewrites the file.
// Unreadable cache files are treated like missing ones.
func (c *CachingImporter) ImportDatabase(ctx context.Context) (*model.Database, error) {
	path := c.CacheFile(c.environment)
	if c.isFresh(path) {
		db, err := c.readCacheFile(path)
		if err == nil {
			return db, nil
		}
		c.logger.Info("error reading cache file, re-importing database metadata", "path", path, "error", err)
	}
	return c.importFresh(ctx, path)
}

func (c *CachingImporter) isFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return c.ttl < 0 || c.now().Sub(info.ModTime()) < c.ttl
}

func (c *CachingImporter) readCacheFile(path string) (*model.Database, error) {
	c.logger.Info("importing database metadata from cache file", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	snapshot, err := c.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	db, err := snapshot.ToDatabase(c.real)
	if err != nil {
		return nil, err
	}
	if db.Environment == "" {
		db.Environment = c.environment
	}
	c.logger.Info("database metadata import completed", "tables", len(db.Tables()))
	return db, nil
}

func (c *CachingImporter) importFresh(ctx context.Context, path string) (*model.Database, error) {
	if c.real == nil {
		return nil, fmt.Errorf("no importer for environment %s: %w", c.environment, model.ErrInvalidArgument)
	}
	db, err := c.real.ImportDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to import database: %w", err)
	}
	if db.Environment == "" {
		db.Environment = c.environment
	}
	c.writeCacheFile(ctx, path, db)
	return db, nil
}

// UpdateCacheFile exports db to the cache file of its environment. Write
// failures are logged, not returned; only a nil database is an error.
func (c *CachingImporter) UpdateCacheFile(ctx context.Context, db *model.Database) error {
	if db == nil {
		return fmt.Errorf("database is nil: %w", model.ErrInvalidArgument)
	}
	if db.Environment == "" {
		return nil
	}
	c.writeCacheFile(ctx, c.CacheFile(db.Environment), db)
	return nil
}

func (c *CachingImporter) writeCacheFile(ctx context.Context, path string, db *model.Database) {
	c.logger.Info("exporting database metadata to cache file", "environment", db.Environment, "path", path)
	if err := c.export(ctx, path, db); err != nil {
		c.logger.Error("error writing database metadata cache file", "path", path, "error", err)
		return
	}
	c.logger.Debug("database metadata export completed", "path", path)
}

func (c *CachingImporter) export(ctx context.Context, path string, db *model.Database) error {
	snapshot, err := schema.FromDatabase(ctx, db)
	if err != nil {
		return err
	}
	data, err := c.codec.Encode(snapshot)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// ImportColumns implements model.Importer.
func (c *CachingImporter) ImportColumns(ctx context.Context, table *model.Table, receive model.ColumnReceiver) error {
	return c.real.ImportColumns(ctx, table, receive)
}

// ImportPrimaryKey implements model.Importer.
func (c *CachingImporter) ImportPrimaryKey(ctx context.Context, table *model.Table, receive model.PKReceiver) error {
	return c.real.ImportPrimaryKey(ctx, table, receive)
}

// ImportIndexes implements model.Importer.
func (c *CachingImporter) ImportIndexes(ctx context.Context, table *model.Table, receive model.IndexReceiver) error {
	return c.real.ImportIndexes(ctx, table, receive)
}

// ImportForeignKeys implements model.Importer.
func (c *CachingImporter) ImportForeignKeys(ctx context.Context, table *model.Table, receive model.FKReceiver) error {
	return c.real.ImportForeignKeys(ctx, table, receive)
}

// ImportChecks implements model.Importer.
func (c *CachingImporter) ImportChecks(ctx context.Context, db *model.Database, receive model.CheckReceiver) error {
	return c.real.ImportChecks(ctx, db, receive)
}

// Close closes the wrapped importer if it holds resources.
func (c *CachingImporter) Close() error {
	if closer, ok := c.real.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Remove deletes the cache file of an environment. A missing file is not an error.
func (c *CachingImporter) Remove(environment string) error {
	err := os.Remove(c.CacheFile(environment))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}
