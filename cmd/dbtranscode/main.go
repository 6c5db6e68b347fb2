package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tordrt/dbtranscode"
	"github.com/tordrt/dbtranscode/internal/cache"
)

var (
	logLevel    string
	cacheDir    string
	cacheTTL    string
	cacheFormat string
	noCache     bool
	schemaName  string

	dbURL    string
	dbID     string
	format   string
	output   string
	outDir   string
	exclude  string
	debug    bool
	fromName string
	toName   string
	maxEdges int

	sourceURL     string
	targetURL     string
	identityFile  string
	tableName     string
	primaryKey    string
	newPrimaryKey string
)

var rootCmd = &cobra.Command{
	Use:   "dbtranscode",
	Short: "Map and transcode rows between databases by natural key",
	Long: `dbtranscode reads the metadata of PostgreSQL, MySQL, SQLite or DuckDB databases,
resolves rows to natural keys through identity definitions, and rewrites the
primary and foreign keys of source rows to the keys of the target database.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.StringVar(&cacheDir, "cache-dir", "", "Metadata cache directory (default: user cache dir)")
	pf.StringVar(&cacheTTL, "cache-ttl", "", "Metadata cache time-to-live in milliseconds, or days with a d suffix (default: $"+cache.TTLEnvVar+" or 12h)")
	pf.StringVar(&cacheFormat, "cache-format", "xml", "Metadata cache format: xml or msgpack")
	pf.BoolVar(&noCache, "no-cache", false, "Import metadata without the cache")
	pf.StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL, main for DuckDB)")

	rootCmd.AddCommand(schemaCmd, cacheCmd, pathsCmd, keysCmd, transcodeCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level: %s", logLevel)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// openOptions builds the endpoint options from the persistent flags.
func openOptions() (*dbtranscode.Options, error) {
	opts := &dbtranscode.Options{
		SchemaName:  schemaName,
		CacheDir:    cacheDir,
		CacheFormat: cacheFormat,
		NoCache:     noCache,
		Logger:      slog.Default(),
	}
	if cacheTTL != "" {
		ttl, err := cache.ParseTTL(cacheTTL)
		if err != nil {
			return nil, err
		}
		opts.CacheTTL = &ttl
	}
	return opts, nil
}

// openEndpoint opens url under id, defaulting id to the URL's database name.
func openEndpoint(ctx context.Context, id, url string) (*dbtranscode.Endpoint, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	opts, err := openOptions()
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = defaultID(url)
	}
	return dbtranscode.Open(ctx, id, url, opts)
}

func closeEndpoint(e *dbtranscode.Endpoint) {
	if err := e.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to close %s connection: %v\n", e.ID, err)
	}
}

// defaultID derives an endpoint id from the last path element of a URL.
func defaultID(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		url = url[i+3:]
	}
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndexAny(url, "/\\"); i >= 0 {
		url = url[i+1:]
	}
	if i := strings.LastIndexByte(url, '.'); i > 0 {
		url = url[:i]
	}
	if url == "" {
		return "default"
	}
	return url
}

// parseTableList splits a comma-separated table list.
func parseTableList(tablesStr string) []string {
	if tablesStr == "" {
		return nil
	}
	tableList := strings.Split(tablesStr, ",")
	for i, t := range tableList {
		tableList[i] = strings.TrimSpace(t)
	}
	return tableList
}

// parseKey turns "1" into an integer key, "DE" into a string key and
// "a,b" into a composite key.
func parseKey(s string) any {
	if s == "" {
		return nil
	}
	parts := parseTableList(s)
	if len(parts) == 1 {
		return parseKeyValue(parts[0])
	}
	values := make([]any, len(parts))
	for i, p := range parts {
		values[i] = parseKeyValue(p)
	}
	return values
}

func parseKeyValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
