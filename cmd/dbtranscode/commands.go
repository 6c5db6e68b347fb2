package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/tordrt/dbtranscode"
	"github.com/tordrt/dbtranscode/internal/identity"
	"github.com/tordrt/dbtranscode/internal/model"
)

var compare bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the metadata of a database",
	RunE:  runSchema,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage metadata cache files",
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-import the metadata of a database and rewrite its cache file",
	RunE:  runCacheRefresh,
}

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List foreign key paths between two tables",
	RunE:  runPaths,
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Build the natural key map of source and target and print statistics",
	RunE:  runKeys,
}

var transcodeCmd = &cobra.Command{
	Use:   "transcode",
	Short: "Transcode one source row for the target database and print it",
	Long: `transcode reads one row of the source database by primary key, rewrites its
foreign keys to the target keys of the referenced rows and prints the result.
Nothing is written to either database.`,
	RunE: runTranscode,
}

func init() {
	for _, cmd := range []*cobra.Command{schemaCmd, cacheRefreshCmd, pathsCmd} {
		cmd.Flags().StringVar(&dbURL, "db", "", "Database URL (postgres://, mysql://, sqlite://, duckdb://)")
		cmd.Flags().StringVar(&dbID, "id", "", "Database id used for cache files (default: database name)")
	}

	schemaCmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or markdown")
	schemaCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	schemaCmd.Flags().StringVarP(&outDir, "output-dir", "d", "", "Output directory for multi-file output")
	schemaCmd.Flags().StringVarP(&exclude, "exclude", "x", "", "Tables to leave out (comma-separated)")
	schemaCmd.Flags().BoolVar(&debug, "debug", false, "Dump the raw metadata snapshot to stderr")

	cacheCmd.AddCommand(cacheRefreshCmd)

	pathsCmd.Flags().StringVar(&fromName, "from", "", "Start table")
	pathsCmd.Flags().StringVar(&toName, "to", "", "End table")
	pathsCmd.Flags().IntVar(&maxEdges, "max-edges", 4, "Maximum number of foreign keys per path")

	for _, cmd := range []*cobra.Command{keysCmd, transcodeCmd} {
		cmd.Flags().StringVar(&sourceURL, "source", "", "Source database URL")
		cmd.Flags().StringVar(&targetURL, "target", "", "Target database URL")
		cmd.Flags().StringVarP(&identityFile, "identities", "i", "", "Identity definitions (YAML)")
	}
	keysCmd.Flags().BoolVar(&compare, "compare", false, "Compare the columns of rows found in both databases")

	transcodeCmd.Flags().StringVarP(&tableName, "table", "t", "", "Table of the row")
	transcodeCmd.Flags().StringVar(&primaryKey, "pk", "", "Primary key of the source row (comma-separated for composite keys)")
	transcodeCmd.Flags().StringVar(&newPrimaryKey, "new-pk", "", "Primary key for the target row (default: the target key of the same natural key)")
}

func runSchema(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if outDir != "" && output != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}

	e, err := openEndpoint(ctx, dbID, dbURL)
	if err != nil {
		return err
	}
	defer closeEndpoint(e)

	snapshot, err := e.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to import metadata: %w", err)
	}
	if debug {
		spew.Fdump(os.Stderr, snapshot)
	}

	opts := &dbtranscode.OutputOptions{
		Writer:        cmd.OutOrStdout(),
		OutputDir:     outDir,
		Format:        format,
		ExcludeTables: parseTableList(exclude),
	}
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to close output file: %v\n", err)
			}
		}()
		opts.Writer = f
	}

	if err := dbtranscode.FormatDatabase(ctx, e.Database, opts); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func runCacheRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	e, err := openEndpoint(ctx, dbID, dbURL)
	if err != nil {
		return err
	}
	defer closeEndpoint(e)

	if err := e.RefreshCache(ctx); err != nil {
		return fmt.Errorf("failed to refresh cache: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tables cached in %s (%s)\n",
		e.ID, len(e.Database.Tables()), e.CacheFile(), elapsed(start))
	return nil
}

func runPaths(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if fromName == "" || toName == "" {
		return fmt.Errorf("--from and --to are required")
	}

	e, err := openEndpoint(ctx, dbID, dbURL)
	if err != nil {
		return err
	}
	defer closeEndpoint(e)

	from, err := e.Table(fromName)
	if err != nil {
		return err
	}
	to, err := e.Table(toName)
	if err != nil {
		return err
	}
	paths, err := model.FindForeignKeyPaths(ctx, from, to, maxEdges)
	if err != nil {
		return fmt.Errorf("failed to find paths: %w", err)
	}
	if len(paths) == 0 {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no path from %s to %s within %d edges\n", from.Name(), to.Name(), maxEdges)
		return nil
	}
	for _, p := range paths {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), p.String())
	}
	return nil
}

// mapping holds what keys and transcode share.
type mapping struct {
	source   *dbtranscode.Endpoint
	target   *dbtranscode.Endpoint
	provider *identity.Provider
	mapper   *identity.MemKeyMapper
}

func (m *mapping) close() {
	if m.source != nil {
		closeEndpoint(m.source)
	}
	if m.target != nil {
		closeEndpoint(m.target)
	}
}

func buildMapping(cmd *cobra.Command) (*mapping, error) {
	ctx := cmd.Context()
	if identityFile == "" {
		return nil, fmt.Errorf("--identities is required")
	}
	cfg, err := identity.LoadConfig(identityFile)
	if err != nil {
		return nil, err
	}

	m := &mapping{}
	if m.provider, err = cfg.Provider(nil); err != nil {
		return nil, err
	}
	if m.source, err = openEndpoint(ctx, "", sourceURL); err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	if targetURL != "" {
		if m.target, err = openEndpoint(ctx, "", targetURL); err != nil {
			m.close()
			return nil, fmt.Errorf("failed to open target: %w", err)
		}
		if m.target.ID == m.source.ID {
			m.target.ID += "-target"
		}
	}
	if m.mapper, err = dbtranscode.BuildKeyMapper(ctx, m.source, m.target, m.provider); err != nil {
		m.close()
		return nil, err
	}
	return m, nil
}

func runKeys(cmd *cobra.Command, args []string) error {
	start := time.Now()
	m, err := buildMapping(cmd)
	if err != nil {
		return err
	}
	defer m.close()

	if compare {
		if m.target == nil {
			return fmt.Errorf("--compare requires --target")
		}
		if err := m.mapper.CompareRows(cmd.Context(), m.source.Dialect, m.target.Dialect); err != nil {
			return fmt.Errorf("failed to compare rows: %w", err)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TABLE\tSOURCE\tTARGET\tMISSING")
	for _, s := range m.mapper.Stats() {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.Table, s.SourceKeys, s.TargetKeys, s.Missing)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	handler := m.provider.ErrorHandler()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s reported %d errors (%s)\n", handler.Name(), handler.Count(), elapsed(start))
	return nil
}

func runTranscode(cmd *cobra.Command, args []string) error {
	if tableName == "" || primaryKey == "" {
		return fmt.Errorf("--table and --pk are required")
	}
	m, err := buildMapping(cmd)
	if err != nil {
		return err
	}
	defer m.close()

	row, err := dbtranscode.TranscodeRow(cmd.Context(), m.source, m.mapper, m.provider,
		tableName, parseKey(primaryKey), parseKey(newPrimaryKey))
	if err != nil {
		return fmt.Errorf("failed to transcode: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), row.String())
	if n := m.provider.ErrorHandler().Count(); n > 0 {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d errors reported, see log\n", n)
	}
	return nil
}
