package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/logger"
)

var (
	compileDryRun      bool
	compileBatchSize   int
	compileConcurrency int
	compileJSON        bool
	compileMetricsFile string
	watchDebounce      time.Duration
)

// errCompileIncomplete is returned when a compile finished but skipped work.
var errCompileIncomplete = errors.New("compile finished with errors")

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Sync the vector index with the active entries",
	Long: `Diffs every active entry against the index and applies only what changed:
new and content-changed entries are chunked and embedded, metadata-only
changes rewrite payloads, and entries no longer active are soft deleted.

The build version is bumped after every non-dry-run compile.`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

var compileEntriesCmd = &cobra.Command{
	Use:   "entries <id>...",
	Short: "Force re-embedding of specific entries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCompileEntries,
}

var compileStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Preview the next compile",
	Args:  cobra.NoArgs,
	RunE:  runCompileStatus,
}

var compileWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Compile whenever the entry database changes",
	Long: `Runs a compile, then watches the entry database and compiles again once
writes have been quiet for the debounce interval. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runCompileWatch,
}

func init() {
	flags := compileCmd.PersistentFlags()
	flags.BoolVar(&compileDryRun, "dry-run", false, "report planned operations without writing")
	flags.IntVar(&compileBatchSize, "batch-size", 0, "entries per embedding batch (default from config)")
	flags.IntVar(&compileConcurrency, "concurrency", 0, "embedding batches in flight (default from config)")
	flags.BoolVar(&compileJSON, "json", false, "output the result as JSON")
	flags.StringVar(&compileMetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	compileWatchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before compiling")

	compileCmd.AddCommand(compileEntriesCmd)
	compileCmd.AddCommand(compileStatusCmd)
	compileCmd.AddCommand(compileWatchCmd)
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, _ []string) error {
	b, err := ensureBackends(cmd.Context())
	if err != nil {
		return err
	}

	result, err := b.Compiler.Compile(cmd.Context(), compileOptions())
	return finishCompile(cmd, b, result, err)
}

func runCompileEntries(cmd *cobra.Command, args []string) error {
	b, err := ensureBackends(cmd.Context())
	if err != nil {
		return err
	}

	result, err := b.Compiler.CompileEntries(cmd.Context(), args, compileOptions())
	return finishCompile(cmd, b, result, err)
}

func runCompileStatus(cmd *cobra.Command, _ []string) error {
	b, err := ensureBackends(cmd.Context())
	if err != nil {
		return err
	}

	status, err := b.Compiler.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("compile status: %w", err)
	}

	if compileJSON {
		changes := make(map[string]int)
		for _, c := range domain.ChangeTypes() {
			changes[c.String()] = status.Summary.Count(c)
		}
		return printJSON(cmd, struct {
			*domain.CompileStatus
			Changes map[string]int `json:"changes"`
		}{status, changes})
	}

	cmd.Printf("Build version:   %s\n", status.Version)
	cmd.Printf("Active entries:  %d\n", status.OverlayCount)
	cmd.Printf("Indexed entries: %d\n", status.IndexCount)
	cmd.Printf("Pending changes: %d\n", status.PendingChanges)
	for _, c := range domain.ChangeTypes() {
		cmd.Printf("  %-16s %d\n", c.String()+":", status.Summary.Count(c))
	}
	return nil
}

func runCompileWatch(cmd *cobra.Command, _ []string) error {
	if databasePath == "" {
		return errors.New("database path not configured")
	}
	b, err := ensureBackends(cmd.Context())
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// SQLite replaces and appends to sidecar files, so watch the directory.
	dir := filepath.Dir(databasePath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	cmd.Printf("Watching %s (debounce %s)\n", databasePath, watchDebounce)

	compileOnce := func(ctx context.Context) {
		result, err := b.Compiler.Compile(ctx, compileOptions())
		if err := finishCompile(cmd, b, result, err); err != nil {
			logger.Warn("%v", err)
			cmd.PrintErrf("Error: %v\n", err)
		}
	}

	compileOnce(cmd.Context())
	return watchLoop(cmd.Context(), watcher.Events, watcher.Errors, filepath.Base(databasePath), watchDebounce, compileOnce)
}

// watchLoop calls compile once writes to the database file have been quiet
// for debounce. It returns when ctx is done or the watcher closes.
func watchLoop(
	ctx context.Context,
	events <-chan fsnotify.Event,
	errs <-chan error,
	dbFile string,
	debounce time.Duration,
	compile func(context.Context),
) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if isDatabaseEvent(ev, dbFile) {
				logger.Debug("watch: %s %s", ev.Op, ev.Name)
				timer.Reset(debounce)
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		case <-timer.C:
			compile(ctx)
		}
	}
}

// isDatabaseEvent reports whether ev touched the database or one of its
// journal files.
func isDatabaseEvent(ev fsnotify.Event, dbFile string) bool {
	if !strings.HasPrefix(filepath.Base(ev.Name), dbFile) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// compileOptions starts from the configured defaults and applies flags.
func compileOptions() domain.CompileOptions {
	opts := domain.DefaultAppSettings().Compile
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			opts = s.Compile
		}
	}
	if compileBatchSize > 0 {
		opts.BatchSize = compileBatchSize
	}
	if compileConcurrency > 0 {
		opts.Concurrency = compileConcurrency
	}
	opts.DryRun = compileDryRun
	opts.Verbose = verbose
	return opts.Normalised()
}

// finishCompile prints the result, exports metrics and turns recorded
// errors into a failing exit status.
func finishCompile(cmd *cobra.Command, b *Backends, result *domain.CompilationResult, err error) error {
	if compileMetricsFile != "" && b.Metrics != nil {
		if werr := b.Metrics.WriteTextfile(compileMetricsFile); werr != nil {
			logger.Warn("%v", werr)
		}
	}
	if result != nil {
		if perr := printCompileResult(cmd, result); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}
	if result != nil && result.HasErrors() {
		return fmt.Errorf("%w: %d error(s)", errCompileIncomplete, len(result.Errors))
	}
	return nil
}

func printCompileResult(cmd *cobra.Command, r *domain.CompilationResult) error {
	if compileJSON {
		return printJSON(cmd, r)
	}

	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	ver := r.VersionBefore
	if r.VersionAfter != "" && r.VersionAfter != r.VersionBefore {
		ver = r.VersionBefore + " -> " + r.VersionAfter
	}
	cmd.Printf("Compile%s: version %s in %s\n", mode, ver, r.Duration.Round(time.Millisecond))
	cmd.Printf("  processed:          %d\n", r.Processed)
	cmd.Printf("  new:                %d\n", r.NewEntries)
	cmd.Printf("  re-embedded:        %d\n", r.ReEmbedded)
	cmd.Printf("  metadata updated:   %d\n", r.UpdatedMetadata)
	cmd.Printf("  soft deleted:       %d\n", r.SoftDeleted)
	cmd.Printf("  unchanged:          %d\n", r.Unchanged)
	if r.EmbeddingFailures > 0 {
		cmd.Printf("  embedding failures: %d\n", r.EmbeddingFailures)
	}

	if len(r.Operations) > 0 {
		cmd.Println()
		cmd.Println("Operations:")
		for _, op := range r.Operations {
			cmd.Printf("  %-15s %s (%s", op.Kind, op.OverlayID, op.Change)
			if op.Points > 0 {
				cmd.Printf(", %d points", op.Points)
			}
			cmd.Println(")")
		}
	}

	if len(r.Errors) > 0 {
		cmd.Println()
		cmd.Println("Errors:")
		for _, e := range r.Errors {
			cmd.Printf("  - %s\n", e)
		}
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
