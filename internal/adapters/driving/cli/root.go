// Package cli provides the cobra command tree of the overlayc binary.
//
// Commands talk to the core only through driving ports. Services are
// injected by main through SetServices; the compiler and search service
// need network backends, so they are built lazily by a BackendFactory the
// first time a command asks for them.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/overlayc/internal/core/ports/driving"
	"github.com/custodia-labs/overlayc/internal/logger"
)

// version is set by main from build flags.
var version = "dev"

// Injected services.
var (
	entryService    driving.EntryService
	resolver        driving.InheritanceResolver
	settingsService driving.SettingsService
	backendFactory  BackendFactory
	databasePath    string

	backends *Backends
)

// Global flags.
var (
	verbose bool
	actor   string
)

// MetricsWriter exports compile metrics to a file.
type MetricsWriter interface {
	WriteTextfile(path string) error
}

// Backends holds the services that need the embedding provider or the
// vector index.
type Backends struct {
	Compiler driving.Compiler
	Search   driving.SearchService

	// Metrics is optional.
	Metrics MetricsWriter

	// Close releases network clients. Optional.
	Close func()
}

// BackendFactory builds Backends on first use.
type BackendFactory func(ctx context.Context) (*Backends, error)

// Services is everything the command tree needs from main.
type Services struct {
	Entries  driving.EntryService
	Resolver driving.InheritanceResolver
	Settings driving.SettingsService
	Backends BackendFactory

	// DatabasePath is the SQLite file watched by "compile watch".
	DatabasePath string
}

var rootCmd = &cobra.Command{
	Use:   "overlayc",
	Short: "Compile overlay content into a vector index",
	Long: `overlayc manages scoped overlay entries and compiles the active ones
into a Qdrant collection for retrieval.

Entries are edited with the "entry" commands. "compile" diffs the entries
against the index and only embeds what changed.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "name recorded in the audit log")
}

// SetServices injects the services used by commands.
func SetServices(s Services) {
	entryService = s.Entries
	resolver = s.Resolver
	settingsService = s.Settings
	backendFactory = s.Backends
	databasePath = s.DatabasePath
	backends = nil
}

// SetVersion sets the version reported by "overlayc version".
func SetVersion(v string) {
	version = v
}

// Execute runs the root command and releases any backends it built.
func Execute(ctx context.Context) error {
	defer closeBackends()
	return rootCmd.ExecuteContext(ctx)
}

// ensureBackends builds the backends once per process.
func ensureBackends(ctx context.Context) (*Backends, error) {
	if backends != nil {
		return backends, nil
	}
	if backendFactory == nil {
		return nil, errors.New("compile backends not configured")
	}
	b, err := backendFactory(ctx)
	if err != nil {
		return nil, err
	}
	backends = b
	return backends, nil
}

func closeBackends() {
	if backends != nil && backends.Close != nil {
		backends.Close()
	}
	backends = nil
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}
