// Command overlayc manages overlay entries and compiles them into a vector
// index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/overlayc/internal/adapters/driven/ai"
	"github.com/custodia-labs/overlayc/internal/adapters/driven/config/file"
	"github.com/custodia-labs/overlayc/internal/adapters/driven/metrics"
	"github.com/custodia-labs/overlayc/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/overlayc/internal/adapters/driving/cli"
	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/services"
	"github.com/custodia-labs/overlayc/internal/logger"
	"github.com/custodia-labs/overlayc/internal/postprocessors"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	closeStore, err := wire()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeStore()

	cli.SetVersion(version)
	if err := cli.Execute(ctx); err != nil {
		// cobra has already printed the error.
		return 1
	}
	return 0
}

// wire builds the service graph and hands it to the CLI.
func wire() (func(), error) {
	home, err := file.HomeDir()
	if err != nil {
		return nil, err
	}
	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("resolving settings: %w", err)
	}

	dataDir := settings.Storage.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(home, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening entry store: %w", err)
	}

	entryService := services.NewEntryService(store)
	versions := file.NewVersionStore(configStore)

	cli.SetServices(cli.Services{
		Entries:      entryService,
		Resolver:     services.NewInheritanceResolver(entryService),
		Settings:     settingsService,
		Backends:     backendFactory(*settings, entryService, versions),
		DatabasePath: store.Path(),
	})
	return func() { _ = store.Close() }, nil
}

// backendFactory connects to the embedding provider and Qdrant only when a
// command needs them.
func backendFactory(
	settings domain.AppSettings, entries *services.EntryService, versions *file.VersionStore,
) cli.BackendFactory {
	return func(ctx context.Context) (*cli.Backends, error) {
		chunker, err := postprocessors.NewRegistry().Build(settings.Chunker.Strategy, settings.Chunker.Config())
		if err != nil {
			return nil, fmt.Errorf("building chunker: %w", err)
		}

		backends, err := ai.Init(ctx, settings, false)
		if err != nil {
			return nil, err
		}

		observer := metrics.NewObserver()
		compiler := services.NewCompiler(entries, backends.VectorIndex, backends.EmbeddingService, chunker, versions)
		compiler.SetObserver(observer)

		return &cli.Backends{
			Compiler: compiler,
			Search:   services.NewSearchService(backends.VectorIndex, backends.EmbeddingService),
			Metrics:  observer,
			Close:    backends.Close,
		}, nil
	}
}
