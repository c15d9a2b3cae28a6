package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/overlayc/internal/adapters/driven/config/file"
	"github.com/custodia-labs/overlayc/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/services"
	"github.com/custodia-labs/overlayc/internal/postprocessors/chunker"
)

// lengthEmbedder returns two-dimensional vectors derived from text length.
type lengthEmbedder struct{}

func (lengthEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (e lengthEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (lengthEmbedder) Dimensions() int            { return 2 }
func (lengthEmbedder) ModelName() string          { return "length" }
func (lengthEmbedder) Ping(context.Context) error { return nil }
func (lengthEmbedder) Close() error               { return nil }

type recordingMetrics struct {
	paths []string
}

func (m *recordingMetrics) WriteTextfile(path string) error {
	m.paths = append(m.paths, path)
	return nil
}

// testEnv is a fully wired in-memory service graph.
type testEnv struct {
	entries  *services.EntryService
	index    *memory.VectorIndex
	versions *memory.VersionStore
	metrics  *recordingMetrics
	closed   int
}

// setupTestServices wires the command tree to in-memory adapters and
// restores the previous wiring when the test ends.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	configStore, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		entries:  services.NewEntryService(memory.NewEntryStore()),
		index:    memory.NewVectorIndex(),
		versions: memory.NewVersionStore(),
		metrics:  &recordingMetrics{},
	}

	compiler := services.NewCompiler(env.entries, env.index, lengthEmbedder{}, chunker.New(), env.versions)
	search := services.NewSearchService(env.index, lengthEmbedder{})

	SetServices(Services{
		Entries:  env.entries,
		Resolver: services.NewInheritanceResolver(env.entries),
		Settings: services.NewSettingsService(configStore),
		Backends: func(context.Context) (*Backends, error) {
			return &Backends{
				Compiler: compiler,
				Search:   search,
				Metrics:  env.metrics,
				Close:    func() { env.closed++ },
			}, nil
		},
		DatabasePath: t.TempDir() + "/overlays.db",
	})
	t.Cleanup(func() {
		closeBackends()
		SetServices(Services{})
	})
	return env
}

// execute runs the root command with args and returns everything written
// to stdout and stderr. Flags are reset afterwards because cobra keeps
// their values between executions.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// createEntry stores an entry directly through the service.
func (e *testEnv) createEntry(t *testing.T, title, subKey, content string, status domain.EntryStatus) *domain.ContentEntry {
	t.Helper()
	entry, err := e.entries.Create(context.Background(), domain.EntryInput{
		Title:   title,
		Status:  status,
		Content: content,
		Domain:  domain.DomainVoice,
		Scope:   domain.Scope{DomainKey: "support", SubKey: subKey},
	}, "test")
	require.NoError(t, err)
	return entry
}
