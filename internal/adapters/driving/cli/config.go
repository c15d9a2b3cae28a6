package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change settings stored in config.toml.

QDRANT_URL and QDRANT_API_KEY override the file; OPENAI_API_KEY is used
when embedding.api_key is not set.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a configuration key",
	Long: `Set a configuration key. Secrets (keys ending in api_key) are read from
the terminal without echo when no value is given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration key so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settingsService == nil {
			return errors.New("settings service not configured")
		}
		if err := settingsService.Unset(args[0]); err != nil {
			return err
		}
		cmd.Printf("%s unset\n", args[0])
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("[Storage]")
	cmd.Printf("  Data dir: %s\n", orDefault(settings.Storage.DataDir, "(default)"))
	if databasePath != "" {
		cmd.Printf("  Database: %s\n", databasePath)
	}
	cmd.Println()

	cmd.Println("[Qdrant]")
	cmd.Printf("  URL: %s\n", orDefault(settings.Qdrant.URL, "(not set)"))
	cmd.Printf("  API Key: %s\n", secret(settings.Qdrant.APIKey))
	cmd.Printf("  Collection: %s\n", settings.Qdrant.Collection)
	if settings.Qdrant.VectorDim > 0 {
		cmd.Printf("  Vector dim: %d\n", settings.Qdrant.VectorDim)
	} else {
		cmd.Printf("  Vector dim: (from embedding model)\n")
	}
	cmd.Printf("  Max retries: %d\n", settings.Qdrant.MaxRetries)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider)
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Base URL: %s\n", orDefault(settings.Embedding.BaseURL, "(provider default)"))
	cmd.Printf("  API Key: %s\n", secret(settings.Embedding.APIKey))
	if settings.Embedding.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %.2f req/s\n", settings.Embedding.RequestsPerSecond)
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Strategy: %s\n", settings.Chunker.Strategy)
	cmd.Printf("  Max/overlap/min: %d/%d/%d\n",
		settings.Chunker.MaxChunkSize, settings.Chunker.OverlapSize, settings.Chunker.MinChunkSize)
	cmd.Println()

	cmd.Println("[Compile]")
	cmd.Printf("  Batch size: %d\n", settings.Compile.BatchSize)
	cmd.Printf("  Concurrency: %d\n", settings.Compile.Concurrency)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case strings.HasSuffix(key, "api_key"):
		cmd.Printf("Enter %s: ", key)
		value = readPassword(cmd.InOrStdin())
		cmd.Println()
	default:
		return fmt.Errorf("missing value for %s", key)
	}

	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	shown := value
	if strings.HasSuffix(key, "api_key") {
		shown = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	// Try to read password without echo
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func secret(v string) string {
	if v == "" {
		return "(not set)"
	}
	return maskAPIKey(v)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
