package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchDomain     string
	searchKey        string
	searchSubKeys    []string
	searchGuardrails []string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search published overlay content",
	Long: `Embeds the query and returns the closest chunks of active entries.
Draft, deprecated and placeholder content is never returned.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "List published chunks without a query",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, browseCmd} {
		c.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
		c.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
		c.Flags().StringVar(&searchDomain, "domain", "", "restrict to a domain")
		c.Flags().StringVar(&searchKey, "key", "", "restrict to a domain key")
		c.Flags().StringSliceVar(&searchSubKeys, "sub", nil, "restrict to sub keys")
		c.Flags().StringSliceVar(&searchGuardrails, "guardrails", nil, "restrict to guardrail levels")
		rootCmd.AddCommand(c)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	b, err := ensureBackends(cmd.Context())
	if err != nil {
		return err
	}
	if b.Search == nil {
		return errors.New("search service not configured")
	}

	results, err := b.Search.Search(cmd.Context(), args[0], searchOptions())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return outputResults(cmd, results)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	b, err := ensureBackends(cmd.Context())
	if err != nil {
		return err
	}
	if b.Search == nil {
		return errors.New("search service not configured")
	}

	results, err := b.Search.Browse(cmd.Context(), searchOptions())
	if err != nil {
		return fmt.Errorf("browse failed: %w", err)
	}
	return outputResults(cmd, results)
}

func searchOptions() domain.SearchOptions {
	opts := domain.SearchOptions{
		Limit:     searchLimit,
		Domain:    domain.Domain(searchDomain),
		DomainKey: searchKey,
		SubKeys:   searchSubKeys,
	}
	for _, g := range searchGuardrails {
		opts.Guardrails = append(opts.Guardrails, domain.GuardrailLevel(g))
	}
	return opts
}

func outputResults(cmd *cobra.Command, results []domain.SearchResult) error {
	if searchJSON {
		return printJSON(cmd, results)
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		// Format: [N] Title (path #chunk) score
		cmd.Printf("[%d] %s (%s #%d)", i+1, r.Title, r.FullPath, r.ChunkIndex)
		if r.Score > 0 {
			cmd.Printf(" %.3f", r.Score)
		}
		cmd.Println()
		cmd.Printf("    %s\n", snippet(r.Text, 160))
		cmd.Println()
	}
	return nil
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
