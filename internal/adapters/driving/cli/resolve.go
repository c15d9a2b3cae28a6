package cli

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driving"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show the effective entries of individuals",
	Long: `Resolves inheritance: an individual sees the _shared entries of its
domain key, except those it overrides with an entry of the same title.`,
}

var resolveIndividualCmd = &cobra.Command{
	Use:   "individual <domain> <domain-key> <individual>",
	Short: "Resolve one individual",
	Args:  cobra.ExactArgs(3),
	RunE:  runResolveIndividual,
}

var resolveGroupCmd = &cobra.Command{
	Use:   "group <domain> <domain-key> <individual>...",
	Short: "Resolve several individuals",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runResolveGroup,
}

func init() {
	resolveCmd.AddCommand(resolveIndividualCmd)
	resolveCmd.AddCommand(resolveGroupCmd)
	rootCmd.AddCommand(resolveCmd)
}

func runResolveIndividual(cmd *cobra.Command, args []string) error {
	if resolver == nil {
		return errors.New("inheritance resolver not configured")
	}

	resolved, err := resolver.ResolveForIndividual(cmd.Context(), domain.Domain(args[0]), args[1], args[2])
	if err != nil {
		return err
	}
	printResolved(cmd, resolved)
	return nil
}

func runResolveGroup(cmd *cobra.Command, args []string) error {
	if resolver == nil {
		return errors.New("inheritance resolver not configured")
	}

	byIndividual, err := resolver.ResolveForGroup(cmd.Context(), domain.Domain(args[0]), args[1], args[2:])
	if err != nil {
		return err
	}

	names := make([]string, 0, len(byIndividual))
	for name := range byIndividual {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		if i > 0 {
			cmd.Println()
		}
		cmd.Printf("[%s]\n", name)
		printResolved(cmd, byIndividual[name])
	}
	return nil
}

func printResolved(cmd *cobra.Command, resolved []driving.ResolvedEntry) {
	if len(resolved) == 0 {
		cmd.Println("  (no entries)")
		return
	}
	for _, r := range resolved {
		origin := "own"
		if r.Inherited {
			origin = "inherited"
		}
		cmd.Printf("  %-9s %s  %s\n", origin, r.Entry.ID, r.Entry.Title)
	}
}
