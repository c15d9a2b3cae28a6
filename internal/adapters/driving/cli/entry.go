package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/overlayc/internal/adapters/driven/overlayfile"
	"github.com/custodia-labs/overlayc/internal/core/domain"
)

var (
	entryFile    string
	entryJSON    bool
	entryContent string
	entryConfirm string

	listDomain string
	listKey    string
	listSub    string
	listActive bool
)

// Flags of "entry update-metadata".
var (
	patchTitle        string
	patchDomain       string
	patchLevel        string
	patchKey          string
	patchSub          string
	patchGuardrails   string
	patchNotes        string
	patchRoles        []string
	patchCapabilities []string
	patchModels       []string
	patchLanguages    []string
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Manage overlay entries",
	Long: `Create, edit and retire overlay entries.

Every change is versioned and written to the audit log. Changes reach the
index on the next "overlayc compile".`,
}

var entryCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create entries from a YAML file",
	Long: `Creates one entry per document in a YAML file. Use "-" to read stdin.

Example file:
  title: Welcome
  domain: voice
  scope:
    level: group
    domain_key: support
    sub_key: _shared
  content: Greet the caller by name.`,
	Args: cobra.NoArgs,
	RunE: runEntryCreate,
}

var entryGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntryGet,
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries at a scope, or every active entry",
	Args:  cobra.NoArgs,
	RunE:  runEntryList,
}

var entryUpdateMetadataCmd = &cobra.Command{
	Use:   "update-metadata <id>",
	Short: "Change entry metadata",
	Long: `Changes only the metadata given by flags. A real change bumps the minor
version; the next compile rewrites payloads without re-embedding.`,
	Args: cobra.ExactArgs(1),
	RunE: runEntryUpdateMetadata,
}

var entryUpdateContentCmd = &cobra.Command{
	Use:   "update-content <id>",
	Short: "Replace entry content",
	Long: `Replaces the content from --content or --file. A real change bumps the
major version; the next compile re-embeds the entry.`,
	Args: cobra.ExactArgs(1),
	RunE: runEntryUpdateContent,
}

var entryStatusCmd = &cobra.Command{
	Use:       "status <id> <draft|active|deprecated>",
	Short:     "Set entry status",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"draft", "active", "deprecated"},
	RunE:      runEntryStatus,
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft delete an entry",
	Long:  `Marks the entry deprecated. It can be restored with "entry status <id> active".`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEntryDelete,
}

var entrySupersedeCmd = &cobra.Command{
	Use:   "supersede <old-id>",
	Short: "Replace an entry with a new one",
	Long:  `Deprecates <old-id> and creates its replacement from a single-entry YAML file.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEntrySupersede,
}

var entryPurgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Permanently delete an entry",
	Long: `Permanently removes an entry. Requires --confirm DELETE_PERMANENTLY_<id>,
or typing the token when run interactively. Only the audit record remains.`,
	Args: cobra.ExactArgs(1),
	RunE: runEntryPurge,
}

var entryAuditCmd = &cobra.Command{
	Use:   "audit <id>",
	Short: "Show the audit trail of an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntryAudit,
}

func init() {
	entryCreateCmd.Flags().StringVarP(&entryFile, "file", "f", "", "YAML file with one or more entries")
	_ = entryCreateCmd.MarkFlagRequired("file")

	entryGetCmd.Flags().BoolVar(&entryJSON, "json", false, "output the stored entry as JSON")

	entryListCmd.Flags().StringVar(&listDomain, "domain", "", "domain")
	entryListCmd.Flags().StringVar(&listKey, "key", "", "domain key")
	entryListCmd.Flags().StringVar(&listSub, "sub", "", "sub key (default: every sub key)")
	entryListCmd.Flags().BoolVar(&listActive, "active", false, "list every active entry")

	f := entryUpdateMetadataCmd.Flags()
	f.StringVar(&patchTitle, "title", "", "title")
	f.StringVar(&patchDomain, "domain", "", "domain")
	f.StringVar(&patchLevel, "level", "", "scope level (group or individual)")
	f.StringVar(&patchKey, "key", "", "domain key")
	f.StringVar(&patchSub, "sub", "", "sub key")
	f.StringVar(&patchGuardrails, "guardrails", "", "guardrail level (low, medium, high)")
	f.StringVar(&patchNotes, "notes", "", "authoring notes")
	f.StringSliceVar(&patchRoles, "roles", nil, "associated roles")
	f.StringSliceVar(&patchCapabilities, "capabilities", nil, "associated capabilities")
	f.StringSliceVar(&patchModels, "models", nil, "associated models")
	f.StringSliceVar(&patchLanguages, "languages", nil, "associated languages")

	entryUpdateContentCmd.Flags().StringVar(&entryContent, "content", "", "new content")
	entryUpdateContentCmd.Flags().StringVarP(&entryFile, "file", "f", "", "read new content from a file")
	entryUpdateContentCmd.MarkFlagsMutuallyExclusive("content", "file")
	entryUpdateContentCmd.MarkFlagsOneRequired("content", "file")

	entrySupersedeCmd.Flags().StringVarP(&entryFile, "file", "f", "", "YAML file with the replacement entry")
	_ = entrySupersedeCmd.MarkFlagRequired("file")

	entryPurgeCmd.Flags().StringVar(&entryConfirm, "confirm", "", "confirmation token")

	entryAuditCmd.Flags().BoolVar(&entryJSON, "json", false, "output records as JSON")

	entryCmd.AddCommand(entryCreateCmd)
	entryCmd.AddCommand(entryGetCmd)
	entryCmd.AddCommand(entryListCmd)
	entryCmd.AddCommand(entryUpdateMetadataCmd)
	entryCmd.AddCommand(entryUpdateContentCmd)
	entryCmd.AddCommand(entryStatusCmd)
	entryCmd.AddCommand(entryDeleteCmd)
	entryCmd.AddCommand(entrySupersedeCmd)
	entryCmd.AddCommand(entryPurgeCmd)
	entryCmd.AddCommand(entryAuditCmd)
	rootCmd.AddCommand(entryCmd)
}

func runEntryCreate(cmd *cobra.Command, _ []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	inputs, err := readOverlayFile(cmd, entryFile)
	if err != nil {
		return err
	}

	for i, input := range inputs {
		entry, err := entryService.Create(cmd.Context(), input, actor)
		if err != nil {
			return fmt.Errorf("entry %d (%q): %w", i+1, input.Title, err)
		}
		cmd.Printf("Created %s %s [%s] %s\n", entry.ID, entry.Version, entry.Status, entry.FullPath())
	}
	return nil
}

func runEntryGet(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	entry, err := entryService.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if entryJSON {
		return printJSON(cmd, entry)
	}

	cmd.Printf("# id: %s\n", entry.ID)
	cmd.Printf("# version: %s\n", entry.Version)
	cmd.Printf("# updated: %s\n", entry.Lifecycle.UpdatedAt.Format(time.RFC3339))
	if entry.Lifecycle.Supersedes != nil {
		cmd.Printf("# supersedes: %s\n", *entry.Lifecycle.Supersedes)
	}
	return overlayfile.Write(cmd.OutOrStdout(), []*domain.ContentEntry{entry})
}

func runEntryList(cmd *cobra.Command, _ []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	var (
		entries []*domain.ContentEntry
		err     error
	)
	switch {
	case listActive:
		entries, err = entryService.ListActive(cmd.Context())
	case listDomain != "" && listKey != "":
		entries, err = entryService.GetByScope(cmd.Context(), domain.Domain(listDomain), listKey, listSub)
	default:
		return errors.New("either --active or both --domain and --key are required")
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		cmd.Println("No entries found.")
		return nil
	}
	for _, e := range entries {
		cmd.Printf("%s  %-10s %-6s %s  %s\n", e.ID, e.Status, e.Version, e.FullPath(), e.Title)
	}
	return nil
}

func runEntryUpdateMetadata(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	patch, err := metadataPatch(cmd, args[0])
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return errors.New("no metadata flags given")
	}

	entry, err := entryService.UpdateMetadata(cmd.Context(), args[0], patch, actor)
	if err != nil {
		return err
	}
	cmd.Printf("Updated %s %s\n", entry.ID, entry.Version)
	return nil
}

// metadataPatch builds a patch from the flags that were set. Scope and
// associations are replaced as a whole, so unset parts keep the stored value.
func metadataPatch(cmd *cobra.Command, id string) (domain.MetadataPatch, error) {
	var patch domain.MetadataPatch
	flags := cmd.Flags()

	if flags.Changed("title") {
		patch.Title = &patchTitle
	}
	if flags.Changed("domain") {
		d := domain.Domain(patchDomain)
		patch.Domain = &d
	}
	if flags.Changed("guardrails") {
		patch.Guardrails = &domain.Guardrails{Level: domain.GuardrailLevel(patchGuardrails)}
	}
	if flags.Changed("notes") {
		patch.AuthoringNotes = &patchNotes
	}

	scopeChanged := flags.Changed("level") || flags.Changed("key") || flags.Changed("sub")
	assocChanged := flags.Changed("roles") || flags.Changed("capabilities") ||
		flags.Changed("models") || flags.Changed("languages")
	if !scopeChanged && !assocChanged {
		return patch, nil
	}

	current, err := entryService.Get(cmd.Context(), id)
	if err != nil {
		return patch, err
	}

	if scopeChanged {
		scope := current.Scope
		if flags.Changed("level") {
			scope.Level = domain.ScopeLevel(patchLevel)
		}
		if flags.Changed("key") {
			scope.DomainKey = patchKey
		}
		if flags.Changed("sub") {
			scope.SubKey = patchSub
		}
		patch.Scope = &scope
	}
	if assocChanged {
		assoc := current.Associations
		if flags.Changed("roles") {
			assoc.Roles = patchRoles
		}
		if flags.Changed("capabilities") {
			assoc.Capabilities = patchCapabilities
		}
		if flags.Changed("models") {
			assoc.Models = patchModels
		}
		if flags.Changed("languages") {
			assoc.Languages = patchLanguages
		}
		patch.Associations = &assoc
	}
	return patch, nil
}

func runEntryUpdateContent(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	content := entryContent
	if entryFile != "" {
		data, err := readInput(cmd, entryFile)
		if err != nil {
			return err
		}
		content = string(data)
	}

	entry, err := entryService.UpdateContent(cmd.Context(), args[0], content, actor)
	if err != nil {
		return err
	}
	cmd.Printf("Updated %s %s\n", entry.ID, entry.Version)
	return nil
}

func runEntryStatus(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	entry, err := entryService.SetStatus(cmd.Context(), args[0], domain.EntryStatus(args[1]), actor)
	if err != nil {
		return err
	}
	cmd.Printf("%s is now %s\n", entry.ID, entry.Status)
	return nil
}

func runEntryDelete(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	if err := entryService.SoftDelete(cmd.Context(), args[0], actor); err != nil {
		return err
	}
	cmd.Printf("%s deprecated; it is removed from the index on the next compile\n", args[0])
	return nil
}

func runEntrySupersede(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	inputs, err := readOverlayFile(cmd, entryFile)
	if err != nil {
		return err
	}
	if len(inputs) != 1 {
		return fmt.Errorf("supersede needs exactly one entry, file has %d", len(inputs))
	}

	entry, err := entryService.Supersede(cmd.Context(), args[0], inputs[0], actor)
	if err != nil {
		return err
	}
	cmd.Printf("Created %s superseding %s\n", entry.ID, args[0])
	return nil
}

func runEntryPurge(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	id := args[0]
	confirmation := entryConfirm
	if confirmation == "" && stdinIsTerminal() {
		token := domain.HardDeleteToken(id)
		cmd.Printf("This permanently deletes %s. Type %s to confirm: ", id, token)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n') //nolint:errcheck // empty input fails the check below
		confirmation = strings.TrimSpace(line)
	}

	if err := entryService.HardDelete(cmd.Context(), id, confirmation, actor); err != nil {
		return err
	}
	cmd.Printf("%s permanently deleted\n", id)
	return nil
}

func runEntryAudit(cmd *cobra.Command, args []string) error {
	if entryService == nil {
		return errors.New("entry service not configured")
	}

	records, err := entryService.AuditLog(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if entryJSON {
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No audit records.")
		return nil
	}
	for _, r := range records {
		cmd.Printf("%s  %-16s %s\n", r.ChangedAt.Format(time.RFC3339), r.Action, r.ChangedBy)
	}
	return nil
}

// readOverlayFile parses an authoring file. "-" reads the command's stdin.
func readOverlayFile(cmd *cobra.Command, path string) ([]domain.EntryInput, error) {
	if path == "-" {
		return overlayfile.Parse(cmd.InOrStdin())
	}
	return overlayfile.ParseFile(path)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
