package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search <query>", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_ReturnsCompiledContent(t *testing.T) {
	env := setupTestServices(t)
	env.createEntry(t, "Welcome", domain.SharedSubKey, "Greet the caller by name.", domain.StatusActive)
	env.createEntry(t, "Draft", domain.SharedSubKey, "Not published yet.", domain.StatusDraft)

	_, err := execute(t, "", "compile")
	require.NoError(t, err)

	out, err := execute(t, "", "search", "greeting")
	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "Welcome (voice/support/_shared #0)")
	assert.NotContains(t, out, "Draft")
}

func TestSearchCmd_NoResults(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "search", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSONWithFilters(t *testing.T) {
	env := setupTestServices(t)
	env.createEntry(t, "Shared", domain.SharedSubKey, "Shared greeting.", domain.StatusActive)
	env.createEntry(t, "Alice", "alice", "Alice greeting.", domain.StatusActive)
	env.createEntry(t, "Bob", "bob", "Bob greeting.", domain.StatusActive)
	_, err := execute(t, "", "compile")
	require.NoError(t, err)

	out, err := execute(t, "", "search", "--json", "--key", "support", "--sub", "alice,_shared", "greeting")
	require.NoError(t, err)

	var results []domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	titles := make([]string, len(results))
	for i, r := range results {
		titles[i] = r.Title
	}
	assert.ElementsMatch(t, []string{"Shared", "Alice"}, titles)
}

func TestBrowseCmd(t *testing.T) {
	env := setupTestServices(t)
	env.createEntry(t, "Welcome", domain.SharedSubKey, "Greet the caller by name.", domain.StatusActive)
	_, err := execute(t, "", "compile")
	require.NoError(t, err)

	out, err := execute(t, "", "browse", "--domain", "voice")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] Welcome")

	out, err = execute(t, "", "browse", "--domain", "policy")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_BackendError(t *testing.T) {
	setupTestServices(t)
	backendFactory = func(context.Context) (*Backends, error) {
		return nil, domain.ErrVectorIndexUnavailable
	}

	_, err := execute(t, "", "search", "anything")
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n b\t\tc", 10))
	assert.Equal(t, "abcd...", snippet("abcdefgh", 4))
	assert.Equal(t, "héll...", snippet("héllo wörld", 4))
}
