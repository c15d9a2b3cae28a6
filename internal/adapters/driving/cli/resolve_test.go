package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

func TestResolveIndividualCmd_OverrideByTitle(t *testing.T) {
	env := setupTestServices(t)
	env.createEntry(t, "Welcome", domain.SharedSubKey, "Shared welcome.", domain.StatusActive)
	env.createEntry(t, "Hours", domain.SharedSubKey, "Open nine to five.", domain.StatusActive)
	own := env.createEntry(t, "Welcome", "alice", "Alice's welcome.", domain.StatusActive)

	out, err := execute(t, "", "resolve", "individual", "voice", "support", "alice")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "inherited")
	assert.Contains(t, lines[0], "Hours")
	assert.Contains(t, lines[1], "own")
	assert.Contains(t, lines[1], own.ID)
}

func TestResolveGroupCmd(t *testing.T) {
	env := setupTestServices(t)
	env.createEntry(t, "Welcome", domain.SharedSubKey, "Shared welcome.", domain.StatusActive)
	env.createEntry(t, "Welcome", "bob", "Bob's welcome.", domain.StatusActive)

	out, err := execute(t, "", "resolve", "group", "voice", "support", "bob", "alice")
	require.NoError(t, err)

	alice := strings.Index(out, "[alice]")
	bob := strings.Index(out, "[bob]")
	require.GreaterOrEqual(t, alice, 0)
	require.GreaterOrEqual(t, bob, 0)
	assert.Less(t, alice, bob, "individuals are printed in name order")
	assert.Contains(t, out[alice:bob], "inherited")
	assert.Contains(t, out[bob:], "own")
	assert.NotContains(t, out[bob:], "inherited")
}

func TestResolveIndividualCmd_NoEntries(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "resolve", "individual", "voice", "support", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "(no entries)")
}

func TestResolveGroupCmd_RequiresIndividual(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "resolve", "group", "voice", "support")
	assert.Error(t, err)
}
