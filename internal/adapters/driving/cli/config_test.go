package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Short key", "abc123", "****"},
		{"Exactly 8 chars", "12345678", "****"},
		{"Long key", "sk-1234567890abcdef", "sk-1...cdef"},
		{"Empty key", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskAPIKey(tt.input))
		})
	}
}

func TestConfigSetAndShow(t *testing.T) {
	setupTestServices(t)
	t.Setenv("QDRANT_URL", "")
	t.Setenv("QDRANT_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	out, err := execute(t, "", "config", "set", "qdrant.url", "http://localhost:6333")
	require.NoError(t, err)
	assert.Contains(t, out, "qdrant.url = http://localhost:6333")

	out, err = execute(t, "", "config", "set", "embedding.api_key", "sk-1234567890abcdef")
	require.NoError(t, err)
	assert.Contains(t, out, "embedding.api_key = sk-1...cdef")

	_, err = execute(t, "", "config", "set", "compile.batch_size", "25")
	require.NoError(t, err)

	out, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "URL: http://localhost:6333")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.Contains(t, out, "Batch size: 25")
	assert.Contains(t, out, "Status: configured")

	s, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, 25, s.Compile.BatchSize)
}

func TestConfigSet_Errors(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "config", "set", "nope.key", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "", "config", "set", "compile.batch_size", "many")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "", "config", "set", "qdrant.url")
	assert.EqualError(t, err, "missing value for qdrant.url")
}

func TestConfigSet_SecretFromStdin(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "sk-abcdefgh12345678\n", "config", "set", "qdrant.api_key")
	require.NoError(t, err)
	assert.Contains(t, out, "qdrant.api_key = sk-a...5678")
}

func TestConfigUnset(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "config", "set", "compile.concurrency", "8")
	require.NoError(t, err)

	out, err := execute(t, "", "config", "unset", "compile.concurrency")
	require.NoError(t, err)
	assert.Contains(t, out, "compile.concurrency unset")

	s, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings().Compile.Concurrency, s.Compile.Concurrency)

	_, err = execute(t, "", "config", "unset", "nope.key")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigKeys(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "config", "keys")
	require.NoError(t, err)
	keys := strings.Fields(out)
	assert.Contains(t, keys, "qdrant.url")
	assert.Contains(t, keys, "embedding.requests_per_second")
	assert.NotContains(t, keys, "build.version")
}
