package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureBackends_BuildsOnce(t *testing.T) {
	setupTestServices(t)
	calls := 0
	backendFactory = func(context.Context) (*Backends, error) {
		calls++
		return &Backends{}, nil
	}

	first, err := ensureBackends(context.Background())
	require.NoError(t, err)
	second, err := ensureBackends(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestEnsureBackends_NotConfigured(t *testing.T) {
	SetServices(Services{})

	_, err := ensureBackends(context.Background())
	assert.EqualError(t, err, "compile backends not configured")
}

func TestEnsureBackends_FactoryError(t *testing.T) {
	setupTestServices(t)
	backendFactory = func(context.Context) (*Backends, error) {
		return nil, errors.New("qdrant down")
	}

	_, err := ensureBackends(context.Background())
	assert.EqualError(t, err, "qdrant down")
	assert.Nil(t, backends)
}

func TestExecute_ClosesBackends(t *testing.T) {
	env := setupTestServices(t)
	rootCmd.SetArgs([]string{"compile", "status"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, Execute(context.Background()))
	assert.Equal(t, 1, env.closed)
	assert.Nil(t, backends)
}

func TestServiceNotConfigured(t *testing.T) {
	SetServices(Services{})

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"entry", "get", "x"}, "entry service not configured"},
		{[]string{"resolve", "individual", "voice", "support", "alice"}, "inheritance resolver not configured"},
		{[]string{"config", "keys"}, "settings service not configured"},
		{[]string{"compile"}, "compile backends not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDefaultActor(t *testing.T) {
	t.Setenv("USER", "alice")
	assert.Equal(t, "alice", defaultActor())

	t.Setenv("USER", "")
	assert.Equal(t, "cli", defaultActor())
}
