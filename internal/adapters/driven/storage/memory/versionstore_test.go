package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

func TestVersionStore(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	v, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.InitialBuildVersion, v)

	require.NoError(t, store.Save(ctx, v.Bump()))
	v, err = store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.00.001", v.String())
	assert.Equal(t, 1, store.Saves())
}
