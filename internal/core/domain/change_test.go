package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "new", ChangeNew.String())
	assert.Equal(t, "content_changed", ChangeContentChanged.String())
	assert.Equal(t, "metadata_only", ChangeMetadataOnly.String())
	assert.Equal(t, "none", ChangeNone.String())
	assert.Equal(t, "deleted", ChangeDeleted.String())
	assert.Equal(t, "ChangeType(0)", ChangeType(0).String())
}

func TestChangeType_RequiresReEmbed(t *testing.T) {
	want := map[ChangeType]bool{
		ChangeNew:            true,
		ChangeContentChanged: true,
		ChangeMetadataOnly:   false,
		ChangeNone:           false,
		ChangeDeleted:        false,
	}
	for _, c := range ChangeTypes() {
		assert.Equal(t, want[c], c.RequiresReEmbed(), c.String())
	}
}

func TestParseChangeType(t *testing.T) {
	for _, c := range ChangeTypes() {
		got, err := ParseChangeType(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseChangeType("renamed")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChangeSummary_Pending(t *testing.T) {
	s := ChangeSummary{
		Counts: map[ChangeType]int{ChangeNew: 2, ChangeNone: 5, ChangeDeleted: 1},
		Total:  8,
	}
	assert.Equal(t, 3, s.Pending())
	assert.Equal(t, 2, s.Count(ChangeNew))
	assert.Equal(t, 0, s.Count(ChangeMetadataOnly))
}

func TestBaseline(t *testing.T) {
	b := NewBaseline([]BaselineRecord{
		{OverlayID: "b", Chunks: 2, TotalChunks: 2},
		{OverlayID: "a", Chunks: 1, TotalChunks: 3},
	})

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"a", "b"}, b.IDs())

	r, ok := b.Lookup("a")
	require.True(t, ok)
	assert.False(t, r.IsComplete())

	r, ok = b.Lookup("b")
	require.True(t, ok)
	assert.True(t, r.IsComplete())

	r.Mixed = true
	assert.False(t, r.IsComplete())

	_, ok = b.Lookup("c")
	assert.False(t, ok)
}
