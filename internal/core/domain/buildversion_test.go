package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVersion_String(t *testing.T) {
	assert.Equal(t, "1.00.000", InitialBuildVersion.String())
	assert.Equal(t, "8.07.042", BuildVersion{Major: 8, Minor: 7, Patch: 42}.String())
}

func TestBuildVersion_Bump(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{"8.00.101", "8.00.102"},
		{"8.00.999", "8.01.000"},
		{"8.99.999", "8.00.000"},
		{"1.00.000", "1.00.001"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			v, err := ParseBuildVersion(tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Bump().String())
		})
	}
}

func TestBuildVersion_BumpNeverChangesMajor(t *testing.T) {
	v := BuildVersion{Major: 3, Minor: 99, Patch: 999}
	for i := 0; i < 5; i++ {
		v = v.Bump()
		assert.Equal(t, 3, v.Major)
	}
}

func TestParseBuildVersion_RoundTrip(t *testing.T) {
	v, err := ParseBuildVersion(" 12.34.567 ")
	require.NoError(t, err)
	assert.Equal(t, BuildVersion{Major: 12, Minor: 34, Patch: 567}, v)
	assert.Equal(t, "12.34.567", v.String())
}

func TestParseBuildVersion_Invalid(t *testing.T) {
	inputs := []string{"", "1.0", "1.00.000.1", "a.00.000", "1.-1.000", "1.100.000", "1.00.1000"}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseBuildVersion(in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
