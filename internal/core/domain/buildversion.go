package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Build version segment limits. PATCH rolls into MINOR at patchLimit and
// MINOR wraps to zero at minorLimit; MAJOR is only changed by hand.
const (
	patchLimit = 1000
	minorLimit = 100
)

// InitialBuildVersion is used when the version store is empty.
var InitialBuildVersion = BuildVersion{Major: 1}

// BuildVersion is the compile counter rendered as MAJOR.MM.PPP.
type BuildVersion struct {
	Major int
	Minor int
	Patch int
}

// ParseBuildVersion parses "8.00.101".
func ParseBuildVersion(s string) (BuildVersion, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return BuildVersion{}, fmt.Errorf("%w: build version %q must be MAJOR.MINOR.PATCH", ErrInvalidInput, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return BuildVersion{}, fmt.Errorf("%w: build version %q has a bad segment %q", ErrInvalidInput, s, p)
		}
		nums[i] = n
	}
	v := BuildVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}
	if v.Minor >= minorLimit || v.Patch >= patchLimit {
		return BuildVersion{}, fmt.Errorf("%w: build version %q is out of range", ErrInvalidInput, s)
	}
	return v, nil
}

// String renders the version with a 2-digit MINOR and 3-digit PATCH.
func (v BuildVersion) String() string {
	return fmt.Sprintf("%d.%02d.%03d", v.Major, v.Minor, v.Patch)
}

// Bump returns the next version.
func (v BuildVersion) Bump() BuildVersion {
	next := v
	next.Patch++
	if next.Patch >= patchLimit {
		next.Patch = 0
		next.Minor++
		if next.Minor >= minorLimit {
			next.Minor = 0
		}
	}
	return next
}
