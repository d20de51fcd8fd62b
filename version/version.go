// Package version implements the four component version value reported by
// plugin facades.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a plugin version. Versions compare field by field in the order
// Major, Minor, Patch, Build.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
	Build uint32
}

// New returns the version major.minor.patch.build.
func New(major, minor, patch, build uint32) Version {
	return Version{Major: major, Minor: minor, Patch: patch, Build: build}
}

// String formats v as "<major>.<minor>.<patch>.<build>".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to
// or after o.
func (v Version) Compare(o Version) int {
	for _, p := range [...][2]uint32{
		{v.Major, o.Major},
		{v.Minor, o.Minor},
		{v.Patch, o.Patch},
		{v.Build, o.Build},
	} {
		switch {
		case p[0] < p[1]:
			return -1
		case p[0] > p[1]:
			return 1
		}
	}
	return 0
}

// Equal reports whether v and o are the same version.
func (v Version) Equal(o Version) bool { return v == o }

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Parse parses the display form produced by String. Missing trailing
// components default to zero, so "1.3" is 1.3.0.0.
func Parse(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Version{}, fmt.Errorf("version is empty")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("version must have at most 4 components, got %q", s)
	}

	var fields [4]uint32
	for i, part := range parts {
		if part == "" {
			return Version{}, fmt.Errorf("version must have format major.minor.patch.build, got %q", s)
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("version must have non-negative numeric components, got %q: %w", s, err)
		}
		fields[i] = uint32(n)
	}
	return Version{Major: fields[0], Minor: fields[1], Patch: fields[2], Build: fields[3]}, nil
}

// Semver returns v as a semantic version. The build component becomes
// build metadata and is therefore ignored by constraint checks.
func (v Version) Semver() *semver.Version {
	return semver.New(uint64(v.Major), uint64(v.Minor), uint64(v.Patch), "", strconv.FormatUint(uint64(v.Build), 10))
}

// Satisfies reports whether v matches the semantic version constraint,
// for example ">= 1.2, < 2".
func (v Version) Satisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	return c.Check(v.Semver()), nil
}
