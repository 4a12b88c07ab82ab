// Package semver gates whether saved quest progress can be loaded into a
// possibly newer quest definition.
package semver

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Valid reports whether s is a well-formed "major.minor.patch" version.
func Valid(s string) bool {
	v := "v" + s
	return semver.IsValid(v) && semver.Canonical(v) == v && semver.Prerelease(v) == ""
}

// SafeToLoad reports whether data saved under version saved can be loaded by
// code running version current.
//
// Loading is safe only within the same major version, and only if the saved
// minor version is not newer than the current one (a minor downgrade may
// carry fields the current code does not understand). Patch differences
// never block loading in either direction.
func SafeToLoad(saved, current string) (bool, error) {
	if !Valid(saved) {
		return false, fmt.Errorf("invalid saved version %q", saved)
	}
	if !Valid(current) {
		return false, fmt.Errorf("invalid current version %q", current)
	}

	s, c := "v"+saved, "v"+current
	if semver.Major(s) != semver.Major(c) {
		return false, nil
	}

	// MajorMinor comparison reduces to a minor comparison once the majors
	// are known to match.
	return semver.Compare(semver.MajorMinor(s), semver.MajorMinor(c)) <= 0, nil
}
