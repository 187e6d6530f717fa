// pkg/version/version.go
// Package version provides version metadata for the application.
package version

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// These variables are typically injected at build time using -ldflags
var (
	// Version holds the current version of eventstack.
	Version = "dev"
	// Commit holds the current version commit of eventstack.
	Commit = "none"
	// BuildDate holds the build date of eventstack.
	BuildDate = "unknown"
	// StartDate holds the start date of eventstack.
	StartDate = time.Now()
)

// ErrIncompatible is returned when a version constraint rules out the running build.
var ErrIncompatible = errors.New("version: incompatible")

// Struct returns version information in a structured format.
type Struct struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("eventstack %s (commit: %s, date: %s)", Version, Commit, BuildDate)
}

// Get returns version information as a Struct.
func Get() Struct {
	return Struct{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}
}

// IsRelease reports whether v parses as a semantic version.
func IsRelease(v string) bool {
	_, err := semver.NewVersion(v)
	return err == nil
}

// Check verifies that current satisfies constraint (e.g. ">=0.2.0, <1.0.0").
// An empty constraint always passes, and so does a non-semver current
// version such as "dev". Malformed constraints are reported as errors.
func Check(current, constraint string) error {
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	// development builds are not checked
	if !IsRelease(current) {
		return nil
	}
	v := semver.MustParse(current)

	if !c.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %q", ErrIncompatible, v, constraint)
	}
	return nil
}

// CheckCurrent verifies the running build against constraint.
func CheckCurrent(constraint string) error {
	return Check(Version, constraint)
}
