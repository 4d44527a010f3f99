package plugin

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is a three part plugin version.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

func (v Version) String() string {
	return v.Semver().String()
}

// Semver converts the version for constraint checks.
func (v Version) Semver() *semver.Version {
	return semver.New(uint64(v.Major), uint64(v.Minor), uint64(v.Patch), "", "")
}

// Satisfies reports whether v matches a semver constraint such as ">= 1.2, < 2".
func (v Version) Satisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	return c.Check(v.Semver()), nil
}

// ServiceMetadata describes a plugin module. Each module publishes exactly
// one record, which stays constant for the lifetime of the loaded module.
//
// Modules also export it as a package-level variable named ServiceMetadata so
// Go hosts can find it with plugin.Lookup.
//
// Example:
//
//	var ServiceMetadata = plugin.ServiceMetadata{
//	    Name:    "Arithmetic",
//	    Version: plugin.Version{Major: 1, Minor: 0, Patch: 0},
//	    Create:  NewArithmetic,
//	}
type ServiceMetadata struct {
	// Name is the display name of the plugin.
	Name string

	// Version is the plugin version.
	Version Version

	// Create builds a new, unregistered plugin instance.
	Create func() Plugin
}

// Validate checks that the record can be used to instantiate plugins.
func (m *ServiceMetadata) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil metadata", ErrInvalidMetadata)
	}
	if m.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidMetadata)
	}
	if m.Create == nil {
		return fmt.Errorf("%w: plugin %s has no factory", ErrInvalidMetadata, m.Name)
	}
	return nil
}
