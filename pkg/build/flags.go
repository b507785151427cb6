// SPDX-License-Identifier: MIT

// Package build holds the build information embedded with linker flags:
//
//	go build -ldflags "-X scope/pkg/build.buildName=scope -X scope/pkg/build.buildVersion=0.1.0 ..."
//
// Development builds run without them and report "dev" values.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = devInfo()
)

func devInfo() *Info {
	return &Info{
		Name:        "scope",
		Description: "Two-channel scope with live transfer-function spectra",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// ErrMissingFlags is returned by Initialize when the binary was built
// without the linker flags. The development defaults stay in place.
var ErrMissingFlags = errors.New("build flags not set")

// Initialize validates and copies build information from ldflags variables.
// Every missing flag is reported; on error the development defaults are kept.
func Initialize() error {
	var missing []error
	if buildName == "" {
		missing = append(missing, fmt.Errorf("%w: BuildName is required", ErrMissingFlags))
	}
	if buildTime == "" {
		missing = append(missing, fmt.Errorf("%w: BuildTime is required", ErrMissingFlags))
	}
	if buildCommit == "" {
		missing = append(missing, fmt.Errorf("%w: BuildCommit is required", ErrMissingFlags))
	}
	if buildVersion == "" {
		missing = append(missing, fmt.Errorf("%w: BuildVersion is required", ErrMissingFlags))
	}
	if len(missing) > 0 {
		return errors.Join(missing...)
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion
	return nil
}

// Get returns the current build information.
func Get() *Info {
	return buildInfo
}

// String formats the information for `version` output.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
