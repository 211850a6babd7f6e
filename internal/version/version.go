// Package version holds build-time version information.
//
// The variables are set via ldflags during build:
//
//	-ldflags "-X codevectorizer/internal/version.version=v1.0.0 -X codevectorizer/internal/version.commit=abc123 -X codevectorizer/internal/version.buildTime=2025-01-01T00:00:00Z"
package version

import (
	"fmt"
	"io"
)

//nolint:gochecknoglobals // Set via ldflags at build time.
var (
	version   string
	commit    string
	buildTime string
)

// Defaults used when the build did not inject version information.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

// Info is a snapshot of the binary's version information.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
}

// Get returns the current version information, with defaults applied for
// anything the build did not set.
func Get() Info {
	info := Info{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
	if info.Version == "" {
		info.Version = DefaultVersion
	}
	if info.Commit == "" {
		info.Commit = DefaultCommit
	}
	if info.BuildTime == "" {
		info.BuildTime = DefaultBuildTime
	}
	return info
}

// SetBuildVars overrides the build-time variables. Intended for build
// systems that inject version information through the cmd package instead.
func SetBuildVars(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
}

// Write renders the version information. Short mode prints only the
// version number.
func (i Info) Write(w io.Writer, short bool) error {
	if short {
		_, err := fmt.Fprintln(w, i.Version)
		return err
	}
	_, err := fmt.Fprintf(w, "codevectorizer\nVersion: %s\nCommit: %s\nBuilt: %s\n",
		i.Version, i.Commit, i.BuildTime)
	return err
}
