// Package version reports how the sitegen binary was built.
package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// These variables are set at build time using -ldflags, e.g.
//
//	-X github.com/conneroisu/sitegen/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	// BuildTime is RFC3339.
	BuildTime = "unknown"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty"`
}

// GetBuildInfo collects build information from the linker variables, falling
// back to the module build settings embedded by the Go toolchain.
func GetBuildInfo() *BuildInfo {
	settings := vcsSettings()

	info := &BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: parseTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     settings["vcs.modified"] == "true",
	}

	if info.GitCommit == "" || info.GitCommit == "unknown" {
		if rev := settings["vcs.revision"]; rev != "" {
			info.GitCommit = rev
		}
	}

	if info.Version == "" || info.Version == "dev" {
		info.Version = "dev"
		if mainVersion := settings["main.version"]; mainVersion != "" && mainVersion != "(devel)" {
			info.Version = mainVersion
		} else if len(info.GitCommit) >= 7 && info.GitCommit != "unknown" {
			info.Version = "dev-" + info.GitCommit[:7]
		}
	}

	if info.BuildTime.IsZero() {
		info.BuildTime = parseTime(settings["vcs.time"])
	}

	return info
}

// IsRelease reports whether this is a tagged release build.
func (b *BuildInfo) IsRelease() bool {
	return b.Version != "dev" && !strings.HasPrefix(b.Version, "dev-")
}

// Short returns the version with an abbreviated commit, e.g. "v1.2.0 (abc1234)".
func (b *BuildInfo) Short() string {
	if len(b.GitCommit) < 7 || b.GitCommit == "unknown" || strings.HasPrefix(b.Version, "dev-") {
		return b.Version
	}
	return fmt.Sprintf("%s (%s)", b.Version, b.GitCommit[:7])
}

// String returns a multi-line, human readable description.
func (b *BuildInfo) String() string {
	parts := []string{"Version: " + b.Version}

	if b.GitCommit != "unknown" && b.GitCommit != "" {
		commit := b.GitCommit
		if b.Dirty {
			commit += " (dirty)"
		}
		parts = append(parts, "Commit: "+commit)
	}
	if !b.BuildTime.IsZero() {
		parts = append(parts, "Built: "+b.BuildTime.Format(time.RFC3339))
	}
	parts = append(parts, "Go: "+b.GoVersion, "Platform: "+b.Platform)

	return strings.Join(parts, "\n")
}

// Write prints b to w as "text" or "json".
func (b *BuildInfo) Write(w io.Writer, format string) error {
	switch format {
	case "", "text":
		_, err := fmt.Fprintln(w, b.String())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	default:
		return fmt.Errorf("unknown version format %q", format)
	}
}

func vcsSettings() map[string]string {
	settings := make(map[string]string)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}
	settings["main.version"] = info.Main.Version
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return settings
}

// parseTime parses an ISO 8601 time string, returns zero time on error
func parseTime(value string) time.Time {
	if value == "" || value == "unknown" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}

	return time.Time{}
}
