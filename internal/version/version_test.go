package version

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withLinkerVars(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, buildTime
	t.Cleanup(func() {
		Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime
	})
}

func TestGetBuildInfoFromLinkerVars(t *testing.T) {
	withLinkerVars(t, "v1.2.0", "abcdef1234567", "2024-03-01T10:00:00Z")

	info := GetBuildInfo()
	assert.Equal(t, "v1.2.0", info.Version)
	assert.Equal(t, "abcdef1234567", info.GitCommit)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), info.BuildTime)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
	assert.True(t, info.IsRelease())
	assert.Equal(t, "v1.2.0 (abcdef1)", info.Short())
}

func TestDevBuildInfo(t *testing.T) {
	withLinkerVars(t, "dev", "unknown", "unknown")

	info := GetBuildInfo()
	require.NotEmpty(t, info.Version)
	if info.Version == "dev" {
		assert.False(t, info.IsRelease())
		assert.Equal(t, "dev", info.Short())
	}
}

func TestDevVersionIsNotRelease(t *testing.T) {
	assert.False(t, (&BuildInfo{Version: "dev"}).IsRelease())
	assert.False(t, (&BuildInfo{Version: "dev-abc1234"}).IsRelease())
	assert.Equal(t, "dev-abc1234", (&BuildInfo{Version: "dev-abc1234", GitCommit: "abc1234ffff"}).Short())
}

func TestBuildInfoString(t *testing.T) {
	info := &BuildInfo{
		Version:   "v0.1.0",
		GitCommit: "1234567890",
		BuildTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
		Dirty:     true,
	}

	out := info.String()
	assert.Contains(t, out, "Version: v0.1.0")
	assert.Contains(t, out, "Commit: 1234567890 (dirty)")
	assert.Contains(t, out, "Built: 2024-01-02T03:04:05Z")
	assert.Contains(t, out, "Platform: linux/amd64")
}

func TestBuildInfoWrite(t *testing.T) {
	info := &BuildInfo{Version: "v0.1.0", GitCommit: "unknown", GoVersion: "go1.24.4", Platform: "linux/amd64"}

	var text bytes.Buffer
	require.NoError(t, info.Write(&text, "text"))
	assert.Equal(t, "Version: v0.1.0\nGo: go1.24.4\nPlatform: linux/amd64\n", text.String())

	var js bytes.Buffer
	require.NoError(t, info.Write(&js, "json"))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "v0.1.0", decoded["version"])

	assert.Error(t, info.Write(&text, "xml"))
}

func TestParseTime(t *testing.T) {
	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("unknown").IsZero())
	assert.True(t, parseTime("yesterday").IsZero())
	assert.Equal(t, 2024, parseTime("2024-05-06 07:08:09").Year())
	assert.Equal(t, 2024, parseTime("2024-05-06T07:08:09").Year())
}
