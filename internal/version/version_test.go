package version_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omarluq/skillswap/internal/version"
)

func TestDefaultsAreNonEmpty(t *testing.T) {
	t.Parallel()

	assert.NotEmpty(t, version.Version)
	assert.NotEmpty(t, version.Commit)
	assert.NotEmpty(t, version.BuildDate)
}

func TestString(t *testing.T) {
	t.Parallel()

	want := version.Version + " (commit: " + version.Commit + ", built: " + version.BuildDate + ")"
	assert.Equal(t, want, version.String())
}

func TestGet(t *testing.T) {
	t.Parallel()

	info := version.Get()
	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, version.Commit, info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}
