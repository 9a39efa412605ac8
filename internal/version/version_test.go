package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	old := [3]string{Version, GitCommit, BuildDate}
	t.Cleanup(func() { Version, GitCommit, BuildDate = old[0], old[1], old[2] })

	Version, GitCommit, BuildDate = "v1.2.0", "abc123", "2026-10-01"
	assert.Equal(t, "v1.2.0", Short())
	assert.Equal(t, "v1.2.0 (commit: abc123, built: 2026-10-01, "+runtime.Version()+")", String())

	v, c, d := Info()
	assert.Equal(t, []string{"v1.2.0", "abc123", "2026-10-01"}, []string{v, c, d})
}
