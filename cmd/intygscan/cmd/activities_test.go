package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/store"
)

func listActivities(t *testing.T, c *cli, args ...string) []store.Activity {
	t.Helper()
	out, _, err := c.run(append([]string{"activities", "list", "--format", "json"}, args...)...)
	require.NoError(t, err)
	var acts []store.Activity
	require.NoError(t, json.Unmarshal([]byte(out), &acts))
	return acts
}

func TestActivitiesLifecycle(t *testing.T) {
	c := newCLI(t)
	scan := writeClinical(t)

	out, _, err := c.run("activities", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No activities registered.")
	assert.Empty(t, listActivities(t, c))

	_, stderr, err := c.run("parse", scan, "--save")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Saved activity")

	acts := listActivities(t, c)
	require.Len(t, acts, 1)
	assert.Equal(t, "2028-01-13", acts[0].StartISO)
	assert.Equal(t, "2028-04-15", acts[0].EndISO)
	assert.Contains(t, acts[0].Label, "Psykos")

	out, _, err = c.run("activities", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Psykos")
	assert.Contains(t, out, "2015-B4-KLIN")

	// The same period again overlaps the saved one.
	out, _, err = c.run("parse", scan, "--save")
	require.ErrorIs(t, err, errBlocked)
	assert.Contains(t, out, "overlap")

	_, stderr, err = c.run("activities", "add", scan)
	require.ErrorIs(t, err, errBlocked)
	assert.Contains(t, stderr, "overlap")

	_, _, err = c.run("activities", "add", scan, "--force")
	require.NoError(t, err)
	acts = listActivities(t, c)
	require.Len(t, acts, 2)

	_, _, err = c.run("activities", "hide", acts[1].ID)
	require.NoError(t, err)
	assert.Len(t, listActivities(t, c), 1)
	assert.Len(t, listActivities(t, c, "--all"), 2)

	_, _, err = c.run("activities", "hide", acts[1].ID, "--show")
	require.NoError(t, err)
	assert.Len(t, listActivities(t, c), 2)

	_, _, err = c.run("activities", "delete", acts[1].ID)
	require.NoError(t, err)
	assert.Len(t, listActivities(t, c, "--all"), 1)

	_, _, err = c.run("activities", "delete", "no-such-id")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestActivitiesCheck(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run("parse", writeClinical(t), "--save")
	require.NoError(t, err)

	out, _, err := c.run("activities", "check", "--start", "280201", "--end", "2028-03-01")
	require.ErrorIs(t, err, errOverlap)
	assert.Contains(t, out, "Overlaps:")
	assert.Contains(t, out, "Psykos (2028-01-13 - 2028-04-15)")

	out, _, err = c.run("activities", "check", "--certificate-date", "2028-04-15", "--format", "json")
	require.ErrorIs(t, err, errOverlap)
	var rep struct {
		HasOverlap bool `json:"hasOverlap"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.HasOverlap)

	out, _, err = c.run("activities", "check", "--start", "2028-04-16")
	require.NoError(t, err)
	assert.Contains(t, out, "No overlap.")

	_, _, err = c.run("activities", "check")
	assert.Error(t, err)

	_, _, err = c.run("activities", "check", "--start", "mars")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a date")
}

func TestExportCommand(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run("parse", writeClinical(t), "--save")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "aktiviteter.xlsx")
	_, stderr, err := c.run("export", "--output", file)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Exported activities")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]), "xlsx is a zip container")
}
