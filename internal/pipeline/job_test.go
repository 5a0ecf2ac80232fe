package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseTopology checks accepted spellings and the unknown error.
func TestParseTopology(t *testing.T) {
	tests := []struct {
		in   string
		want Topology
	}{
		{"", TopologyIndependent},
		{"independent", TopologyIndependent},
		{" Chained ", TopologyChained},
	}
	for _, tc := range tests {
		got, err := ParseTopology(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseTopology("parallel")
	assert.True(t, errors.Is(err, ErrUnknownTopology))
}

// TestBuildJobsUnitCounts checks total units per topology.
func TestBuildJobsUnitCounts(t *testing.T) {
	files := []string{"/in/a.mp4", "/in/b.mp4", "/in/c.mp4"}
	ids := []string{"rotate", "mirror"}

	independent, err := BuildJobs(files, ids, TopologyIndependent)
	require.NoError(t, err)
	assert.Equal(t, 6, TotalUnits(independent))

	chained, err := BuildJobs(files, ids, TopologyChained)
	require.NoError(t, err)
	assert.Equal(t, 3, TotalUnits(chained))
	for _, job := range chained {
		assert.Equal(t, ids, job.Transformations)
	}
}

// TestBuildJobsNormalisesInputs checks de-duplication rules.
func TestBuildJobsNormalisesInputs(t *testing.T) {
	files := []string{"/in/a.mp4", "/in/a.mp4", ""}

	jobs, err := BuildJobs(files, []string{"rotate", " rotate ", ""}, TopologyIndependent)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{"rotate"}, jobs[0].Transformations)

	jobs, err = BuildJobs(files, []string{"rotate", "rotate"}, TopologyChained)
	require.NoError(t, err)
	assert.Equal(t, []string{"rotate", "rotate"}, jobs[0].Transformations)
}

// TestBuildJobsErrors checks the batch-level validation sentinels.
func TestBuildJobsErrors(t *testing.T) {
	_, err := BuildJobs(nil, []string{"rotate"}, TopologyChained)
	assert.ErrorIs(t, err, ErrNoInputFiles)

	_, err = BuildJobs([]string{"/in/a.mp4"}, []string{" "}, TopologyChained)
	assert.ErrorIs(t, err, ErrNoTransformations)

	_, err = BuildJobs([]string{"/x/a.mp4", "/y/a.mp4"}, []string{"rotate"}, TopologyChained)
	assert.ErrorIs(t, err, ErrDuplicateInput)
}

// TestScanInputFiles checks filtering, ordering and non-recursion.
func TestScanInputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.MP4", "a.mov", "notes.txt", "c.webm"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.mp4"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested.mp4", "inner.mp4"), nil, 0o644))

	files, err := ScanInputFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.mov"),
		filepath.Join(dir, "b.MP4"),
		filepath.Join(dir, "c.webm"),
	}, files)
}

// TestScanInputFilesMissingDir checks unreadable directories return an error.
func TestScanInputFilesMissingDir(t *testing.T) {
	files, err := ScanInputFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Empty(t, files)
}

// TestDefaultOutputDir checks the {input}/output default.
func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/media/in", "output"), DefaultOutputDir("/media/in"))
}
