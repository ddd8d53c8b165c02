package charts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/pkg/errors"
)

func TestBarChartPathAndOverwrite(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir)

	path, err := r.BarChart("Net Income", []float64{100, 150, 120, 200, 180})
	require.NoError(t, err)
	assert.Equal(t, "./Net_Income_chart.png", path)

	full := filepath.Join(dir, "Net_Income_chart.png")
	first, err := os.Stat(full)
	require.NoError(t, err)
	assert.Positive(t, first.Size())

	again, err := r.BarChart("Net Income", []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, path, again)

	files, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{full}, files, "same metric overwrites the same file")
}

func TestBarChartValidation(t *testing.T) {
	r := NewRenderer(t.TempDir())

	_, err := r.BarChart("revenue", nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = r.BarChart("  ", []float64{1})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = r.BarChart("../escape", []float64{1})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir)
	_, err := r.BarChart("revenue", []float64{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.md"), []byte("# r"), 0o644))

	removed, err := Clean(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, "report.md"))
	assert.NoError(t, err, "only chart files are removed")
}
