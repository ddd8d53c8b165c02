package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/pkg/logger"
)

func TestRecordToolExecution(t *testing.T) {
	before := testutil.ToFloat64(ToolExecutions.WithLabelValues("calculate", "error"))
	RecordToolExecution("calculate", 10*time.Millisecond, true)
	RecordToolCacheHit("calculate")

	assert.Equal(t, before+1, testutil.ToFloat64(ToolExecutions.WithLabelValues("calculate", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(ToolExecutions.WithLabelValues("calculate", "cache_hit")), 1.0)
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestWorkspaceCollector(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Revenue_chart.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "EPS_chart.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.md"), []byte("# Report"), 0o644))

	c := NewWorkspaceCollector(logger.Get(), nil, dir)

	expected := `
# HELP stockcrew_workspace_chart_files Number of *_chart.png files in the working directory
# TYPE stockcrew_workspace_chart_files gauge
stockcrew_workspace_chart_files 2
# HELP stockcrew_workspace_report_bytes Size of report.md in the working directory
# TYPE stockcrew_workspace_report_bytes gauge
stockcrew_workspace_report_bytes 8
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"stockcrew_workspace_chart_files", "stockcrew_workspace_report_bytes")
	assert.NoError(t, err)
}
