package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"stockcrew/pkg/logger"
)

// WorkspaceCollector reports run history from Postgres and the artifacts
// currently sitting in the working directory.
type WorkspaceCollector struct {
	log      *logger.Logger
	postgres *sqlx.DB
	workDir  string

	runsByStatus *prometheus.Desc
	chartFiles   *prometheus.Desc
	reportBytes  *prometheus.Desc
}

// NewWorkspaceCollector creates a collector. postgres may be nil.
func NewWorkspaceCollector(log *logger.Logger, postgres *sqlx.DB, workDir string) *WorkspaceCollector {
	return &WorkspaceCollector{
		log:      log,
		postgres: postgres,
		workDir:  workDir,

		runsByStatus: prometheus.NewDesc(
			"stockcrew_runs_stored",
			"Stored analysis runs by status",
			[]string{"status"}, nil,
		),
		chartFiles: prometheus.NewDesc(
			"stockcrew_workspace_chart_files",
			"Number of *_chart.png files in the working directory",
			nil, nil,
		),
		reportBytes: prometheus.NewDesc(
			"stockcrew_workspace_report_bytes",
			"Size of report.md in the working directory",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *WorkspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runsByStatus
	ch <- c.chartFiles
	ch <- c.reportBytes
}

// Collect implements prometheus.Collector
func (c *WorkspaceCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectRunStats(ctx, ch)
	c.collectWorkspace(ch)
}

func (c *WorkspaceCollector) collectRunStats(ctx context.Context, ch chan<- prometheus.Metric) {
	if c.postgres == nil {
		return
	}

	type runStat struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}

	var stats []runStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT status, COUNT(*) as count
		FROM analysis_runs
		GROUP BY status
	`)
	if err != nil {
		c.log.Warnw("Failed to collect run stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.runsByStatus,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Status,
		)
	}
}

func (c *WorkspaceCollector) collectWorkspace(ch chan<- prometheus.Metric) {
	entries, err := os.ReadDir(c.workDir)
	if err != nil {
		c.log.Warnw("Failed to read working directory", "dir", c.workDir, "error", err)
		return
	}

	charts := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "_chart.png") {
			charts++
		}
	}
	ch <- prometheus.MustNewConstMetric(c.chartFiles, prometheus.GaugeValue, float64(charts))

	var size int64
	if info, err := os.Stat(filepath.Join(c.workDir, "report.md")); err == nil {
		size = info.Size()
	}
	ch <- prometheus.MustNewConstMetric(c.reportBytes, prometheus.GaugeValue, float64(size))
}
