package api

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"stockcrew/internal/adapters/charts"
	"stockcrew/internal/tools"
	"stockcrew/pkg/errors"
)

// ReportMissing is shown when the run left no report.md behind.
const ReportMissing = "Detailed report not found. The agents might not have generated a markdown report."

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts report markdown to an HTML fragment. Raw HTML in
// the source is dropped.
func RenderMarkdown(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return "", errors.Wrap(err, "render markdown")
	}
	return buf.String(), nil
}

func (s *Server) report(c echo.Context) error {
	src, err := os.ReadFile(filepath.Join(s.cfg.WorkDir, tools.ReportFile))
	if os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, ReportMissing)
	}
	if err != nil {
		return errors.Wrap(err, "read report")
	}

	html, err := RenderMarkdown(src)
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, html)
}

// listCharts returns every chart in the working directory, including charts
// left over from earlier runs.
func (s *Server) listCharts(c echo.Context) error {
	paths, err := charts.List(s.cfg.WorkDir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	return c.JSON(http.StatusOK, map[string][]string{"charts": names})
}

func (s *Server) chart(c echo.Context) error {
	name := c.Param("file")
	if name != filepath.Base(name) || !strings.HasSuffix(name, charts.FileSuffix) {
		return echo.NewHTTPError(http.StatusNotFound, "chart not found")
	}
	path := filepath.Join(s.cfg.WorkDir, name)
	if _, err := os.Stat(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "chart not found")
	}
	return c.File(path)
}
