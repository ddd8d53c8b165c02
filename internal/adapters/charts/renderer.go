package charts

import (
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"stockcrew/pkg/errors"
)

const (
	// FileSuffix ends every chart file name
	FileSuffix = "_chart.png"

	chartWidth  = 6.4 * vg.Inch
	chartHeight = 4.8 * vg.Inch
)

// Renderer draws bar charts into a working directory
type Renderer struct {
	dir string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRenderer creates a renderer writing into dir
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// FileName maps a metric to its chart file: spaces become underscores
func FileName(metric string) string {
	return strings.ReplaceAll(metric, " ", "_") + FileSuffix
}

// BarChart renders data as one bar per period and returns the path relative
// to the working directory, e.g. "./revenue_chart.png". An existing chart for
// the same metric is overwritten.
func (r *Renderer) BarChart(metric string, data []float64) (string, error) {
	if strings.TrimSpace(metric) == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "metric name is empty")
	}
	if len(data) == 0 {
		return "", errors.Wrap(errors.ErrInvalidInput, "data is empty")
	}
	name := FileName(metric)
	if strings.ContainsAny(name, `/\`) {
		return "", errors.Wrapf(errors.ErrInvalidInput, "metric %q is not a valid file name", metric)
	}

	p := plot.New()
	p.Title.Text = metric + " Over Time"
	p.X.Label.Text = "Years"
	p.Y.Label.Text = metric

	bars, err := plotter.NewBarChart(plotter.Values(data), vg.Points(20))
	if err != nil {
		return "", errors.Wrap(err, "build bar chart")
	}
	bars.Color = r.randomColor()
	bars.LineStyle.Width = 0
	p.Add(bars)

	labels := make([]string, len(data))
	for i := range data {
		labels[i] = strconv.Itoa(i)
	}
	p.NominalX(labels...)

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create chart directory")
	}
	if err := p.Save(chartWidth, chartHeight, filepath.Join(r.dir, name)); err != nil {
		return "", errors.Wrap(err, "save chart")
	}

	return "./" + name, nil
}

func (r *Renderer) randomColor() color.RGBA {
	r.mu.Lock()
	v := r.rnd.Intn(0x1000000)
	r.mu.Unlock()
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// List returns every chart file in dir, sorted by name
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+FileSuffix))
	if err != nil {
		return nil, errors.Wrap(err, "glob charts")
	}
	return matches, nil
}

// Clean removes every chart file in dir
func Clean(dir string) (int, error) {
	matches, err := List(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrapf(err, "remove %s", m)
		}
		removed++
	}
	return removed, nil
}
