package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stockcrew/internal/adapters/calculator"
	"stockcrew/internal/adapters/edgar"
	"stockcrew/pkg/errors"
)

const (
	filingSorry = "Sorry, I couldn't find any filling for this stock, check if the ticker is correct."

	// ReportFile is the markdown artifact written into the working directory.
	ReportFile = "report.md"
)

// Search10Q searches the latest quarterly report. query is "TICKER|question".
func (k *Toolkit) Search10Q(ctx context.Context, query string) Result {
	return k.searchFiling(ctx, edgar.FormQuarterly, query)
}

// Search10K searches the latest annual report. query is "TICKER|question".
func (k *Toolkit) Search10K(ctx context.Context, query string) Result {
	return k.searchFiling(ctx, edgar.FormAnnual, query)
}

func (k *Toolkit) searchFiling(ctx context.Context, form, query string) Result {
	ticker, question := ParseFilingQuery(query)
	if ticker == "" {
		return Fail(filingSorry)
	}

	filing, passages, err := k.deps.Filings.Search(ctx, ticker, form, question)
	switch {
	case errors.Is(err, errors.ErrFilingNotFound), errors.Is(err, errors.ErrNotFound):
		return Fail(filingSorry)
	case err != nil:
		k.log.Warnw("Filing search failed", "ticker", ticker, "form", form, "error", err)
		return failure(err, fmt.Sprintf("Error searching %s filings for %s: %v", form, ticker, err))
	case len(passages) == 0:
		return Fail(filingSorry)
	}

	header := fmt.Sprintf("%s %s filed %s (accession %s)", filing.Company, filing.Form, filing.FilingDate, filing.AccessionNumber)
	return Ok(header + "\n\n" + strings.Join(passages, "\n\n"))
}

// ParseFilingQuery splits "TICKER|question". Without a separator the whole
// input is taken as the ticker and the question is left empty.
func ParseFilingQuery(query string) (ticker, question string) {
	ticker, question, _ = strings.Cut(query, "|")
	return strings.ToUpper(strings.TrimSpace(ticker)), strings.TrimSpace(question)
}

// Calculate evaluates an arithmetic expression.
func (k *Toolkit) Calculate(_ context.Context, operation string) Result {
	out, err := calculator.Evaluate(operation)
	switch {
	case errors.Is(err, calculator.ErrSyntax):
		return Fail("Error: Invalid syntax in mathematical expression")
	case err != nil:
		return Failf("Error: %v", err)
	}
	return Ok(out)
}

// CreateChart renders a bar chart into the working directory.
func (k *Toolkit) CreateChart(_ context.Context, metricName string, data []float64) Result {
	path, err := k.deps.Charts.BarChart(metricName, data)
	if err != nil {
		return Failf("Error creating chart: %v", err)
	}
	k.log.Debugw("Chart created", "metric", metricName, "points", len(data), "path", path)
	return Ok(path)
}

// WriteMarkdown replaces report.md with the given text. Anything other than
// a string is rejected and the file is left alone.
func (k *Toolkit) WriteMarkdown(_ context.Context, markdownText any) Result {
	text, ok := markdownText.(string)
	if !ok {
		return Failf("Error: Input must be a string, not %s. Please provide the markdown content as a string.", typeName(markdownText))
	}

	path := filepath.Join(k.deps.WorkDir, ReportFile)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return Failf("An error occurred while writing to the markdown file: %v", err)
	}
	return Ok("File written to " + ReportFile + ".")
}

// typeName names a decoded JSON value the way the model's tool schema
// vocabulary does.
func typeName(v any) string {
	var name string
	switch v.(type) {
	case nil:
		name = "NoneType"
	case bool:
		name = "bool"
	case float64, float32:
		name = "float"
	case int, int32, int64:
		name = "int"
	case []any:
		name = "list"
	case map[string]any:
		name = "dict"
	default:
		name = fmt.Sprintf("%T", v)
	}
	return "<class '" + name + "'>"
}
