package resultlog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockcrew/pkg/errors"
	"stockcrew/pkg/logger"
)

// TimestampLayout renders dd-mm-YYYY_HH-MM-SS.
const TimestampLayout = "02-01-2006_15-04-05"

// Record is the persisted shape of one finished run.
type Record struct {
	Company   string `json:"company"`
	Timestamp string `json:"timestamp"`
	Response  string `json:"response"`
}

// Writer stores run results as JSON files named after the subject.
type Writer struct {
	dir string
	now func() time.Time
	log *logger.Logger
}

// NewWriter writes into dir, which defaults to the working directory.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, now: time.Now, log: logger.Get().With("component", "result_log")}
}

// Log writes <subject>_<timestamp>.json and returns its path. Write errors
// are returned to the caller.
func (w *Writer) Log(subject, response string) (string, error) {
	ts := w.now().Format(TimestampLayout)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(Record{Company: subject, Timestamp: ts, Response: response}); err != nil {
		return "", errors.Wrap(err, "encode result record")
	}

	path := filepath.Join(w.dir, FileName(subject, ts))
	if err := os.WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"), 0o644); err != nil {
		return "", errors.Wrapf(err, "write result log %s", path)
	}

	w.log.Infof("Response logged to %s", path)
	return path, nil
}

// FileName builds the log file name. Path separators in the subject are
// replaced so the file always lands in the log directory.
func FileName(subject, timestamp string) string {
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(subject)
	return safe + "_" + timestamp + ".json"
}
