package resultlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLog(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.now = func() time.Time { return time.Date(2024, 7, 9, 14, 5, 3, 0, time.UTC) }

	path, err := w.Log("Apple", "Buy <strong> & hold")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Apple_09-07-2024_14-05-03.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{
    "company": "Apple",
    "timestamp": "09-07-2024_14-05-03",
    "response": "Buy <strong> & hold"
}`, string(raw))
}

func TestWriterLogError(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "missing", "dir"))
	_, err := w.Log("Apple", "x")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "AT_T_01-01-2024_00-00-00.json", FileName("AT/T", "01-01-2024_00-00-00"))
}
