package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListHelpers(t *testing.T) {
	items := []string{"P/E Ratio", "Forward P/E"}

	assert.Equal(t, "- P/E Ratio\n- Forward P/E", Bullets(items))
	assert.Equal(t, "1. P/E Ratio\n2. Forward P/E", Numbered(items))
	assert.Empty(t, Bullets(nil))
}

func TestFuncMapTip(t *testing.T) {
	tip := FuncMap()["tip"].(func() string)
	assert.Equal(t, TipLine, tip())
}
