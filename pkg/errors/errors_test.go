package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
		assert.NoError(t, Wrapf(nil, "context %d", 1))
	})

	t.Run("keeps chain", func(t *testing.T) {
		err := Wrapf(ErrNoHistoricalData, "symbol %s", "AAPL")
		require.Error(t, err)
		assert.True(t, Is(err, ErrNoHistoricalData))
		assert.Equal(t, "symbol AAPL: no historical data", err.Error())
	})
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.NoError(t, m.ToError())

	m.Add(nil)
	assert.False(t, m.HasErrors())

	m.Add(ErrTimeout)
	m.Add(Wrap(ErrUnavailable, "redis"))

	err := m.ToError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple errors (2)")
	assert.True(t, Is(err, ErrUnavailable))
}

func TestDomainError(t *testing.T) {
	err := NewDomainError("STAGE_FAILED", "research failed", ErrTimeout)
	assert.Equal(t, "STAGE_FAILED: research failed: operation timeout", err.Error())
	assert.True(t, Is(err, ErrTimeout))

	var de *DomainError
	require.True(t, As(Wrap(err, "run"), &de))
	assert.Equal(t, "STAGE_FAILED", de.Code)
}
