package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/pkg/errors"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		op   string
		want string
	}{
		{op: "200*7", want: "1400"},
		{op: "5000/2*10", want: "25000"},
		{op: "7/2", want: "3.5"},
		{op: "(1.5 + 2.5) * 3", want: "12"},
		{op: "2**10", want: "1024"},
		{op: "10 % 3", want: "1"},
		{op: "-4 + 1", want: "-3"},
		{op: "3000000000000 * 15000000", want: "45000000000000000000"},
		{op: "9223372036854775807 + 1", want: "9223372036854776000"},
		{op: "1000000 * 1000000 * 1000000 * 1000", want: "1000000000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, err := Evaluate(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateSyntaxErrors(t *testing.T) {
	for _, op := range []string{"", "2 +", "revenue * 2", `"a" + "b"`} {
		t.Run(op, func(t *testing.T) {
			_, err := Evaluate(op)
			assert.True(t, errors.Is(err, ErrSyntax), "got %v", err)
		})
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	_, err := Evaluate("1/0")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSyntax))
}
