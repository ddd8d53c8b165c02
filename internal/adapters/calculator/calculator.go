package calculator

import (
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"stockcrew/pkg/errors"
)

// ErrSyntax marks an expression that does not parse
var ErrSyntax = errors.New("invalid syntax in mathematical expression")

// Evaluate computes an arithmetic expression such as "200*7" or "5000/2*10"
// and formats the result. Only numbers, operators and parentheses are accepted.
func Evaluate(operation string) (string, error) {
	operation = strings.TrimSpace(operation)
	if operation == "" {
		return "", ErrSyntax
	}

	program, err := compile(operation)
	if err != nil {
		return "", errors.Wrap(ErrSyntax, err.Error())
	}

	out, err := expr.Run(program, map[string]any{})
	if err != nil {
		return "", errors.Wrap(err, "evaluate expression")
	}

	return format(out)
}

// compile evaluates integer literals as floats so large products lose
// precision instead of wrapping around int64. Expressions that only type
// check over integers, such as modulo, keep integer literals.
func compile(operation string) (*vm.Program, error) {
	opts := []expr.Option{expr.Env(map[string]any{}), expr.DisableAllBuiltins()}
	program, err := expr.Compile(operation, append(opts, expr.Patch(floatLiterals{}))...)
	if err == nil {
		return program, nil
	}
	return expr.Compile(operation, opts...)
}

type floatLiterals struct{}

func (floatLiterals) Visit(node *ast.Node) {
	if n, ok := (*node).(*ast.IntegerNode); ok {
		ast.Patch(node, &ast.FloatNode{Value: float64(n.Value)})
	}
}

func format(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return "", errors.Wrap(errors.ErrInvalidInput, "division by zero")
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case bool:
		if n {
			return "True", nil
		}
		return "False", nil
	default:
		return "", errors.Wrapf(ErrSyntax, "expression is not numeric (%T)", v)
	}
}
