package executor

import (
	"cmp"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// evalComparison evaluates a comparison or logical operator. The result is
// null wherever an operand is null, except where AND and OR are decided by
// the other operand.
func (e *expressionEvaluator) evalComparison(expr *plan.Comparison, input Page) (arrow.Array, error) {
	left, err := e.eval(expr.Left, input)
	if err != nil {
		return nil, err
	}
	defer left.Release()

	right, err := e.eval(expr.Right, input)
	if err != nil {
		return nil, err
	}
	defer right.Release()

	switch expr.Op {
	case types.BinaryOpAnd, types.BinaryOpOr:
		l, lok := left.(*array.Boolean)
		r, rok := right.(*array.Boolean)
		if !lok || !rok {
			return nil, errors.Preconditionf("%s expects boolean operands, got %s and %s", expr.Op, left.DataType(), right.DataType())
		}
		return evalLogical(e.alloc, expr.Op, l, r), nil
	}

	switch l := left.(type) {
	case *array.Int64:
		if r, ok := right.(*array.Int64); ok {
			return compareArrays[int64](e.alloc, expr.Op, l, r)
		}
	case *array.Float64:
		if r, ok := right.(*array.Float64); ok {
			return compareArrays[float64](e.alloc, expr.Op, l, r)
		}
	case *array.String:
		if r, ok := right.(*array.String); ok {
			return compareArrays[string](e.alloc, expr.Op, l, r)
		}
	case *array.Boolean:
		if r, ok := right.(*array.Boolean); ok {
			return compareBooleans(e.alloc, expr.Op, l, r)
		}
	}
	return nil, errors.Preconditionf("can not compare %s with %s", left.DataType(), right.DataType())
}

type valueArray[T any] interface {
	arrow.Array
	Value(i int) T
}

func compareArrays[T cmp.Ordered, A valueArray[T]](alloc memory.Allocator, op types.BinaryOp, left, right A) (arrow.Array, error) {
	builder := array.NewBooleanBuilder(alloc)
	defer builder.Release()
	builder.Reserve(left.Len())

	for i := range left.Len() {
		if left.IsNull(i) || right.IsNull(i) {
			builder.AppendNull()
			continue
		}
		res, err := compareResult(op, cmp.Compare(left.Value(i), right.Value(i)))
		if err != nil {
			return nil, err
		}
		builder.Append(res)
	}
	return builder.NewArray(), nil
}

func compareBooleans(alloc memory.Allocator, op types.BinaryOp, left, right *array.Boolean) (arrow.Array, error) {
	if op != types.BinaryOpEq && op != types.BinaryOpNeq {
		return nil, errors.Preconditionf("%s is not defined for booleans", op)
	}

	builder := array.NewBooleanBuilder(alloc)
	defer builder.Release()
	builder.Reserve(left.Len())

	for i := range left.Len() {
		if left.IsNull(i) || right.IsNull(i) {
			builder.AppendNull()
			continue
		}
		equal := left.Value(i) == right.Value(i)
		builder.Append(equal == (op == types.BinaryOpEq))
	}
	return builder.NewArray(), nil
}

// compareResult maps the result of [cmp.Compare] to the result of op.
func compareResult(op types.BinaryOp, c int) (bool, error) {
	switch op {
	case types.BinaryOpEq:
		return c == 0, nil
	case types.BinaryOpNeq:
		return c != 0, nil
	case types.BinaryOpGt:
		return c > 0, nil
	case types.BinaryOpGte:
		return c >= 0, nil
	case types.BinaryOpLt:
		return c < 0, nil
	case types.BinaryOpLte:
		return c <= 0, nil
	default:
		return false, errors.NotImplementedf("comparison %s", op)
	}
}

func evalLogical(alloc memory.Allocator, op types.BinaryOp, left, right *array.Boolean) arrow.Array {
	builder := array.NewBooleanBuilder(alloc)
	defer builder.Release()
	builder.Reserve(left.Len())

	// decisive is the operand value deciding the result on its own.
	decisive := op == types.BinaryOpOr

	for i := range left.Len() {
		lnull, rnull := left.IsNull(i), right.IsNull(i)
		switch {
		case !lnull && left.Value(i) == decisive, !rnull && right.Value(i) == decisive:
			builder.Append(decisive)
		case lnull || rnull:
			builder.AppendNull()
		default:
			builder.Append(!decisive)
		}
	}
	return builder.NewArray()
}
