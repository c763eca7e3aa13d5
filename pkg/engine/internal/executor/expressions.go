package executor

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/grafana/sqlengine/pkg/engine/internal/datatype"
	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// expressionEvaluator evaluates scalar expressions over the rows of a page.
// Columns of a page are named after the symbols they hold.
type expressionEvaluator struct {
	alloc     memory.Allocator
	functions *functionRegistry
}

func newExpressionEvaluator(alloc memory.Allocator) *expressionEvaluator {
	return &expressionEvaluator{alloc: alloc, functions: scalarFunctions}
}

// eval evaluates expr for every row of input. The caller must release the
// returned array.
func (e *expressionEvaluator) eval(expr plan.Expression, input Page) (arrow.Array, error) {
	switch expr := expr.(type) {
	case *plan.SymbolRef:
		indices := input.Schema().FieldIndices(expr.Symbol.Name)
		if len(indices) == 0 {
			return nil, errors.Preconditionf("symbol %s is not a column of the input", expr.Symbol)
		}
		arr := input.Column(indices[0])
		arr.Retain()
		return arr, nil

	case *plan.LongLiteral:
		builder := array.NewInt64Builder(e.alloc)
		defer builder.Release()
		builder.Reserve(int(input.NumRows()))
		for range input.NumRows() {
			builder.Append(expr.Value)
		}
		return builder.NewArray(), nil

	case *plan.StringLiteral:
		builder := array.NewStringBuilder(e.alloc)
		defer builder.Release()
		builder.Reserve(int(input.NumRows()))
		for range input.NumRows() {
			builder.Append(expr.Value)
		}
		return builder.NewArray(), nil

	case *plan.FunctionCall:
		fn, err := e.functions.lookup(expr.Name, len(expr.Args))
		if err != nil {
			return nil, err
		}

		args := make([]arrow.Array, 0, len(expr.Args))
		defer func() {
			for _, arg := range args {
				arg.Release()
			}
		}()
		for _, argExpr := range expr.Args {
			arg, err := e.eval(argExpr, input)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return fn.evaluate(e.alloc, args)

	case *plan.Comparison:
		return e.evalComparison(expr, input)
	}

	return nil, errors.NotImplementedf("evaluation of expression %s (%T)", expr, expr)
}

// resultField returns the field of the column computed by expr for inputs
// of the given schema.
func (e *expressionEvaluator) resultField(name string, expr plan.Expression, input *arrow.Schema) (arrow.Field, error) {
	switch expr := expr.(type) {
	case *plan.SymbolRef:
		indices := input.FieldIndices(expr.Symbol.Name)
		if len(indices) == 0 {
			return arrow.Field{}, errors.Preconditionf("symbol %s is not a column of the input", expr.Symbol)
		}
		field := input.Field(indices[0])
		field.Name = name
		return field, nil
	case *plan.LongLiteral:
		return datatype.Field(name, bigint), nil
	case *plan.StringLiteral:
		return datatype.Field(name, varchar), nil
	case *plan.FunctionCall:
		fn, err := e.functions.lookup(expr.Name, len(expr.Args))
		if err != nil {
			return arrow.Field{}, err
		}
		return datatype.Field(name, fn.returnType), nil
	case *plan.Comparison:
		return datatype.Field(name, types.Boolean), nil
	}
	return arrow.Field{}, errors.NotImplementedf("evaluation of expression %s (%T)", expr, expr)
}
