package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// Expression is the common interface for scalar expressions stored in plan
// nodes. Expressions are evaluated by the executor; the planner only builds
// them.
type Expression interface {
	fmt.Stringer
	isExpr()
}

// SymbolRef is an expression that yields the value of a symbol.
type SymbolRef struct {
	Symbol Symbol
}

func (*SymbolRef) isExpr() {}

// String returns the name of the referenced symbol.
func (e *SymbolRef) String() string { return e.Symbol.Name }

// LongLiteral is a bigint constant.
type LongLiteral struct {
	Value int64
}

func (*LongLiteral) isExpr() {}

func (e *LongLiteral) String() string { return strconv.FormatInt(e.Value, 10) }

// StringLiteral is a varchar constant.
type StringLiteral struct {
	Value string
}

func (*StringLiteral) isExpr() {}

func (e *StringLiteral) String() string { return strconv.Quote(e.Value) }

// FunctionCall invokes the scalar function Name on Args.
type FunctionCall struct {
	Name string
	Args []Expression
}

func (*FunctionCall) isExpr() {}

func (e *FunctionCall) String() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
}

// Comparison applies a binary comparison or logical operator.
type Comparison struct {
	Op          types.BinaryOp
	Left, Right Expression
}

func (*Comparison) isExpr() {}

func (e *Comparison) String() string {
	return fmt.Sprintf("%s(%s, %s)", e.Op, e.Left, e.Right)
}

// Assignment binds the result of an expression to a symbol.
type Assignment struct {
	Symbol Symbol
	Expr   Expression
}

// String returns the assignment in the form `symbol := expr`.
func (a Assignment) String() string {
	return fmt.Sprintf("%s := %s", a.Symbol, a.Expr)
}

// IsIdentity reports whether a passes its own symbol through unchanged.
func (a Assignment) IsIdentity() bool {
	ref, ok := a.Expr.(*SymbolRef)
	return ok && ref.Symbol == a.Symbol
}
