package optimizations

import (
	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

const (
	// InitialHashValue seeds the fold of [HashExpression].
	InitialHashValue int64 = 0

	// HashCodeFunction is the name of the scalar function returning the hash
	// of a single value.
	HashCodeFunction = "$operator$hash_code"

	// CombineHashFunction is the name of the scalar function that folds the
	// hash of a value into a running hash.
	CombineHashFunction = "combine_hash"
)

// HashExpression returns an expression computing the combined hash of keys.
// The hashes are folded in the order of keys, starting from
// [InitialHashValue]:
//
//	combine_hash(combine_hash(0, hash_code(k1)), hash_code(k2))
//
// Permuting keys yields a different expression.
func HashExpression(keys []plan.Symbol) plan.Expression {
	var result plan.Expression = &plan.LongLiteral{Value: InitialHashValue}
	for _, key := range keys {
		hash := &plan.FunctionCall{Name: HashCodeFunction, Args: []plan.Expression{key.Ref()}}
		result = &plan.FunctionCall{Name: CombineHashFunction, Args: []plan.Expression{result, hash}}
	}
	return result
}

// HashProjection returns a Project on top of source that outputs every
// output symbol of source unchanged, followed by hashSymbol bound to the
// [HashExpression] of keys. keys must not be empty.
func HashProjection(ids *plan.IDAllocator, source plan.Node, hashSymbol plan.Symbol, keys []plan.Symbol) (*plan.Project, error) {
	if err := errors.CheckNotNil(ids != nil, "id allocator"); err != nil {
		return nil, err
	}
	if err := errors.CheckNotNil(source != nil, "source"); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.Preconditionf("hash projection of %s requires at least one key", hashSymbol)
	}

	outputs := source.OutputSymbols()
	assignments := make([]plan.Assignment, 0, len(outputs)+1)
	for _, sym := range outputs {
		assignments = append(assignments, plan.Assignment{Symbol: sym, Expr: sym.Ref()})
	}
	assignments = append(assignments, plan.Assignment{Symbol: hashSymbol, Expr: HashExpression(keys)})

	return plan.NewProject(ids.Next(), source, assignments...), nil
}
