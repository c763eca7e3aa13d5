package optimizations

import (
	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/rewrite"
	"github.com/grafana/sqlengine/pkg/engine/internal/session"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// HashGeneration precomputes the hash of the grouping, partitioning and join
// keys of a plan. Every node keyed by a non-empty list of symbols gets a
// [HashProjection] on top of its source, and refers to the computed hash
// through its hash symbol.
//
// Sides of a join are separate pipelines: each side gets its own hash
// symbol, even if both sides use the same keys.
type HashGeneration struct {
	defaultEnabled bool
}

var _ Optimizer = (*HashGeneration)(nil)

// NewHashGeneration creates a HashGeneration optimizer. defaultEnabled
// applies to sessions that do not set [session.OptimizeHashGeneration].
func NewHashGeneration(defaultEnabled bool) *HashGeneration {
	return &HashGeneration{defaultEnabled: defaultEnabled}
}

// Name implements Optimizer.
func (*HashGeneration) Name() string { return "hash_generation" }

// Optimize implements Optimizer. It returns root itself when hash
// generation is disabled for s.
func (o *HashGeneration) Optimize(root plan.Node, s *session.Session, symbolTypes map[plan.Symbol]types.Type, symbols *plan.SymbolAllocator, ids *plan.IDAllocator) (plan.Node, error) {
	if err := checkArguments(root, s, symbolTypes, symbols, ids); err != nil {
		return nil, err
	}

	enabled, err := session.IsOptimizeHashGenerationEnabled(s, o.defaultEnabled)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return root, nil
	}
	if err := checkSymbolTypes(symbolTypes, symbols); err != nil {
		return nil, err
	}

	rules := &hashRules{
		Defaults: rewrite.Defaults[struct{}]{IDs: ids},
		symbols:  symbols,
	}
	out, _, err := rewrite.Rewrite[struct{}](rules, root, struct{}{})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func checkArguments(root plan.Node, s *session.Session, symbolTypes map[plan.Symbol]types.Type, symbols *plan.SymbolAllocator, ids *plan.IDAllocator) error {
	for _, check := range []struct {
		ok  bool
		arg string
	}{
		{root != nil, "plan"},
		{s != nil, "session"},
		{symbolTypes != nil, "types"},
		{symbols != nil, "symbol allocator"},
		{ids != nil, "id allocator"},
	} {
		if err := errors.CheckNotNil(check.ok, check.arg); err != nil {
			return err
		}
	}
	return nil
}

// checkSymbolTypes verifies that every typed symbol of the caller is known
// to the symbol allocator with the same type. The allocator may know more
// symbols, such as hash symbols allocated by earlier runs.
func checkSymbolTypes(symbolTypes map[plan.Symbol]types.Type, symbols *plan.SymbolAllocator) error {
	for sym, known := range symbolTypes {
		allocated, ok := symbols.TypeOf(sym)
		if !ok {
			return errors.Preconditionf("symbol %s is unknown to the symbol allocator", sym)
		}
		if known != allocated {
			return errors.Preconditionf("symbol %s has type %s, but the symbol allocator has %s", sym, known, allocated)
		}
	}
	return nil
}

type hashRules struct {
	rewrite.Defaults[struct{}]
	symbols *plan.SymbolAllocator
}

type hashInput = rewrite.Input[struct{}]

// hashed allocates a new hash symbol for keys and projects it on top of
// source.
func (r *hashRules) hashed(source plan.Node, keys []plan.Symbol) (plan.Node, *plan.Symbol, error) {
	hash := r.symbols.NewHashSymbol()
	project, err := HashProjection(r.IDs, source, hash, keys)
	if err != nil {
		return nil, nil, err
	}
	return project, &hash, nil
}

func (r *hashRules) Aggregation(n *plan.Aggregation, in hashInput) (plan.Node, rewrite.TreeIdentity, error) {
	if len(n.GroupBy) == 0 {
		if in.Changed == rewrite.SameTree {
			return n, rewrite.SameTree, nil
		}
		out := plan.Rebuild(n, r.IDs.Next(), in.Sources...)
		out.HashSymbol = nil
		return out, rewrite.NewTree, nil
	}

	source, hash, err := r.hashed(in.Sources[0], n.GroupBy)
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	out := plan.Rebuild(n, r.IDs.Next(), source)
	out.HashSymbol = hash
	return out, rewrite.NewTree, nil
}

func (r *hashRules) DistinctLimit(n *plan.DistinctLimit, in hashInput) (plan.Node, rewrite.TreeIdentity, error) {
	keys := n.OutputSymbols()
	if len(keys) == 0 {
		return r.Default(n, in)
	}

	source, hash, err := r.hashed(in.Sources[0], keys)
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	out := plan.Rebuild(n, r.IDs.Next(), source)
	out.HashSymbol = hash
	return out, rewrite.NewTree, nil
}

func (r *hashRules) MarkDistinct(n *plan.MarkDistinct, in hashInput) (plan.Node, rewrite.TreeIdentity, error) {
	if len(n.DistinctSymbols) == 0 {
		return r.Default(n, in)
	}

	source, hash, err := r.hashed(in.Sources[0], n.DistinctSymbols)
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	out := plan.Rebuild(n, r.IDs.Next(), source)
	out.HashSymbol = hash
	return out, rewrite.NewTree, nil
}

func (r *hashRules) RowNumber(n *plan.RowNumber, in hashInput) (plan.Node, rewrite.TreeIdentity, error) {
	// Unpartitioned row numbering keeps the hash symbol it already has.
	if len(n.PartitionBy) == 0 {
		return r.Default(n, in)
	}

	source, hash, err := r.hashed(in.Sources[0], n.PartitionBy)
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	out := plan.Rebuild(n, r.IDs.Next(), source)
	out.HashSymbol = hash
	return out, rewrite.NewTree, nil
}

func (r *hashRules) TopNRowNumber(n *plan.TopNRowNumber, in hashInput) (plan.Node, rewrite.TreeIdentity, error) {
	// Unpartitioned row numbering keeps the hash symbol it already has.
	if len(n.PartitionBy) == 0 {
		return r.Default(n, in)
	}

	source, hash, err := r.hashed(in.Sources[0], n.PartitionBy)
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	out := plan.Rebuild(n, r.IDs.Next(), source)
	out.HashSymbol = hash
	return out, rewrite.NewTree, nil
}

func (r *hashRules) Window(n *plan.Window, in hashInput) (plan.Node, rewrite.TreeIdentity, error) {
	if len(n.PartitionBy) == 0 {
		if in.Changed == rewrite.SameTree {
			return n, rewrite.SameTree, nil
		}
		out := plan.Rebuild(n, r.IDs.Next(), in.Sources...)
		out.HashSymbol = nil
		return out, rewrite.NewTree, nil
	}

	source, hash, err := r.hashed(in.Sources[0], n.PartitionBy)
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	out := plan.Rebuild(n, r.IDs.Next(), source)
	out.HashSymbol = hash
	return out, rewrite.NewTree, nil
}

func (r *hashRules) Join(n *plan.Join, in hashInput) (plan.Node, rewrite.TreeIdentity, error) {
	if len(n.Criteria) == 0 {
		return r.Default(n, in)
	}

	left, leftHash, err := r.hashed(in.Sources[0], n.LeftKeys())
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	right, rightHash, err := r.hashed(in.Sources[1], n.RightKeys())
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	out := plan.Rebuild(n, r.IDs.Next(), left, right)
	out.LeftHashSymbol, out.RightHashSymbol = leftHash, rightHash
	return out, rewrite.NewTree, nil
}

func (r *hashRules) SemiJoin(n *plan.SemiJoin, in hashInput) (plan.Node, rewrite.TreeIdentity, error) {
	source, sourceHash, err := r.hashed(in.Sources[0], []plan.Symbol{n.SourceJoinSymbol})
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	filtering, filteringHash, err := r.hashed(in.Sources[1], []plan.Symbol{n.FilteringSourceJoinSymbol})
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	out := plan.Rebuild(n, r.IDs.Next(), source, filtering)
	out.SourceHashSymbol, out.FilteringSourceHashSymbol = sourceHash, filteringHash
	return out, rewrite.NewTree, nil
}

func (r *hashRules) IndexJoin(n *plan.IndexJoin, in hashInput) (plan.Node, rewrite.TreeIdentity, error) {
	if len(n.Criteria) == 0 {
		return r.Default(n, in)
	}

	probe, probeHash, err := r.hashed(in.Sources[0], n.ProbeKeys())
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	index, indexHash, err := r.hashed(in.Sources[1], n.IndexKeys())
	if err != nil {
		return nil, rewrite.SameTree, err
	}
	out := plan.Rebuild(n, r.IDs.Next(), probe, index)
	out.ProbeHashSymbol, out.IndexHashSymbol = probeHash, indexHash
	return out, rewrite.NewTree, nil
}
