package optimizations

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
	"github.com/grafana/sqlengine/pkg/engine/internal/session"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

var (
	symA = plan.NewSymbol("a")
	symB = plan.NewSymbol("b")
	symC = plan.NewSymbol("c")
)

type fixture struct {
	types   map[plan.Symbol]types.Type
	symbols *plan.SymbolAllocator
	ids     *plan.IDAllocator
}

// newFixture returns allocators that know about symbols a, b, c and hand
// out node IDs starting at 100.
func newFixture() *fixture {
	known := map[plan.Symbol]types.Type{symA: types.Bigint, symB: types.Varchar, symC: types.Double}
	ids := plan.NewIDAllocator()
	for range 100 {
		ids.Next()
	}
	return &fixture{types: known, symbols: plan.NewSymbolAllocator(known), ids: ids}
}

func (f *fixture) optimize(root plan.Node, s *session.Session) (plan.Node, error) {
	return NewHashGeneration(true).Optimize(root, s, f.types, f.symbols, f.ids)
}

func scanAB() *plan.TableScan {
	return plan.NewTableScan("0", "t", []string{"a", "b"}, []plan.Symbol{symA, symB})
}

func enabled() *session.Session { return session.New("test", nil) }

// requireHashProjection checks that n projects all outputs of source and a
// hash of keys, and returns the hash symbol.
func requireHashProjection(t *testing.T, n plan.Node, source plan.Node, keys ...plan.Symbol) plan.Symbol {
	t.Helper()

	project, ok := n.(*plan.Project)
	require.True(t, ok, "expected Project, got %T", n)
	require.Same(t, source, project.Source)

	outputs := source.OutputSymbols()
	require.Len(t, project.Assignments, len(outputs)+1)
	for i, sym := range outputs {
		require.True(t, project.Assignments[i].IsIdentity())
		require.Equal(t, sym, project.Assignments[i].Symbol)
	}

	hash := project.Assignments[len(outputs)]
	require.Equal(t, HashExpression(keys).String(), hash.Expr.String())
	return hash.Symbol
}

func TestHashExpression(t *testing.T) {
	t.Run("folds keys in order", func(t *testing.T) {
		expr := HashExpression([]plan.Symbol{symA, symB})
		require.Equal(t, "combine_hash(combine_hash(0, $operator$hash_code(a)), $operator$hash_code(b))", expr.String())
	})

	t.Run("is order sensitive", func(t *testing.T) {
		ab := HashExpression([]plan.Symbol{symA, symB})
		ba := HashExpression([]plan.Symbol{symB, symA})
		require.NotEqual(t, ab.String(), ba.String())
	})
}

func TestHashProjection(t *testing.T) {
	ids := plan.NewIDAllocator()
	h := plan.NewSymbol("h")

	t.Run("passes through source outputs", func(t *testing.T) {
		scan := scanAB()
		project, err := HashProjection(ids, scan, h, []plan.Symbol{symB})
		require.NoError(t, err)
		require.Equal(t, []plan.Symbol{symA, symB, h}, project.OutputSymbols())
		requireHashProjection(t, project, scan, symB)
	})

	t.Run("empty keys", func(t *testing.T) {
		_, err := HashProjection(ids, scanAB(), h, nil)
		require.ErrorIs(t, err, errors.ErrPrecondition)
	})

	t.Run("nil arguments", func(t *testing.T) {
		_, err := HashProjection(nil, scanAB(), h, []plan.Symbol{symA})
		require.ErrorIs(t, err, errors.ErrPrecondition)

		_, err = HashProjection(ids, nil, h, []plan.Symbol{symA})
		require.ErrorIs(t, err, errors.ErrPrecondition)
	})
}

func TestHashGeneration_Disabled(t *testing.T) {
	root := plan.NewAggregation("1", scanAB(), []plan.Symbol{symA, symB})

	t.Run("by session", func(t *testing.T) {
		f := newFixture()
		s := session.New("test", map[string]string{session.OptimizeHashGeneration: "false"})
		out, err := f.optimize(root, s)
		require.NoError(t, err)
		require.Same(t, root, out)
	})

	t.Run("by default", func(t *testing.T) {
		f := newFixture()
		out, err := NewHashGeneration(false).Optimize(root, enabled(), f.types, f.symbols, f.ids)
		require.NoError(t, err)
		require.Same(t, root, out)
	})

	t.Run("session overrides default", func(t *testing.T) {
		f := newFixture()
		s := session.New("test", map[string]string{session.OptimizeHashGeneration: "true"})
		out, err := NewHashGeneration(false).Optimize(root, s, f.types, f.symbols, f.ids)
		require.NoError(t, err)
		require.NotSame(t, root, out)
	})

	t.Run("after an enabled run", func(t *testing.T) {
		f := newFixture()
		out, err := f.optimize(root, enabled())
		require.NoError(t, err)
		require.NotSame(t, root, out)

		s := session.New("test", map[string]string{session.OptimizeHashGeneration: "false"})
		out, err = f.optimize(root, s)
		require.NoError(t, err)
		require.Same(t, root, out)
	})
}

func TestHashGeneration_AllocatorKnowsMoreSymbols(t *testing.T) {
	f := newFixture()
	f.symbols.NewSymbol("x", types.Bigint)

	out, err := f.optimize(plan.NewAggregation("1", scanAB(), []plan.Symbol{symA}), enabled())
	require.NoError(t, err)
	agg, ok := out.(*plan.Aggregation)
	require.True(t, ok)
	require.NotNil(t, agg.HashSymbol)
}

func TestHashGeneration_Arguments(t *testing.T) {
	root := scanAB()

	tests := []struct {
		name string
		call func(f *fixture) error
	}{
		{"nil plan", func(f *fixture) error {
			_, err := NewHashGeneration(true).Optimize(nil, enabled(), f.types, f.symbols, f.ids)
			return err
		}},
		{"nil session", func(f *fixture) error {
			_, err := NewHashGeneration(true).Optimize(root, nil, f.types, f.symbols, f.ids)
			return err
		}},
		{"nil types", func(f *fixture) error {
			_, err := NewHashGeneration(true).Optimize(root, enabled(), nil, f.symbols, f.ids)
			return err
		}},
		{"nil symbol allocator", func(f *fixture) error {
			_, err := NewHashGeneration(true).Optimize(root, enabled(), f.types, nil, f.ids)
			return err
		}},
		{"nil id allocator", func(f *fixture) error {
			_, err := NewHashGeneration(true).Optimize(root, enabled(), f.types, f.symbols, nil)
			return err
		}},
		{"typed symbol unknown to the allocator", func(f *fixture) error {
			f.types[plan.NewSymbol("x")] = types.Bigint
			_, err := f.optimize(root, enabled())
			return err
		}},
		{"symbol with other type", func(f *fixture) error {
			f.types = map[plan.Symbol]types.Type{symA: types.Double, symB: types.Varchar, symC: types.Double}
			_, err := f.optimize(root, enabled())
			return err
		}},
		{"unparsable session property", func(f *fixture) error {
			s := session.New("test", map[string]string{session.OptimizeHashGeneration: "yes please"})
			_, err := f.optimize(root, s)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.call(newFixture()), errors.ErrPrecondition)
		})
	}
}

func TestHashGeneration_Aggregation(t *testing.T) {
	t.Run("group by adds hash projection", func(t *testing.T) {
		f := newFixture()
		scan := scanAB()
		root := plan.NewAggregation("1", scan, []plan.Symbol{symA, symB})

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)

		agg := out.(*plan.Aggregation)
		require.NotEqual(t, root.ID(), agg.ID())
		require.NotNil(t, agg.HashSymbol)
		require.Nil(t, root.HashSymbol, "input plan must not change")

		h := requireHashProjection(t, agg.Source, scan, symA, symB)
		require.Equal(t, h, *agg.HashSymbol)

		typ, ok := f.symbols.TypeOf(h)
		require.True(t, ok)
		require.Equal(t, types.Bigint, typ)

		expect := `Aggregation #101 group_by=(a, b) hash=$hashvalue
└── Project #100 outputs=(a, b, $hashvalue)
    │   └── Assignment $hashvalue=combine_hash(combine_hash(0, $operator$hash_code(a)), $operator$hash_code(b))
    └── TableScan #0 table=t outputs=(a, b)
`
		require.Equal(t, expect, plan.PrintAsTree(out))
	})

	t.Run("global aggregation keeps identity", func(t *testing.T) {
		f := newFixture()
		root := plan.NewAggregation("1", scanAB(), nil)

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)
		require.Same(t, root, out)
	})

	t.Run("global aggregation over changed source has no hash", func(t *testing.T) {
		f := newFixture()
		inner := plan.NewAggregation("1", scanAB(), []plan.Symbol{symA})
		root := plan.NewAggregation("2", inner, nil)

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)

		agg := out.(*plan.Aggregation)
		require.NotEqual(t, root.ID(), agg.ID())
		require.Nil(t, agg.HashSymbol)

		rewritten := agg.Source.(*plan.Aggregation)
		require.NotNil(t, rewritten.HashSymbol)
	})
}

func TestHashGeneration_PartitionedNodes(t *testing.T) {
	rn := plan.NewSymbol("rn")
	order := []plan.Ordering{{Symbol: symB, Order: plan.DESC}}

	tests := []struct {
		name string
		// build returns a node with the given source and partition keys.
		build func(source plan.Node, keys []plan.Symbol) plan.Node
		hash  func(plan.Node) *plan.Symbol
		// hashRef returns the address of the hash symbol field of a node.
		hashRef func(plan.Node) **plan.Symbol
		// keepsHash is set for nodes that keep their hash symbol when
		// rebuilt without partition keys.
		keepsHash bool
	}{
		{
			name: "window",
			build: func(source plan.Node, keys []plan.Symbol) plan.Node {
				return plan.NewWindow("1", source, keys, order)
			},
			hash:    func(n plan.Node) *plan.Symbol { return n.(*plan.Window).HashSymbol },
			hashRef: func(n plan.Node) **plan.Symbol { return &n.(*plan.Window).HashSymbol },
		},
		{
			name: "row number",
			build: func(source plan.Node, keys []plan.Symbol) plan.Node {
				return plan.NewRowNumber("1", source, keys, rn, 0)
			},
			hash:      func(n plan.Node) *plan.Symbol { return n.(*plan.RowNumber).HashSymbol },
			hashRef:   func(n plan.Node) **plan.Symbol { return &n.(*plan.RowNumber).HashSymbol },
			keepsHash: true,
		},
		{
			name: "top n row number",
			build: func(source plan.Node, keys []plan.Symbol) plan.Node {
				return plan.NewTopNRowNumber("1", source, keys, order, rn, 10, true)
			},
			hash:      func(n plan.Node) *plan.Symbol { return n.(*plan.TopNRowNumber).HashSymbol },
			hashRef:   func(n plan.Node) **plan.Symbol { return &n.(*plan.TopNRowNumber).HashSymbol },
			keepsHash: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Run("partitioned", func(t *testing.T) {
				f := newFixture()
				scan := scanAB()
				out, err := f.optimize(tt.build(scan, []plan.Symbol{symB, symA}), enabled())
				require.NoError(t, err)

				h := requireHashProjection(t, out.Sources()[0], scan, symB, symA)
				require.NotNil(t, tt.hash(out))
				require.Equal(t, h, *tt.hash(out))
			})

			t.Run("unpartitioned keeps identity", func(t *testing.T) {
				f := newFixture()
				root := tt.build(scanAB(), nil)
				out, err := f.optimize(root, enabled())
				require.NoError(t, err)
				require.Same(t, root, out)
			})

			t.Run("unpartitioned over changed source", func(t *testing.T) {
				f := newFixture()
				root := tt.build(plan.NewAggregation("2", scanAB(), []plan.Symbol{symA, symB}), nil)
				existing := f.symbols.NewHashSymbol()
				*tt.hashRef(root) = &existing

				out, err := f.optimize(root, enabled())
				require.NoError(t, err)
				require.NotEqual(t, root.ID(), out.ID())
				require.Equal(t, root.Type(), out.Type())
				if tt.keepsHash {
					require.Equal(t, &existing, tt.hash(out))
				} else {
					require.Nil(t, tt.hash(out))
				}
			})
		})
	}
}

func TestHashGeneration_Distinct(t *testing.T) {
	t.Run("distinct limit hashes all outputs", func(t *testing.T) {
		f := newFixture()
		scan := scanAB()
		root := plan.NewDistinctLimit("1", scan, 10)

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)

		dl := out.(*plan.DistinctLimit)
		h := requireHashProjection(t, dl.Source, scan, symA, symB)
		require.Equal(t, h, *dl.HashSymbol)
		require.Equal(t, []plan.Symbol{symA, symB}, dl.OutputSymbols())
	})

	t.Run("mark distinct hashes distinct symbols", func(t *testing.T) {
		f := newFixture()
		scan := scanAB()
		marker := f.symbols.NewSymbol("marker", types.Boolean)
		f.types[marker] = types.Boolean
		root := plan.NewMarkDistinct("1", scan, marker, []plan.Symbol{symB})

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)

		md := out.(*plan.MarkDistinct)
		h := requireHashProjection(t, md.Source, scan, symB)
		require.Equal(t, h, *md.HashSymbol)
	})

	t.Run("mark distinct without symbols keeps identity", func(t *testing.T) {
		f := newFixture()
		root := plan.NewMarkDistinct("1", scanAB(), plan.NewSymbol("marker"), nil)

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)
		require.Same(t, root, out)
	})
}

func TestHashGeneration_Joins(t *testing.T) {
	t.Run("join hashes each side", func(t *testing.T) {
		f := newFixture()
		left := scanAB()
		right := plan.NewTableScan("1", "u", []string{"a"}, []plan.Symbol{symA})
		root := plan.NewJoin("2", plan.JoinTypeInner, left, right, plan.EquiJoinClause{Left: symA, Right: symA})

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)

		join := out.(*plan.Join)
		leftHash := requireHashProjection(t, join.Left, left, symA)
		rightHash := requireHashProjection(t, join.Right, right, symA)
		require.NotEqual(t, leftHash, rightHash)
		require.Equal(t, leftHash, *join.LeftHashSymbol)
		require.Equal(t, rightHash, *join.RightHashSymbol)
		require.Equal(t, root.Criteria, join.Criteria)
	})

	t.Run("cross join keeps identity", func(t *testing.T) {
		f := newFixture()
		root := plan.NewJoin("2", plan.JoinTypeInner, scanAB(), plan.NewTableScan("1", "u", []string{"c"}, []plan.Symbol{symC}))

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)
		require.Same(t, root, out)
	})

	t.Run("semi join hashes each side", func(t *testing.T) {
		f := newFixture()
		source := scanAB()
		filtering := plan.NewTableScan("1", "u", []string{"c"}, []plan.Symbol{symC})
		match := f.symbols.NewSymbol("match", types.Boolean)
		f.types[match] = types.Boolean
		root := plan.NewSemiJoin("2", source, filtering, symA, symC, match)

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)

		semi := out.(*plan.SemiJoin)
		sourceHash := requireHashProjection(t, semi.Source, source, symA)
		filteringHash := requireHashProjection(t, semi.FilteringSource, filtering, symC)
		require.NotEqual(t, sourceHash, filteringHash)
		require.Equal(t, sourceHash, *semi.SourceHashSymbol)
		require.Equal(t, filteringHash, *semi.FilteringSourceHashSymbol)
	})

	t.Run("index join hashes each side", func(t *testing.T) {
		f := newFixture()
		probe := scanAB()
		index := plan.NewTableScan("1", "u", []string{"c"}, []plan.Symbol{symC})
		root := plan.NewIndexJoin("2", plan.JoinTypeLeft, probe, index, plan.IndexJoinClause{Probe: symB, Index: symC})

		out, err := f.optimize(root, enabled())
		require.NoError(t, err)

		join := out.(*plan.IndexJoin)
		probeHash := requireHashProjection(t, join.Probe, probe, symB)
		indexHash := requireHashProjection(t, join.Index, index, symC)
		require.NotEqual(t, probeHash, indexHash)
		require.Equal(t, probeHash, *join.ProbeHashSymbol)
		require.Equal(t, indexHash, *join.IndexHashSymbol)
	})
}

func TestHashGeneration_UnkeyedNodes(t *testing.T) {
	f := newFixture()
	scan := scanAB()
	filter := plan.NewFilter("1", scan, symA.Ref())
	root := plan.NewLimit("2", plan.NewProject("3", filter,
		plan.Assignment{Symbol: symA, Expr: symA.Ref()},
	), 10)

	out, err := f.optimize(root, enabled())
	require.NoError(t, err)
	require.Same(t, root, out)
}

func TestHashGeneration_NestedKeysAreHashedPerSite(t *testing.T) {
	f := newFixture()
	scan := scanAB()
	inner := plan.NewAggregation("1", scan, []plan.Symbol{symA, symB})
	root := plan.NewLimit("3", plan.NewAggregation("2", inner, []plan.Symbol{symA}), 5)

	out, err := f.optimize(root, enabled())
	require.NoError(t, err)

	limit := out.(*plan.Limit)
	require.NotEqual(t, root.ID(), limit.ID())

	outer := limit.Source.(*plan.Aggregation)
	innerProject := outer.Source.(*plan.Project)
	rewrittenInner := innerProject.Source.(*plan.Aggregation)

	require.NotEqual(t, *outer.HashSymbol, *rewrittenInner.HashSymbol)
	requireHashProjection(t, rewrittenInner.Source, scan, symA, symB)
	requireHashProjection(t, innerProject, rewrittenInner, symA)
}
