package plandesc

import (
	"strings"
	"testing"

	"github.com/grafana/dskit/flagext"
	"github.com/stretchr/testify/require"

	"github.com/grafana/sqlengine/pkg/engine"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
	"github.com/grafana/sqlengine/pkg/engine/internal/session"
)

const aggregationPlan = `
symbols:
  a: bigint
  b: varchar
  cnt: bigint
plan:
  type: aggregation
  keys: [a, b]
  functions:
    - {symbol: cnt, function: count, args: [a]}
  sources:
    - {type: table_scan, table: orders, columns: [a, b], outputs: [a, b]}
`

func newEngine(t *testing.T) *engine.Engine {
	var cfg engine.Config
	flagext.DefaultValues(&cfg)
	e, err := engine.New(engine.Params{Config: cfg})
	require.NoError(t, err)
	return e
}

func TestDecode(t *testing.T) {
	p, err := Decode(strings.NewReader(aggregationPlan))
	require.NoError(t, err)

	expected := `Aggregation #1 group_by=(a, b)
│   └── Aggregate cnt=count(a)
└── TableScan #0 table=orders outputs=(a, b)
`
	require.Equal(t, expected, p.String())
	require.Len(t, p.SymbolTypes, 3)
}

func TestDecode_Joins(t *testing.T) {
	in := `
symbols: {l: bigint, r: bigint, m: boolean}
plan:
  type: semi_join
  criteria: [{left: l, right: r}]
  output: m
  sources:
    - type: join
      join_type: left
      criteria: [{left: l, right: r}]
      sources:
        - {type: values, outputs: [l]}
        - {type: values, outputs: [r]}
    - {type: values, outputs: [r]}
`
	p, err := Decode(strings.NewReader(in))
	require.NoError(t, err)

	semi, ok := p.Root.(*plan.SemiJoin)
	require.True(t, ok)
	require.Equal(t, plan.NodeID("4"), semi.ID())

	join, ok := semi.Source.(*plan.Join)
	require.True(t, ok)
	require.Equal(t, plan.JoinTypeLeft, join.JoinType)
	require.Equal(t, []plan.EquiJoinClause{{Left: plan.NewSymbol("l"), Right: plan.NewSymbol("r")}}, join.Criteria)
}

func TestDecode_Errors(t *testing.T) {
	tests := map[string]string{
		"undeclared symbol": `
plan: {type: table_scan, table: t, columns: [a], outputs: [a]}`,
		"unknown node type": `
plan: {type: sort}`,
		"missing source": `
symbols: {a: bigint}
plan: {type: aggregation, keys: [a]}`,
		"unknown type": `
symbols: {a: int}
plan: {type: values, outputs: [a]}`,
		"unknown join type": `
symbols: {a: bigint}
plan:
  type: join
  join_type: outer
  sources: [{type: values, outputs: [a]}, {type: values, outputs: [a]}]`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(in))
			require.Error(t, err)
		})
	}
}

func TestPlan_Optimize(t *testing.T) {
	e := newEngine(t)

	p, err := Decode(strings.NewReader(aggregationPlan))
	require.NoError(t, err)

	optimized, err := p.Optimize(e, "test", nil)
	require.NoError(t, err)
	require.True(t, p.Changed(optimized))

	expected := `Aggregation #3 group_by=(a, b) hash=$hashvalue
│   └── Aggregate cnt=count(a)
└── Project #2 outputs=(a, b, $hashvalue)
    │   └── Assignment $hashvalue=combine_hash(combine_hash(0, $operator$hash_code(a)), $operator$hash_code(b))
    └── TableScan #0 table=orders outputs=(a, b)
`
	require.Equal(t, expected, optimized.String())
	require.Contains(t, optimized.SymbolTypes, plan.NewSymbol("$hashvalue"))

	disabled, err := p.Optimize(e, "test", map[string]string{session.OptimizeHashGeneration: "false"})
	require.NoError(t, err)
	require.False(t, p.Changed(disabled))
}
