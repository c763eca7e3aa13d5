// Package plandesc decodes plans described in YAML, for tooling and tests
// working with hand-written plans.
package plandesc

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/grafana/sqlengine/pkg/engine"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
	"github.com/grafana/sqlengine/pkg/engine/internal/session"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// description is a plan written in YAML:
//
//	symbols:
//	  a: bigint
//	  b: varchar
//	plan:
//	  type: aggregation
//	  keys: [a]
//	  functions:
//	    - {symbol: cnt, function: count, args: [b]}
//	  sources:
//	    - {type: table_scan, table: t, columns: [a, b], outputs: [a, b]}
//
// Symbols produced by functions and markers must be declared as well.
type description struct {
	Symbols map[string]types.Type `yaml:"symbols"`
	Plan    nodeDescription       `yaml:"plan"`
}

type nodeDescription struct {
	Type    string            `yaml:"type"`
	Sources []nodeDescription `yaml:"sources"`

	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
	Outputs []string `yaml:"outputs"`

	// Keys are the grouping, partitioning or distinct symbols of the node.
	Keys      []string              `yaml:"keys"`
	OrderBy   []orderingDescription `yaml:"order_by"`
	Functions []functionDescription `yaml:"functions"`
	// Output is the marker, row number or semi join output symbol.
	Output  string `yaml:"output"`
	Limit   int64  `yaml:"limit"`
	Partial bool   `yaml:"partial"`

	JoinType string                 `yaml:"join_type"`
	Criteria []criterionDescription `yaml:"criteria"`
}

type orderingDescription struct {
	Symbol     string `yaml:"symbol"`
	Descending bool   `yaml:"descending"`
}

type functionDescription struct {
	Symbol   string   `yaml:"symbol"`
	Function string   `yaml:"function"`
	Args     []string `yaml:"args"`
}

type criterionDescription struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// Plan is a plan built from a description, along with the allocators to
// use for rewriting it.
type Plan struct {
	Root        plan.Node
	SymbolTypes map[plan.Symbol]types.Type
	Symbols     *plan.SymbolAllocator
	IDs         *plan.IDAllocator
}

// Decode reads a plan description from r.
func Decode(r io.Reader) (*Plan, error) {
	var desc description
	if err := yaml.NewDecoder(r).Decode(&desc); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}

	b := &planBuilder{
		symbolTypes: make(map[plan.Symbol]types.Type, len(desc.Symbols)),
		ids:         plan.NewIDAllocator(),
	}
	for name, t := range desc.Symbols {
		b.symbolTypes[plan.NewSymbol(name)] = t
	}

	root, err := b.build(desc.Plan)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Root:        root,
		SymbolTypes: b.symbolTypes,
		Symbols:     plan.NewSymbolAllocator(b.symbolTypes),
		IDs:         b.ids,
	}, nil
}

// Optimize runs the optimizer of e over p for a session of user with the
// given properties. The returned plan shares the allocators of p.
func (p *Plan) Optimize(e *engine.Engine, user string, properties map[string]string) (*Plan, error) {
	root, err := e.Optimize(p.Root, session.New(user, properties), p.SymbolTypes, p.Symbols, p.IDs)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Root:        root,
		SymbolTypes: p.Symbols.Types(),
		Symbols:     p.Symbols,
		IDs:         p.IDs,
	}, nil
}

// String returns the plan printed as a tree.
func (p *Plan) String() string { return plan.PrintAsTree(p.Root) }

// Changed reports whether p and other have different roots.
func (p *Plan) Changed(other *Plan) bool { return p.Root != other.Root }

type planBuilder struct {
	symbolTypes map[plan.Symbol]types.Type
	ids         *plan.IDAllocator
}

func (b *planBuilder) symbol(name string) (plan.Symbol, error) {
	sym := plan.NewSymbol(name)
	if _, ok := b.symbolTypes[sym]; !ok {
		return plan.Symbol{}, fmt.Errorf("undeclared symbol %q, declared symbols: %v", name, b.declared())
	}
	return sym, nil
}

func (b *planBuilder) declared() []string {
	names := make([]string, 0, len(b.symbolTypes))
	for sym := range b.symbolTypes {
		names = append(names, sym.Name)
	}
	sort.Strings(names)
	return names
}

func (b *planBuilder) symbols(names []string) ([]plan.Symbol, error) {
	out := make([]plan.Symbol, 0, len(names))
	for _, name := range names {
		sym, err := b.symbol(name)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

func (b *planBuilder) functions(descs []functionDescription) ([]plan.Assignment, error) {
	out := make([]plan.Assignment, 0, len(descs))
	for _, d := range descs {
		sym, err := b.symbol(d.Symbol)
		if err != nil {
			return nil, err
		}
		args, err := b.symbols(d.Args)
		if err != nil {
			return nil, err
		}
		call := &plan.FunctionCall{Name: d.Function}
		for _, arg := range args {
			call.Args = append(call.Args, arg.Ref())
		}
		out = append(out, plan.Assignment{Symbol: sym, Expr: call})
	}
	return out, nil
}

func (b *planBuilder) orderings(descs []orderingDescription) ([]plan.Ordering, error) {
	out := make([]plan.Ordering, 0, len(descs))
	for _, d := range descs {
		sym, err := b.symbol(d.Symbol)
		if err != nil {
			return nil, err
		}
		order := plan.ASC
		if d.Descending {
			order = plan.DESC
		}
		out = append(out, plan.Ordering{Symbol: sym, Order: order})
	}
	return out, nil
}

func parseJoinType(s string) (plan.JoinType, error) {
	switch s {
	case "", "inner":
		return plan.JoinTypeInner, nil
	case "left":
		return plan.JoinTypeLeft, nil
	case "right":
		return plan.JoinTypeRight, nil
	case "full":
		return plan.JoinTypeFull, nil
	default:
		return 0, fmt.Errorf("unknown join type %q", s)
	}
}

// build builds the tree described by d. Sources are built first, so node
// IDs are assigned in post-order.
func (b *planBuilder) build(d nodeDescription) (plan.Node, error) {
	sources := make([]plan.Node, 0, len(d.Sources))
	for _, sd := range d.Sources {
		source, err := b.build(sd)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	want := 1
	switch d.Type {
	case "table_scan", "values":
		want = 0
	case "join", "semi_join", "index_join":
		want = 2
	}
	if len(sources) != want {
		return nil, fmt.Errorf("%s node expects %d sources, got %d", d.Type, want, len(sources))
	}

	switch d.Type {
	case "table_scan":
		outputs, err := b.symbols(d.Outputs)
		if err != nil {
			return nil, err
		}
		if len(d.Columns) != len(outputs) {
			return nil, fmt.Errorf("table scan of %s has %d columns but %d outputs", d.Table, len(d.Columns), len(outputs))
		}
		return plan.NewTableScan(b.ids.Next(), d.Table, d.Columns, outputs), nil

	case "values":
		outputs, err := b.symbols(d.Outputs)
		if err != nil {
			return nil, err
		}
		return plan.NewValues(b.ids.Next(), outputs), nil

	case "project":
		outputs, err := b.symbols(d.Outputs)
		if err != nil {
			return nil, err
		}
		assignments := make([]plan.Assignment, 0, len(outputs))
		for _, sym := range outputs {
			assignments = append(assignments, plan.Assignment{Symbol: sym, Expr: sym.Ref()})
		}
		return plan.NewProject(b.ids.Next(), sources[0], assignments...), nil

	case "limit":
		return plan.NewLimit(b.ids.Next(), sources[0], d.Limit), nil

	case "aggregation":
		keys, err := b.symbols(d.Keys)
		if err != nil {
			return nil, err
		}
		functions, err := b.functions(d.Functions)
		if err != nil {
			return nil, err
		}
		return plan.NewAggregation(b.ids.Next(), sources[0], keys, functions...), nil

	case "distinct_limit":
		return plan.NewDistinctLimit(b.ids.Next(), sources[0], d.Limit), nil

	case "mark_distinct":
		keys, err := b.symbols(d.Keys)
		if err != nil {
			return nil, err
		}
		marker, err := b.symbol(d.Output)
		if err != nil {
			return nil, err
		}
		return plan.NewMarkDistinct(b.ids.Next(), sources[0], marker, keys), nil

	case "row_number", "top_n_row_number", "window":
		keys, err := b.symbols(d.Keys)
		if err != nil {
			return nil, err
		}
		orderBy, err := b.orderings(d.OrderBy)
		if err != nil {
			return nil, err
		}
		if d.Type == "window" {
			functions, err := b.functions(d.Functions)
			if err != nil {
				return nil, err
			}
			return plan.NewWindow(b.ids.Next(), sources[0], keys, orderBy, functions...), nil
		}
		rowNumber, err := b.symbol(d.Output)
		if err != nil {
			return nil, err
		}
		if d.Type == "row_number" {
			return plan.NewRowNumber(b.ids.Next(), sources[0], keys, rowNumber, d.Limit), nil
		}
		return plan.NewTopNRowNumber(b.ids.Next(), sources[0], keys, orderBy, rowNumber, d.Limit, d.Partial), nil

	case "join", "index_join":
		joinType, err := parseJoinType(d.JoinType)
		if err != nil {
			return nil, err
		}
		if d.Type == "join" {
			criteria := make([]plan.EquiJoinClause, 0, len(d.Criteria))
			for _, c := range d.Criteria {
				pair, err := b.symbols([]string{c.Left, c.Right})
				if err != nil {
					return nil, err
				}
				criteria = append(criteria, plan.EquiJoinClause{Left: pair[0], Right: pair[1]})
			}
			return plan.NewJoin(b.ids.Next(), joinType, sources[0], sources[1], criteria...), nil
		}
		criteria := make([]plan.IndexJoinClause, 0, len(d.Criteria))
		for _, c := range d.Criteria {
			pair, err := b.symbols([]string{c.Left, c.Right})
			if err != nil {
				return nil, err
			}
			criteria = append(criteria, plan.IndexJoinClause{Probe: pair[0], Index: pair[1]})
		}
		return plan.NewIndexJoin(b.ids.Next(), joinType, sources[0], sources[1], criteria...), nil

	case "semi_join":
		if len(d.Criteria) != 1 {
			return nil, fmt.Errorf("semi join expects exactly one criterion, got %d", len(d.Criteria))
		}
		pair, err := b.symbols([]string{d.Criteria[0].Left, d.Criteria[0].Right, d.Output})
		if err != nil {
			return nil, err
		}
		return plan.NewSemiJoin(b.ids.Next(), sources[0], sources[1], pair[0], pair[1], pair[2]), nil

	default:
		return nil, fmt.Errorf("unknown node type %q", d.Type)
	}
}
