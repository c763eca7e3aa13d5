package plan

import "fmt"

// NodeType identifies the kind of a [Node].
type NodeType uint32

const (
	NodeTypeInvalid NodeType = iota

	NodeTypeTableScan
	NodeTypeValues
	NodeTypeProject
	NodeTypeFilter
	NodeTypeLimit
	NodeTypeAggregation
	NodeTypeDistinctLimit
	NodeTypeMarkDistinct
	NodeTypeRowNumber
	NodeTypeTopNRowNumber
	NodeTypeWindow
	NodeTypeJoin
	NodeTypeSemiJoin
	NodeTypeIndexJoin
)

var nodeTypeStrings = map[NodeType]string{
	NodeTypeTableScan:     "TableScan",
	NodeTypeValues:        "Values",
	NodeTypeProject:       "Project",
	NodeTypeFilter:        "Filter",
	NodeTypeLimit:         "Limit",
	NodeTypeAggregation:   "Aggregation",
	NodeTypeDistinctLimit: "DistinctLimit",
	NodeTypeMarkDistinct:  "MarkDistinct",
	NodeTypeRowNumber:     "RowNumber",
	NodeTypeTopNRowNumber: "TopNRowNumber",
	NodeTypeWindow:        "Window",
	NodeTypeJoin:          "Join",
	NodeTypeSemiJoin:      "SemiJoin",
	NodeTypeIndexJoin:     "IndexJoin",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeStrings[t]; ok {
		return s
	}
	return "Undefined"
}

// Node is a relational operator of a logical plan.
//
// Nodes are immutable once built: a rewrite that changes a node creates a
// new node with a fresh ID and shares every unchanged subtree with the
// original plan. A node exclusively owns its sources.
type Node interface {
	// ID returns the identifier of the node, unique within a plan.
	ID() NodeID
	// Type returns the kind of the node.
	Type() NodeType
	// Sources returns the inputs of the node in a fixed, kind-specific order.
	Sources() []Node
	// OutputSymbols returns the symbols produced by the node.
	OutputSymbols() []Symbol
	// WithSources returns a copy of the node with the given ID and sources.
	// All other attributes are kept. sources must have the same length as
	// [Node.Sources].
	WithSources(id NodeID, sources []Node) Node

	isNode()
}

// Ordering is a sort key.
type Ordering struct {
	Symbol Symbol
	Order  SortOrder
}

func (o Ordering) String() string { return fmt.Sprintf("%s %s", o.Symbol, o.Order) }

// SortOrder is the direction of an [Ordering].
type SortOrder uint8

const (
	ASC SortOrder = iota
	DESC
)

// String returns the string representation of the [SortOrder].
func (o SortOrder) String() string {
	switch o {
	case ASC:
		return "ASC"
	case DESC:
		return "DESC"
	default:
		return "UNDEFINED"
	}
}

// checkSources panics if a caller passed the wrong number of sources to
// WithSources. This is always a bug in the caller.
func checkSources(n Node, sources []Node, want int) {
	if len(sources) != want {
		panic(fmt.Sprintf("%s expects %d sources, got %d", n.Type(), want, len(sources)))
	}
}

func concatSymbols(lists ...[]Symbol) []Symbol {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	out := make([]Symbol, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Rebuild returns a copy of n with a new ID and sources, typed like n. The
// copy is not shared yet, so callers may override further attributes on it
// before handing it out.
func Rebuild[N Node](n N, id NodeID, sources ...Node) N {
	return n.WithSources(id, sources).(N)
}
