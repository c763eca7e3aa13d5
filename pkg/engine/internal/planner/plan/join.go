package plan

import "fmt"

// JoinType is the kind of a [Join] or [IndexJoin].
type JoinType uint8

const (
	JoinTypeInner JoinType = iota
	JoinTypeLeft
	JoinTypeRight
	JoinTypeFull
)

func (t JoinType) String() string {
	switch t {
	case JoinTypeInner:
		return "INNER"
	case JoinTypeLeft:
		return "LEFT"
	case JoinTypeRight:
		return "RIGHT"
	case JoinTypeFull:
		return "FULL"
	default:
		return fmt.Sprintf("JoinType(%d)", t)
	}
}

// EquiJoinClause is an equality condition between a symbol of the left and
// a symbol of the right side of a join.
type EquiJoinClause struct {
	Left, Right Symbol
}

func (c EquiJoinClause) String() string { return fmt.Sprintf("%s = %s", c.Left, c.Right) }

// Join joins Left and Right on the conjunction of Criteria. A join without
// criteria is a cross join.
type Join struct {
	id NodeID

	JoinType        JoinType
	Left, Right     Node
	Criteria        []EquiJoinClause
	LeftHashSymbol  *Symbol
	RightHashSymbol *Symbol
}

// NewJoin creates a Join node.
func NewJoin(id NodeID, joinType JoinType, left, right Node, criteria ...EquiJoinClause) *Join {
	return &Join{id: id, JoinType: joinType, Left: left, Right: right, Criteria: criteria}
}

func (n *Join) ID() NodeID      { return n.id }
func (*Join) Type() NodeType    { return NodeTypeJoin }
func (n *Join) Sources() []Node { return []Node{n.Left, n.Right} }
func (*Join) isNode()           {}

func (n *Join) OutputSymbols() []Symbol {
	return concatSymbols(n.Left.OutputSymbols(), n.Right.OutputSymbols())
}

func (n *Join) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 2)
	out := *n
	out.id, out.Left, out.Right = id, sources[0], sources[1]
	return &out
}

// LeftKeys returns the left symbols of the criteria, in order.
func (n *Join) LeftKeys() []Symbol {
	keys := make([]Symbol, len(n.Criteria))
	for i, c := range n.Criteria {
		keys[i] = c.Left
	}
	return keys
}

// RightKeys returns the right symbols of the criteria, in order.
func (n *Join) RightKeys() []Symbol {
	keys := make([]Symbol, len(n.Criteria))
	for i, c := range n.Criteria {
		keys[i] = c.Right
	}
	return keys
}

// SemiJoin outputs the rows of Source plus a boolean SemiJoinOutput that
// reports whether SourceJoinSymbol matches any FilteringSourceJoinSymbol of
// FilteringSource.
type SemiJoin struct {
	id NodeID

	Source                    Node
	FilteringSource           Node
	SourceJoinSymbol          Symbol
	FilteringSourceJoinSymbol Symbol
	SemiJoinOutput            Symbol
	SourceHashSymbol          *Symbol
	FilteringSourceHashSymbol *Symbol
}

// NewSemiJoin creates a SemiJoin node.
func NewSemiJoin(id NodeID, source, filteringSource Node, sourceJoinSymbol, filteringSourceJoinSymbol, output Symbol) *SemiJoin {
	return &SemiJoin{
		id:                        id,
		Source:                    source,
		FilteringSource:           filteringSource,
		SourceJoinSymbol:          sourceJoinSymbol,
		FilteringSourceJoinSymbol: filteringSourceJoinSymbol,
		SemiJoinOutput:            output,
	}
}

func (n *SemiJoin) ID() NodeID      { return n.id }
func (*SemiJoin) Type() NodeType    { return NodeTypeSemiJoin }
func (n *SemiJoin) Sources() []Node { return []Node{n.Source, n.FilteringSource} }
func (*SemiJoin) isNode()           {}

func (n *SemiJoin) OutputSymbols() []Symbol {
	return concatSymbols(n.Source.OutputSymbols(), []Symbol{n.SemiJoinOutput})
}

func (n *SemiJoin) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 2)
	out := *n
	out.id, out.Source, out.FilteringSource = id, sources[0], sources[1]
	return &out
}

// IndexJoinClause is an equality condition between a probe symbol and an
// index symbol.
type IndexJoinClause struct {
	Probe, Index Symbol
}

func (c IndexJoinClause) String() string { return fmt.Sprintf("%s = %s", c.Probe, c.Index) }

// IndexJoin looks up rows of Probe in the index exposed by Index.
type IndexJoin struct {
	id NodeID

	JoinType        JoinType
	Probe, Index    Node
	Criteria        []IndexJoinClause
	ProbeHashSymbol *Symbol
	IndexHashSymbol *Symbol
}

// NewIndexJoin creates an IndexJoin node.
func NewIndexJoin(id NodeID, joinType JoinType, probe, index Node, criteria ...IndexJoinClause) *IndexJoin {
	return &IndexJoin{id: id, JoinType: joinType, Probe: probe, Index: index, Criteria: criteria}
}

func (n *IndexJoin) ID() NodeID      { return n.id }
func (*IndexJoin) Type() NodeType    { return NodeTypeIndexJoin }
func (n *IndexJoin) Sources() []Node { return []Node{n.Probe, n.Index} }
func (*IndexJoin) isNode()           {}

func (n *IndexJoin) OutputSymbols() []Symbol {
	return concatSymbols(n.Probe.OutputSymbols(), n.Index.OutputSymbols())
}

func (n *IndexJoin) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 2)
	out := *n
	out.id, out.Probe, out.Index = id, sources[0], sources[1]
	return &out
}

// ProbeKeys returns the probe symbols of the criteria, in order.
func (n *IndexJoin) ProbeKeys() []Symbol {
	keys := make([]Symbol, len(n.Criteria))
	for i, c := range n.Criteria {
		keys[i] = c.Probe
	}
	return keys
}

// IndexKeys returns the index symbols of the criteria, in order.
func (n *IndexJoin) IndexKeys() []Symbol {
	keys := make([]Symbol, len(n.Criteria))
	for i, c := range n.Criteria {
		keys[i] = c.Index
	}
	return keys
}
