package plan

// Aggregation groups the rows of its source by GroupBy and computes one
// aggregate per entry of Aggregations. An empty GroupBy is a global
// aggregation.
type Aggregation struct {
	id NodeID

	Source       Node
	GroupBy      []Symbol
	Aggregations []Assignment
	// HashSymbol, if set, holds the precomputed hash of GroupBy.
	HashSymbol *Symbol
}

// NewAggregation creates an Aggregation node.
func NewAggregation(id NodeID, source Node, groupBy []Symbol, aggregations ...Assignment) *Aggregation {
	return &Aggregation{id: id, Source: source, GroupBy: groupBy, Aggregations: aggregations}
}

func (n *Aggregation) ID() NodeID      { return n.id }
func (*Aggregation) Type() NodeType    { return NodeTypeAggregation }
func (n *Aggregation) Sources() []Node { return []Node{n.Source} }
func (*Aggregation) isNode()           {}

func (n *Aggregation) OutputSymbols() []Symbol {
	out := make([]Symbol, 0, len(n.GroupBy)+len(n.Aggregations))
	out = append(out, n.GroupBy...)
	for _, a := range n.Aggregations {
		out = append(out, a.Symbol)
	}
	return out
}

func (n *Aggregation) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 1)
	out := *n
	out.id, out.Source = id, sources[0]
	return &out
}

// DistinctLimit returns up to Limit distinct rows of its source. All output
// symbols are distinct keys.
type DistinctLimit struct {
	id NodeID

	Source     Node
	Limit      int64
	HashSymbol *Symbol
}

// NewDistinctLimit creates a DistinctLimit node.
func NewDistinctLimit(id NodeID, source Node, limit int64) *DistinctLimit {
	return &DistinctLimit{id: id, Source: source, Limit: limit}
}

func (n *DistinctLimit) ID() NodeID      { return n.id }
func (*DistinctLimit) Type() NodeType    { return NodeTypeDistinctLimit }
func (n *DistinctLimit) Sources() []Node { return []Node{n.Source} }
func (*DistinctLimit) isNode()           {}

// OutputSymbols returns the output symbols of the source, without the hash
// symbol of n.
func (n *DistinctLimit) OutputSymbols() []Symbol {
	return withoutSymbol(n.Source.OutputSymbols(), n.HashSymbol)
}

func (n *DistinctLimit) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 1)
	out := *n
	out.id, out.Source = id, sources[0]
	return &out
}

// MarkDistinct adds a boolean Marker column which is true for the first
// occurrence of each distinct combination of DistinctSymbols.
type MarkDistinct struct {
	id NodeID

	Source          Node
	Marker          Symbol
	DistinctSymbols []Symbol
	HashSymbol      *Symbol
}

// NewMarkDistinct creates a MarkDistinct node.
func NewMarkDistinct(id NodeID, source Node, marker Symbol, distinctSymbols []Symbol) *MarkDistinct {
	return &MarkDistinct{id: id, Source: source, Marker: marker, DistinctSymbols: distinctSymbols}
}

func (n *MarkDistinct) ID() NodeID      { return n.id }
func (*MarkDistinct) Type() NodeType    { return NodeTypeMarkDistinct }
func (n *MarkDistinct) Sources() []Node { return []Node{n.Source} }
func (*MarkDistinct) isNode()           {}

func (n *MarkDistinct) OutputSymbols() []Symbol {
	return concatSymbols(n.Source.OutputSymbols(), []Symbol{n.Marker})
}

func (n *MarkDistinct) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 1)
	out := *n
	out.id, out.Source = id, sources[0]
	return &out
}

func withoutSymbol(symbols []Symbol, drop *Symbol) []Symbol {
	if drop == nil {
		return symbols
	}
	out := make([]Symbol, 0, len(symbols))
	for _, s := range symbols {
		if s != *drop {
			out = append(out, s)
		}
	}
	return out
}
