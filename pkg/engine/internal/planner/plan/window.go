package plan

// Window evaluates window functions over partitions of its source.
type Window struct {
	id NodeID

	Source      Node
	PartitionBy []Symbol
	OrderBy     []Ordering
	Functions   []Assignment
	HashSymbol  *Symbol
}

// NewWindow creates a Window node.
func NewWindow(id NodeID, source Node, partitionBy []Symbol, orderBy []Ordering, functions ...Assignment) *Window {
	return &Window{id: id, Source: source, PartitionBy: partitionBy, OrderBy: orderBy, Functions: functions}
}

func (n *Window) ID() NodeID      { return n.id }
func (*Window) Type() NodeType    { return NodeTypeWindow }
func (n *Window) Sources() []Node { return []Node{n.Source} }
func (*Window) isNode()           {}

func (n *Window) OutputSymbols() []Symbol {
	functions := make([]Symbol, len(n.Functions))
	for i, f := range n.Functions {
		functions[i] = f.Symbol
	}
	return concatSymbols(n.Source.OutputSymbols(), functions)
}

func (n *Window) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 1)
	out := *n
	out.id, out.Source = id, sources[0]
	return &out
}

// RowNumber numbers the rows within each partition of its source. If
// MaxRowCountPerPartition is positive, only that many rows per partition are
// kept.
type RowNumber struct {
	id NodeID

	Source                  Node
	PartitionBy             []Symbol
	RowNumberSymbol         Symbol
	MaxRowCountPerPartition int64
	HashSymbol              *Symbol
}

// NewRowNumber creates a RowNumber node.
func NewRowNumber(id NodeID, source Node, partitionBy []Symbol, rowNumber Symbol, maxRowCountPerPartition int64) *RowNumber {
	return &RowNumber{
		id:                      id,
		Source:                  source,
		PartitionBy:             partitionBy,
		RowNumberSymbol:         rowNumber,
		MaxRowCountPerPartition: maxRowCountPerPartition,
	}
}

func (n *RowNumber) ID() NodeID      { return n.id }
func (*RowNumber) Type() NodeType    { return NodeTypeRowNumber }
func (n *RowNumber) Sources() []Node { return []Node{n.Source} }
func (*RowNumber) isNode()           {}

func (n *RowNumber) OutputSymbols() []Symbol {
	return concatSymbols(n.Source.OutputSymbols(), []Symbol{n.RowNumberSymbol})
}

func (n *RowNumber) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 1)
	out := *n
	out.id, out.Source = id, sources[0]
	return &out
}

// TopNRowNumber keeps the first MaxRowCountPerPartition rows of each
// partition according to OrderBy. A partial TopNRowNumber does not output
// the row number.
type TopNRowNumber struct {
	id NodeID

	Source                  Node
	PartitionBy             []Symbol
	OrderBy                 []Ordering
	RowNumberSymbol         Symbol
	MaxRowCountPerPartition int64
	Partial                 bool
	HashSymbol              *Symbol
}

// NewTopNRowNumber creates a TopNRowNumber node.
func NewTopNRowNumber(id NodeID, source Node, partitionBy []Symbol, orderBy []Ordering, rowNumber Symbol, maxRowCountPerPartition int64, partial bool) *TopNRowNumber {
	return &TopNRowNumber{
		id:                      id,
		Source:                  source,
		PartitionBy:             partitionBy,
		OrderBy:                 orderBy,
		RowNumberSymbol:         rowNumber,
		MaxRowCountPerPartition: maxRowCountPerPartition,
		Partial:                 partial,
	}
}

func (n *TopNRowNumber) ID() NodeID      { return n.id }
func (*TopNRowNumber) Type() NodeType    { return NodeTypeTopNRowNumber }
func (n *TopNRowNumber) Sources() []Node { return []Node{n.Source} }
func (*TopNRowNumber) isNode()           {}

func (n *TopNRowNumber) OutputSymbols() []Symbol {
	if n.Partial {
		return n.Source.OutputSymbols()
	}
	return concatSymbols(n.Source.OutputSymbols(), []Symbol{n.RowNumberSymbol})
}

func (n *TopNRowNumber) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 1)
	out := *n
	out.id, out.Source = id, sources[0]
	return &out
}
