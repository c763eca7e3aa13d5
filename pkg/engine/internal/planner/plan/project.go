package plan

// Project computes one output column per assignment.
type Project struct {
	id NodeID

	Source      Node
	Assignments []Assignment
}

// NewProject creates a Project node.
func NewProject(id NodeID, source Node, assignments ...Assignment) *Project {
	return &Project{id: id, Source: source, Assignments: assignments}
}

func (n *Project) ID() NodeID      { return n.id }
func (*Project) Type() NodeType    { return NodeTypeProject }
func (n *Project) Sources() []Node { return []Node{n.Source} }
func (*Project) isNode()           {}

func (n *Project) OutputSymbols() []Symbol {
	out := make([]Symbol, len(n.Assignments))
	for i, a := range n.Assignments {
		out[i] = a.Symbol
	}
	return out
}

func (n *Project) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 1)
	out := *n
	out.id, out.Source = id, sources[0]
	return &out
}

// Filter keeps the rows of its source for which Predicate is true.
type Filter struct {
	id NodeID

	Source    Node
	Predicate Expression
}

// NewFilter creates a Filter node.
func NewFilter(id NodeID, source Node, predicate Expression) *Filter {
	return &Filter{id: id, Source: source, Predicate: predicate}
}

func (n *Filter) ID() NodeID              { return n.id }
func (*Filter) Type() NodeType            { return NodeTypeFilter }
func (n *Filter) Sources() []Node         { return []Node{n.Source} }
func (n *Filter) OutputSymbols() []Symbol { return n.Source.OutputSymbols() }
func (*Filter) isNode()                   {}

func (n *Filter) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 1)
	out := *n
	out.id, out.Source = id, sources[0]
	return &out
}

// Limit passes through at most Count rows of its source.
type Limit struct {
	id NodeID

	Source Node
	Count  int64
}

// NewLimit creates a Limit node.
func NewLimit(id NodeID, source Node, count int64) *Limit {
	return &Limit{id: id, Source: source, Count: count}
}

func (n *Limit) ID() NodeID              { return n.id }
func (*Limit) Type() NodeType            { return NodeTypeLimit }
func (n *Limit) Sources() []Node         { return []Node{n.Source} }
func (n *Limit) OutputSymbols() []Symbol { return n.Source.OutputSymbols() }
func (*Limit) isNode()                   {}

func (n *Limit) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 1)
	out := *n
	out.id, out.Source = id, sources[0]
	return &out
}
