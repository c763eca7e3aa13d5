package plan

// TableScan reads the columns of a table. Column i of the table is exposed as
// Outputs[i].
type TableScan struct {
	id NodeID

	Table   string
	Columns []string
	Outputs []Symbol
}

// NewTableScan creates a TableScan node.
func NewTableScan(id NodeID, table string, columns []string, outputs []Symbol) *TableScan {
	return &TableScan{id: id, Table: table, Columns: columns, Outputs: outputs}
}

func (n *TableScan) ID() NodeID              { return n.id }
func (*TableScan) Type() NodeType            { return NodeTypeTableScan }
func (*TableScan) Sources() []Node           { return nil }
func (n *TableScan) OutputSymbols() []Symbol { return n.Outputs }
func (*TableScan) isNode()                   {}

func (n *TableScan) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 0)
	out := *n
	out.id = id
	return &out
}

// Values produces a fixed set of rows.
type Values struct {
	id NodeID

	Outputs []Symbol
	Rows    [][]Expression
}

// NewValues creates a Values node.
func NewValues(id NodeID, outputs []Symbol, rows ...[]Expression) *Values {
	return &Values{id: id, Outputs: outputs, Rows: rows}
}

func (n *Values) ID() NodeID              { return n.id }
func (*Values) Type() NodeType            { return NodeTypeValues }
func (*Values) Sources() []Node           { return nil }
func (n *Values) OutputSymbols() []Symbol { return n.Outputs }
func (*Values) isNode()                   {}

func (n *Values) WithSources(id NodeID, sources []Node) Node {
	checkSources(n, sources, 0)
	out := *n
	out.id = id
	return &out
}
