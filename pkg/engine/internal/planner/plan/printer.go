package plan

import (
	"io"
	"strings"

	"github.com/grafana/sqlengine/pkg/engine/internal/planner/internal/tree"
)

// BuildTree converts a plan node and its sources into a tree structure that
// can be used for visualization and debugging purposes.
func BuildTree(n Node) *tree.Node {
	root := toTreeNode(n)
	for _, source := range n.Sources() {
		root.Children = append(root.Children, BuildTree(source))
	}
	return root
}

func toTreeNode(n Node) *tree.Node {
	treeNode := tree.NewNode(n.Type().String(), string(n.ID()))
	switch node := n.(type) {
	case *TableScan:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("table", false, node.Table),
			tree.NewProperty("outputs", true, toAnySlice(node.Outputs)...),
		}
	case *Values:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("outputs", true, toAnySlice(node.Outputs)...),
			tree.NewProperty("rows", false, len(node.Rows)),
		}
	case *Project:
		treeNode.Properties = []tree.Property{tree.NewProperty("outputs", true, toAnySlice(node.OutputSymbols())...)}
		for _, a := range node.Assignments {
			if a.IsIdentity() {
				continue
			}
			treeNode.AddComment("Assignment", "", tree.NewProperty(a.Symbol.Name, false, a.Expr))
		}
	case *Filter:
		treeNode.Properties = []tree.Property{tree.NewProperty("predicate", false, node.Predicate)}
	case *Limit:
		treeNode.Properties = []tree.Property{tree.NewProperty("count", false, node.Count)}
	case *Aggregation:
		treeNode.Properties = []tree.Property{tree.NewProperty("group_by", true, toAnySlice(node.GroupBy)...)}
		for _, a := range node.Aggregations {
			treeNode.AddComment("Aggregate", "", tree.NewProperty(a.Symbol.Name, false, a.Expr))
		}
		treeNode.Properties = appendHash(treeNode.Properties, "hash", node.HashSymbol)
	case *DistinctLimit:
		treeNode.Properties = []tree.Property{tree.NewProperty("limit", false, node.Limit)}
		treeNode.Properties = appendHash(treeNode.Properties, "hash", node.HashSymbol)
	case *MarkDistinct:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("marker", false, node.Marker),
			tree.NewProperty("distinct", true, toAnySlice(node.DistinctSymbols)...),
		}
		treeNode.Properties = appendHash(treeNode.Properties, "hash", node.HashSymbol)
	case *RowNumber:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("partition_by", true, toAnySlice(node.PartitionBy)...),
			tree.NewProperty("row_number", false, node.RowNumberSymbol),
		}
		if node.MaxRowCountPerPartition > 0 {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("max_rows", false, node.MaxRowCountPerPartition))
		}
		treeNode.Properties = appendHash(treeNode.Properties, "hash", node.HashSymbol)
	case *TopNRowNumber:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("partition_by", true, toAnySlice(node.PartitionBy)...),
			tree.NewProperty("order_by", true, toAnySlice(node.OrderBy)...),
			tree.NewProperty("row_number", false, node.RowNumberSymbol),
			tree.NewProperty("max_rows", false, node.MaxRowCountPerPartition),
		}
		if node.Partial {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("partial", false, true))
		}
		treeNode.Properties = appendHash(treeNode.Properties, "hash", node.HashSymbol)
	case *Window:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("partition_by", true, toAnySlice(node.PartitionBy)...),
			tree.NewProperty("order_by", true, toAnySlice(node.OrderBy)...),
		}
		for _, f := range node.Functions {
			treeNode.AddComment("Function", "", tree.NewProperty(f.Symbol.Name, false, f.Expr))
		}
		treeNode.Properties = appendHash(treeNode.Properties, "hash", node.HashSymbol)
	case *Join:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("type", false, node.JoinType),
			tree.NewProperty("criteria", true, toAnySlice(node.Criteria)...),
		}
		treeNode.Properties = appendHash(treeNode.Properties, "left_hash", node.LeftHashSymbol)
		treeNode.Properties = appendHash(treeNode.Properties, "right_hash", node.RightHashSymbol)
	case *SemiJoin:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("source_key", false, node.SourceJoinSymbol),
			tree.NewProperty("filtering_key", false, node.FilteringSourceJoinSymbol),
			tree.NewProperty("output", false, node.SemiJoinOutput),
		}
		treeNode.Properties = appendHash(treeNode.Properties, "source_hash", node.SourceHashSymbol)
		treeNode.Properties = appendHash(treeNode.Properties, "filtering_hash", node.FilteringSourceHashSymbol)
	case *IndexJoin:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("type", false, node.JoinType),
			tree.NewProperty("criteria", true, toAnySlice(node.Criteria)...),
		}
		treeNode.Properties = appendHash(treeNode.Properties, "probe_hash", node.ProbeHashSymbol)
		treeNode.Properties = appendHash(treeNode.Properties, "index_hash", node.IndexHashSymbol)
	}
	return treeNode
}

func appendHash(props []tree.Property, key string, sym *Symbol) []tree.Property {
	if sym == nil {
		return props
	}
	return append(props, tree.NewProperty(key, false, *sym))
}

func toAnySlice[T any](s []T) []any {
	ret := make([]any, len(s))
	for i := range s {
		ret[i] = s[i]
	}
	return ret
}

// PrintAsTree converts a plan into a human-readable tree representation.
func PrintAsTree(root Node) string {
	sb := &strings.Builder{}
	WriteTree(sb, root)
	return sb.String()
}

// WriteTree writes the tree representation of root to w.
func WriteTree(w io.Writer, root Node) {
	tree.NewPrinter(w).Print(BuildTree(root))
}
