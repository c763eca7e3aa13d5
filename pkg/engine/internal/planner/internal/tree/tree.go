// Package tree renders hierarchical structures, such as plans, as text.
package tree

// Property is a key-value pair attached to a [Node]. A multi-value property
// prints as `key=(v1, v2)`, a single-value property as `key=value`.
type Property struct {
	Key          string
	Values       []any
	IsMultiValue bool
}

// NewProperty creates a new Property.
func NewProperty(key string, multi bool, values ...any) Property {
	return Property{
		Key:          key,
		Values:       values,
		IsMultiValue: multi,
	}
}

// Node is an element of a printable tree.
type Node struct {
	// ID uniquely identifies the node. It is printed after the name when
	// non-empty.
	ID         string
	Name       string
	Properties []Property
	Children   []*Node
	// Comments are printed like Children, but indented one level deeper.
	// They hold tree-shaped attributes of a node, such as expressions.
	Comments []*Node
}

// NewNode creates a new node.
func NewNode(name, id string, properties ...Property) *Node {
	return &Node{
		ID:         id,
		Name:       name,
		Properties: properties,
	}
}

// AddComment appends a comment node to n and returns it.
func (n *Node) AddComment(name, id string, properties ...Property) *Node {
	node := NewNode(name, id, properties...)
	n.Comments = append(n.Comments, node)
	return node
}
