package plan

import "errors"

// WalkOrder defines the order in which a node and its sources are visited.
type WalkOrder uint8

const (
	// PreOrderWalk processes the current node before visiting any of its
	// sources.
	PreOrderWalk WalkOrder = iota

	// PostOrderWalk processes the current node after visiting all of its
	// sources.
	PostOrderWalk
)

// Walk performs a depth-first walk of the plan rooted at n, invoking f for
// each node. Walking stops at the first error returned by f.
func Walk(n Node, f func(Node) error, order WalkOrder) error {
	switch order {
	case PreOrderWalk:
		return preOrderWalk(n, f)
	case PostOrderWalk:
		return postOrderWalk(n, f)
	default:
		return errors.New("unsupported walk order. must be one of PreOrderWalk and PostOrderWalk")
	}
}

func preOrderWalk(n Node, f func(Node) error) error {
	if err := f(n); err != nil {
		return err
	}
	for _, source := range n.Sources() {
		if err := preOrderWalk(source, f); err != nil {
			return err
		}
	}
	return nil
}

func postOrderWalk(n Node, f func(Node) error) error {
	for _, source := range n.Sources() {
		if err := postOrderWalk(source, f); err != nil {
			return err
		}
	}
	return f(n)
}
