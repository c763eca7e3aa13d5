package plan

import (
	"strconv"

	"go.uber.org/atomic"
)

// NodeID uniquely identifies a node within a plan.
type NodeID string

// IDAllocator hands out node IDs. It is safe for concurrent use.
type IDAllocator struct {
	next atomic.Int64
}

// NewIDAllocator returns an IDAllocator whose first ID is "0".
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns an ID that has not been returned before.
func (a *IDAllocator) Next() NodeID {
	return NodeID(strconv.FormatInt(a.next.Inc()-1, 10))
}
