package executor

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/oklog/ulid/v2"
	"go.uber.org/atomic"

	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// DriverContext holds the state shared by the operators of one driver.
type DriverContext struct {
	ID        ulid.ULID
	Logger    log.Logger
	Allocator memory.Allocator

	mut       sync.Mutex
	operators []*OperatorContext
}

// NewDriverContext creates a DriverContext with a new ID. A nil logger
// discards all messages, and a nil allocator uses
// [memory.DefaultAllocator].
func NewDriverContext(logger log.Logger, alloc memory.Allocator) *DriverContext {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}

	id := ulid.Make()
	return &DriverContext{
		ID:        id,
		Logger:    log.With(logger, "driver_id", id),
		Allocator: alloc,
	}
}

// AddOperatorContext creates the context of a new operator of the driver.
func (c *DriverContext) AddOperatorContext(id plan.NodeID, typeName string) *OperatorContext {
	oc := &OperatorContext{id: id, typeName: typeName, driver: c}

	c.mut.Lock()
	defer c.mut.Unlock()
	c.operators = append(c.operators, oc)
	return oc
}

// OperatorContexts returns the contexts of all operators of the driver, in
// creation order.
func (c *DriverContext) OperatorContexts() []*OperatorContext {
	c.mut.Lock()
	defer c.mut.Unlock()
	return append([]*OperatorContext(nil), c.operators...)
}

// OperatorContext holds the bookkeeping of a single operator. It is owned by
// the driver context; operators only contribute to it.
type OperatorContext struct {
	id       plan.NodeID
	typeName string
	driver   *DriverContext

	infoMut sync.RWMutex
	info    func() any

	inputPages  atomic.Int64
	inputRows   atomic.Int64
	outputPages atomic.Int64
	outputRows  atomic.Int64
}

// OperatorID returns the ID of the plan node the operator executes.
func (c *OperatorContext) OperatorID() plan.NodeID { return c.id }

// OperatorType returns the type name of the operator.
func (c *OperatorContext) OperatorType() string { return c.typeName }

// DriverContext returns the context of the driver running the operator.
func (c *OperatorContext) DriverContext() *DriverContext { return c.driver }

// Allocator returns the memory allocator to use for pages.
func (c *OperatorContext) Allocator() memory.Allocator { return c.driver.Allocator }

// Logger returns a logger annotated with the operator.
func (c *OperatorContext) Logger() log.Logger {
	return log.With(c.driver.Logger, "operator", c.typeName, "operator_id", c.id)
}

// SetInfo installs a supplier of diagnostic information about the
// operator, replacing any previous one.
func (c *OperatorContext) SetInfo(supplier func() any) {
	c.infoMut.Lock()
	defer c.infoMut.Unlock()
	c.info = supplier
}

// Info returns the diagnostic information of the operator, or nil if no
// supplier was installed.
func (c *OperatorContext) Info() any {
	c.infoMut.RLock()
	supplier := c.info
	c.infoMut.RUnlock()

	if supplier == nil {
		return nil
	}
	return supplier()
}

// OperatorStats are the page and row counts of an operator.
type OperatorStats struct {
	InputPages  int64
	InputRows   int64
	OutputPages int64
	OutputRows  int64
}

// Stats returns a snapshot of the counters of the operator.
func (c *OperatorContext) Stats() OperatorStats {
	return OperatorStats{
		InputPages:  c.inputPages.Load(),
		InputRows:   c.inputRows.Load(),
		OutputPages: c.outputPages.Load(),
		OutputRows:  c.outputRows.Load(),
	}
}

// RecordInput counts page as input of the operator. A nil page is ignored.
func (c *OperatorContext) RecordInput(page Page) {
	if page == nil {
		return
	}
	c.inputPages.Inc()
	c.inputRows.Add(page.NumRows())
}

// RecordOutput counts page as output of the operator. A nil page is ignored.
func (c *OperatorContext) RecordOutput(page Page) {
	if page == nil {
		return
	}
	c.outputPages.Inc()
	c.outputRows.Add(page.NumRows())
}
