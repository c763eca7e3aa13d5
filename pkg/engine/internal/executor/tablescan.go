package executor

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-kit/log/level"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

// TableScan is the source operator of a table scan. It reads nothing by
// itself: once a split is assigned, it forwards every call to the operator
// created for that split by its [DataStreamProvider]. If no split is ever
// assigned, NoMoreSplits installs a [FinishedOperator] instead.
//
// At most one split can be assigned to a TableScan. The delegate is created
// without holding the lock, so the driving goroutine is never blocked by a
// provider opening a split.
type TableScan struct {
	ctx      *OperatorContext
	sourceID plan.NodeID
	schema   *arrow.Schema
	provider DataStreamProvider
	columns  []ColumnHandle

	// mut guards the fields below. Splits are assigned from other
	// goroutines than the one driving the operator.
	mut          sync.Mutex
	delegate     Operator
	assigning    bool // a delegate is being created for a split
	noMoreSplits bool
	closed       bool
}

var _ SourceOperator = (*TableScan)(nil)

// NewTableScan creates a TableScan reading columns of the splits of the
// plan node sourceID.
func NewTableScan(ctx *OperatorContext, sourceID plan.NodeID, schema *arrow.Schema, provider DataStreamProvider, columns []ColumnHandle) (*TableScan, error) {
	if err := errors.CheckNotNil(ctx != nil, "operator context"); err != nil {
		return nil, err
	}
	if err := errors.CheckNotNil(provider != nil, "data stream provider"); err != nil {
		return nil, err
	}
	return &TableScan{
		ctx:      ctx,
		sourceID: sourceID,
		schema:   schema,
		provider: provider,
		columns:  columns,
	}, nil
}

func (s *TableScan) Context() *OperatorContext   { return s.ctx }
func (s *TableScan) SourceID() plan.NodeID       { return s.sourceID }
func (s *TableScan) OutputSchema() *arrow.Schema { return s.schema }

// AddSplit implements SourceOperator. It fails if a split was assigned
// before.
func (s *TableScan) AddSplit(split Split) error {
	if err := errors.CheckNotNil(split != nil, "split"); err != nil {
		return err
	}

	s.mut.Lock()
	switch {
	case s.delegate != nil || s.assigning:
		s.mut.Unlock()
		return errors.InvalidStatef("table scan split already set")
	case s.closed:
		s.mut.Unlock()
		return errors.InvalidStatef("table scan is closed")
	}
	s.assigning = true
	s.mut.Unlock()

	delegate, err := s.provider.CreateStream(s.ctx, split, s.columns)

	s.mut.Lock()
	defer s.mut.Unlock()
	s.assigning = false

	if err != nil {
		if s.noMoreSplits && !s.closed {
			s.delegate = NewFinishedOperator(s.ctx, s.schema)
		}
		return err
	}
	if s.closed {
		if err := delegate.Close(); err != nil {
			level.Warn(s.ctx.Logger()).Log("msg", "failed to close stream of split added after close", "err", err)
		}
		return errors.InvalidStatef("table scan is closed")
	}
	s.delegate = delegate

	if info := split.Info(); info != nil {
		s.ctx.SetInfo(func() any { return info })
	}
	return nil
}

// NoMoreSplits implements SourceOperator. If a split is being added
// concurrently, the table scan finishes with that split's stream instead.
func (s *TableScan) NoMoreSplits() {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.noMoreSplits = true
	if s.delegate == nil && !s.assigning {
		s.delegate = NewFinishedOperator(s.ctx, s.schema)
	}
}

// IsBlocked implements Operator. A table scan is never blocked: until a
// split is assigned it has no output, but it does not wait for anything
// either.
func (*TableScan) IsBlocked() <-chan struct{} { return NotBlocked }

// NeedsInput implements Operator. A table scan never takes input.
func (*TableScan) NeedsInput() bool { return false }

// AddInput implements Operator. It always fails.
func (s *TableScan) AddInput(page Page) error {
	if page != nil {
		page.Release()
	}
	return errors.Unsupportedf("%s can not take input", s.ctx.OperatorType())
}

// Output implements Operator. It returns no page until a split is
// assigned. Output statistics are recorded by the delegate, which shares
// the operator context of the table scan.
func (s *TableScan) Output() (Page, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.delegate == nil {
		return nil, nil
	}
	return s.delegate.Output()
}

// Finish implements Operator.
func (s *TableScan) Finish() {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.delegate != nil {
		s.delegate.Finish()
	}
}

// IsFinished implements Operator.
func (s *TableScan) IsFinished() bool {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.delegate == nil {
		return false
	}
	return s.delegate.IsFinished()
}

// Close implements Operator. It closes the delegate, if any.
func (s *TableScan) Close() error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.delegate == nil {
		return nil
	}
	return s.delegate.Close()
}
