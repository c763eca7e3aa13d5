package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/multierror"
	"go.uber.org/atomic"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
)

// Sink receives the pages produced by the last operator of a driver. The
// driver releases a page once Sink returns; a Sink retaining a page must
// call Retain on it.
type Sink func(ctx context.Context, page Page) error

type driverState int

const (
	// driverStateIdle reports that the driver has not started processing.
	driverStateIdle driverState = iota

	// driverStateRunning reports that the driver is processing.
	driverStateRunning

	// driverStateDone reports that the driver finished processing and closed
	// its operators.
	driverStateDone
)

func (s driverState) String() string {
	switch s {
	case driverStateIdle:
		return "idle"
	case driverStateRunning:
		return "running"
	case driverStateDone:
		return "done"
	default:
		return fmt.Sprintf("driverState(%d)", s)
	}
}

// Driver runs the operators of one pipeline. Pages flow from the first
// operator to the last, whose pages are passed to the sink.
//
// Process is called from a single goroutine. AddSplit and NoMoreSplits may
// be called from any goroutine, at any time.
type Driver struct {
	ctx       *DriverContext
	operators []Operator
	source    SourceOperator
	sink      Sink
	metrics   *DriverMetrics
	logger    log.Logger

	state atomic.Int32

	// wake is signaled when splits are assigned, so that a driver waiting
	// for its source can continue.
	wake chan struct{}
}

// NewDriver creates a driver running operators. If the first operator is a
// [SourceOperator], splits assigned to the driver are forwarded to it. A nil
// sink drops all pages, and nil metrics are not registered anywhere.
func NewDriver(ctx *DriverContext, sink Sink, metrics *DriverMetrics, operators ...Operator) (*Driver, error) {
	if err := errors.CheckNotNil(ctx != nil, "driver context"); err != nil {
		return nil, err
	}
	if len(operators) == 0 {
		return nil, errors.Preconditionf("driver requires at least one operator")
	}
	for i, op := range operators {
		if err := errors.CheckNotNil(op != nil, fmt.Sprintf("operator %d", i)); err != nil {
			return nil, err
		}
	}
	if sink == nil {
		sink = func(context.Context, Page) error { return nil }
	}
	if metrics == nil {
		metrics = NewDriverMetrics(nil)
	}

	d := &Driver{
		ctx:       ctx,
		operators: operators,
		sink:      sink,
		metrics:   metrics,
		logger:    ctx.Logger,
		wake:      make(chan struct{}, 1),
	}
	if source, ok := operators[0].(SourceOperator); ok {
		d.source = source
	}
	return d, nil
}

// Context returns the context of the driver.
func (d *Driver) Context() *DriverContext { return d.ctx }

// AddSplit assigns split to the source operator of the driver.
func (d *Driver) AddSplit(split Split) error {
	if d.source == nil {
		return errors.InvalidStatef("driver %s has no source operator", d.ctx.ID)
	}

	if err := d.source.AddSplit(split); err != nil {
		level.Warn(d.logger).Log("msg", "failed to assign split", "source", d.source.SourceID(), "err", err)
		d.metrics.splits.WithLabelValues(splitStateRejected).Inc()
		return err
	}

	level.Debug(d.logger).Log("msg", "assigned split", "source", d.source.SourceID(), "info", fmt.Sprint(split.Info()))
	d.metrics.splits.WithLabelValues(splitStateAssigned).Inc()
	d.signal()
	return nil
}

// NoMoreSplits signals the source operator of the driver that no more
// splits will be assigned. It is a no-op for drivers without a source.
func (d *Driver) NoMoreSplits() {
	if d.source == nil {
		return
	}
	d.source.NoMoreSplits()
	d.signal()
}

func (d *Driver) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Process runs the pipeline until its last operator is finished, ctx is
// canceled, or an operator fails. All operators are closed before Process
// returns. Process can only be called once.
func (d *Driver) Process(ctx context.Context) error {
	if !d.state.CompareAndSwap(int32(driverStateIdle), int32(driverStateRunning)) {
		return errors.InvalidStatef("driver is %s", driverState(d.state.Load()))
	}
	defer d.state.Store(int32(driverStateDone))

	startTime := time.Now()
	level.Debug(d.logger).Log("msg", "starting driver", "operators", len(d.operators))

	err := d.run(ctx)

	var closeErrs multierror.MultiError
	for _, op := range d.operators {
		closeErrs.Add(op.Close())
	}
	if err == nil {
		err = closeErrs.Err()
	} else if closeErr := closeErrs.Err(); closeErr != nil {
		level.Warn(d.logger).Log("msg", "failed to close operators", "err", closeErr)
	}

	duration := time.Since(startTime)
	if err != nil {
		level.Warn(d.logger).Log("msg", "driver failed", "duration", duration, "err", err)
		return err
	}
	level.Debug(d.logger).Log("msg", "driver completed", "duration", duration)
	return nil
}

func (d *Driver) run(ctx context.Context) error {
	var (
		last = d.operators[len(d.operators)-1]

		// finishing[i] is set once operator i was told to finish because
		// operator i-1 finished.
		finishing = make([]bool, len(d.operators))
	)

	for !last.IsFinished() {
		if err := ctx.Err(); err != nil {
			return err
		}

		moved := false
		for i := 0; i < len(d.operators)-1; i++ {
			current, next := d.operators[i], d.operators[i+1]
			if isBlocked(current) || isBlocked(next) {
				continue
			}

			if !current.IsFinished() && next.NeedsInput() {
				page, err := current.Output()
				if err != nil {
					return err
				}
				if page != nil {
					if err := next.AddInput(page); err != nil {
						return err
					}
					moved = true
				}
			}

			if current.IsFinished() && !finishing[i+1] {
				next.Finish()
				finishing[i+1] = true
				moved = true
			}
		}

		if !isBlocked(last) {
			page, err := last.Output()
			if err != nil {
				return err
			}
			if page != nil {
				moved = true
				if err := d.emit(ctx, page); err != nil {
					return err
				}
			}
		}

		if !moved {
			if err := d.wait(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Driver) emit(ctx context.Context, page Page) error {
	defer page.Release()

	d.metrics.pages.Inc()
	d.metrics.rows.Add(float64(page.NumRows()))
	return d.sink(ctx, page)
}

// wait blocks until the first blocked operator can make progress, a split
// is assigned, or ctx is canceled.
func (d *Driver) wait(ctx context.Context) error {
	var blocked <-chan struct{}
	for _, op := range d.operators {
		if ch := op.IsBlocked(); !isReady(ch) {
			blocked = ch
			break
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-blocked:
	case <-d.wake:
	}
	return nil
}

func isBlocked(op Operator) bool { return !isReady(op.IsBlocked()) }

func isReady(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
