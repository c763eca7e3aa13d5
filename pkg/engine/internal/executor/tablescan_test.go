package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
)

func newTestTableScan(t *testing.T, provider DataStreamProvider) *TableScan {
	t.Helper()

	dctx := NewDriverContext(nil, newCheckedAllocator(t))
	scan, err := NewTableScan(dctx.AddOperatorContext("0", "TableScan"), "0", nil, provider, []ColumnHandle{testColumn("a")})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, scan.Close()) })
	return scan
}

// drain reads all pages of op until it finishes and returns the values of
// column a.
func drain(t *testing.T, op Operator) []int64 {
	t.Helper()

	var values []int64
	for !op.IsFinished() {
		page, err := op.Output()
		require.NoError(t, err)
		if page == nil {
			continue
		}
		values = append(values, int64Column(t, page, "a")...)
		page.Release()
	}
	return values
}

func TestTableScan_AddSplit(t *testing.T) {
	t.Run("second split is rejected", func(t *testing.T) {
		provider := newTestProvider("a")
		scan := newTestTableScan(t, provider)

		require.NoError(t, scan.AddSplit(&testSplit{name: "s1", pages: [][]int64{{1}}}))

		err := scan.AddSplit(&testSplit{name: "s2"})
		require.ErrorIs(t, err, errors.ErrInvalidState)
		require.ErrorContains(t, err, "table scan split already set")
		require.Equal(t, int64(1), provider.created.Load())

		require.Equal(t, []int64{1}, drain(t, scan))
	})

	t.Run("nil split", func(t *testing.T) {
		scan := newTestTableScan(t, newTestProvider("a"))
		require.ErrorIs(t, scan.AddSplit(nil), errors.ErrPrecondition)
	})

	t.Run("provider failure installs no delegate", func(t *testing.T) {
		failed := false
		provider := newTestProvider("a")
		scan := newTestTableScan(t, DataStreamProviderFunc(func(ctx *OperatorContext, split Split, columns []ColumnHandle) (Operator, error) {
			if !failed {
				failed = true
				return nil, errors.NotImplementedf("stream")
			}
			return provider.CreateStream(ctx, split, columns)
		}))

		require.ErrorIs(t, scan.AddSplit(&testSplit{name: "s1"}), errors.ErrNotImplemented)
		require.False(t, scan.IsFinished())

		require.NoError(t, scan.AddSplit(&testSplit{name: "s2", pages: [][]int64{{7, 8}}}))
		require.Equal(t, []int64{7, 8}, drain(t, scan))
	})

	t.Run("split info is exposed on the context", func(t *testing.T) {
		scan := newTestTableScan(t, newTestProvider("a"))
		require.Nil(t, scan.Context().Info())

		require.NoError(t, scan.AddSplit(&testSplit{name: "part-0"}))
		require.Equal(t, "part-0", scan.Context().Info())
	})

	t.Run("concurrent assignment has one winner", func(t *testing.T) {
		provider := newTestProvider("a")
		scan := newTestTableScan(t, provider)

		var (
			g       errgroup.Group
			results = make([]error, 32)
		)
		for i := range results {
			g.Go(func() error {
				results[i] = scan.AddSplit(&testSplit{name: "s", pages: [][]int64{{int64(i)}}})
				return nil
			})
		}
		require.NoError(t, g.Wait())

		var won int
		for _, err := range results {
			if err == nil {
				won++
				continue
			}
			require.ErrorIs(t, err, errors.ErrInvalidState)
		}
		require.Equal(t, 1, won)
		require.Equal(t, int64(1), provider.created.Load())
		require.Len(t, drain(t, scan), 1)
	})
}

func TestTableScan_NoMoreSplits(t *testing.T) {
	t.Run("before any split", func(t *testing.T) {
		provider := newTestProvider("a")
		scan := newTestTableScan(t, provider)

		scan.NoMoreSplits()
		require.True(t, scan.IsFinished())
		for range 3 {
			page, err := scan.Output()
			require.NoError(t, err)
			require.Nil(t, page)
		}

		require.ErrorIs(t, scan.AddSplit(&testSplit{name: "late"}), errors.ErrInvalidState)
		require.Zero(t, provider.created.Load())
	})

	t.Run("after a split", func(t *testing.T) {
		scan := newTestTableScan(t, newTestProvider("a"))

		require.NoError(t, scan.AddSplit(&testSplit{name: "s1", pages: [][]int64{{1, 2}, {3}}}))
		scan.NoMoreSplits()
		require.False(t, scan.IsFinished())

		require.Equal(t, []int64{1, 2, 3}, drain(t, scan))
		require.True(t, scan.IsFinished())
	})
}

// blockingProvider wraps a testProvider and blocks every stream creation
// until release is closed.
type blockingProvider struct {
	*testProvider
	started chan struct{}
	release chan struct{}
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{
		testProvider: newTestProvider("a"),
		started:      make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (p *blockingProvider) CreateStream(ctx *OperatorContext, split Split, columns []ColumnHandle) (Operator, error) {
	close(p.started)
	<-p.release
	return p.testProvider.CreateStream(ctx, split, columns)
}

func TestTableScan_AddSplitWhileDriven(t *testing.T) {
	t.Run("driver is not blocked by stream creation", func(t *testing.T) {
		provider := newBlockingProvider()
		scan := newTestTableScan(t, provider)

		var g errgroup.Group
		g.Go(func() error {
			return scan.AddSplit(&testSplit{name: "s1", pages: [][]int64{{4, 5}}})
		})
		<-provider.started

		page, err := scan.Output()
		require.NoError(t, err)
		require.Nil(t, page)
		require.False(t, scan.IsFinished())

		err = scan.AddSplit(&testSplit{name: "s2"})
		require.ErrorIs(t, err, errors.ErrInvalidState)

		// The split being added wins over NoMoreSplits.
		scan.NoMoreSplits()
		require.False(t, scan.IsFinished())

		close(provider.release)
		require.NoError(t, g.Wait())
		require.Equal(t, []int64{4, 5}, drain(t, scan))
	})

	t.Run("failed creation after NoMoreSplits finishes", func(t *testing.T) {
		started, release := make(chan struct{}), make(chan struct{})
		scan := newTestTableScan(t, DataStreamProviderFunc(func(*OperatorContext, Split, []ColumnHandle) (Operator, error) {
			close(started)
			<-release
			return nil, errors.NotImplementedf("stream")
		}))

		var g errgroup.Group
		g.Go(func() error { return scan.AddSplit(&testSplit{name: "s1"}) })
		<-started

		scan.NoMoreSplits()
		require.False(t, scan.IsFinished())

		close(release)
		require.ErrorIs(t, g.Wait(), errors.ErrNotImplemented)
		require.True(t, scan.IsFinished())
	})

	t.Run("close during creation", func(t *testing.T) {
		provider := newBlockingProvider()
		scan := newTestTableScan(t, provider)

		var g errgroup.Group
		g.Go(func() error {
			return scan.AddSplit(&testSplit{name: "s1", pages: [][]int64{{1}}})
		})
		<-provider.started

		require.NoError(t, scan.Close())
		close(provider.release)

		err := g.Wait()
		require.ErrorIs(t, err, errors.ErrInvalidState)
		require.ErrorContains(t, err, "table scan is closed")
		require.Equal(t, int64(1), provider.created.Load())
	})
}

func TestTableScan_BeforeAssignment(t *testing.T) {
	scan := newTestTableScan(t, newTestProvider("a"))

	page, err := scan.Output()
	require.NoError(t, err)
	require.Nil(t, page)
	require.False(t, scan.IsFinished())

	// Finishing without a delegate is legal and changes nothing.
	scan.Finish()
	scan.Finish()
	require.False(t, scan.IsFinished())
}

func TestTableScan_Protocol(t *testing.T) {
	scan := newTestTableScan(t, newTestProvider("a"))

	require.Equal(t, plan.NodeID("0"), scan.SourceID())
	require.False(t, scan.NeedsInput())
	require.True(t, isReady(scan.IsBlocked()))

	alloc := scan.Context().Allocator()
	err := scan.AddInput(newInt64Page(alloc, newTestProvider("a").schema, 1))
	require.ErrorIs(t, err, errors.ErrUnsupported)
	require.ErrorContains(t, err, "TableScan can not take input")

	require.NoError(t, scan.AddSplit(&testSplit{name: "s1", pages: [][]int64{{1}, {2, 3}}}))
	require.True(t, isReady(scan.IsBlocked()))
	require.Equal(t, []int64{1, 2, 3}, drain(t, scan))

	stats := scan.Context().Stats()
	require.Equal(t, int64(2), stats.OutputPages)
	require.Equal(t, int64(3), stats.OutputRows)
}

func TestTableScan_FinishDelegates(t *testing.T) {
	scan := newTestTableScan(t, newTestProvider("a"))

	require.NoError(t, scan.AddSplit(&testSplit{name: "s1", pages: [][]int64{{1}, {2}}}))
	scan.Finish()
	require.True(t, scan.IsFinished())

	page, err := scan.Output()
	require.NoError(t, err)
	require.Nil(t, page)
}

func TestTableScanFactory(t *testing.T) {
	provider := newTestProvider("a")
	factory, err := NewTableScanFactory("3", provider.schema, provider, []ColumnHandle{testColumn("a")})
	require.NoError(t, err)

	require.Equal(t, plan.NodeID("3"), factory.SourceID())
	require.Same(t, provider.schema, factory.OutputSchema())

	dctx := NewDriverContext(nil, nil)
	op, err := factory.CreateOperator(dctx)
	require.NoError(t, err)

	scan, ok := op.(*TableScan)
	require.True(t, ok)
	require.Equal(t, plan.NodeID("3"), scan.SourceID())
	require.Same(t, dctx, scan.Context().DriverContext())
	require.Len(t, dctx.OperatorContexts(), 1)

	factory.Close()
	factory.Close()

	_, err = factory.CreateOperator(dctx)
	require.ErrorIs(t, err, errors.ErrInvalidState)
	require.Len(t, dctx.OperatorContexts(), 1)

	_, err = NewTableScanFactory("3", nil, nil, nil)
	require.ErrorIs(t, err, errors.ErrPrecondition)
}
