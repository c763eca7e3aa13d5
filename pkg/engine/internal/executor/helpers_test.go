package executor

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/grafana/sqlengine/pkg/engine/internal/datatype"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// testSplit is a split of a test connector holding a list of int64 pages.
type testSplit struct {
	name  string
	pages [][]int64
}

func (s *testSplit) Info() any { return s.name }

type testColumn string

func (c testColumn) Name() string { return string(c) }

// testProvider creates streams returning the pages of a [testSplit] in a
// single int64 column.
type testProvider struct {
	schema  *arrow.Schema
	created atomic.Int64
}

func newTestProvider(column string) *testProvider {
	return &testProvider{schema: arrow.NewSchema([]arrow.Field{datatype.Field(column, types.Bigint)}, nil)}
}

func (p *testProvider) CreateStream(ctx *OperatorContext, split Split, _ []ColumnHandle) (Operator, error) {
	p.created.Inc()

	s := split.(*testSplit)
	pages := make([]Page, 0, len(s.pages))
	for _, values := range s.pages {
		pages = append(pages, newInt64Page(ctx.Allocator(), p.schema, values...))
	}
	return NewValuesOperator(ctx, p.schema, pages...), nil
}

func newInt64Page(alloc memory.Allocator, schema *arrow.Schema, values ...int64) Page {
	builder := array.NewInt64Builder(alloc)
	defer builder.Release()
	builder.AppendValues(values, nil)

	col := builder.NewArray()
	defer col.Release()
	return array.NewRecord(schema, []arrow.Array{col}, int64(len(values)))
}

// newCheckedAllocator returns an allocator that fails the test if memory is
// still allocated when the test ends.
func newCheckedAllocator(t *testing.T) *memory.CheckedAllocator {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { alloc.AssertSize(t, 0) })
	return alloc
}

func int64Column(t *testing.T, page Page, name string) []int64 {
	t.Helper()

	indices := page.Schema().FieldIndices(name)
	require.Len(t, indices, 1, "column %s", name)
	col, ok := page.Column(indices[0]).(*array.Int64)
	require.True(t, ok)
	return append([]int64(nil), col.Int64Values()...)
}
