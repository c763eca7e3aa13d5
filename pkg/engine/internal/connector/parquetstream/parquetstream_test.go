package parquetstream

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/executor"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

type orderRow struct {
	ID       int64   `parquet:"id"`
	Quantity int32   `parquet:"quantity"`
	Price    float64 `parquet:"price"`
	Customer string  `parquet:"customer"`
	Note     *string `parquet:"note,optional"`
	Shipped  bool    `parquet:"shipped"`
}

func stringPtr(s string) *string { return &s }

// writeOrders writes one row group per element of groups and returns the
// path of the file.
func writeOrders(t *testing.T, groups ...[]orderRow) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "orders.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := parquet.NewWriter(f, parquet.SchemaOf(orderRow{}))
	for _, rows := range groups {
		for _, row := range rows {
			require.NoError(t, w.Write(row))
		}
		require.NoError(t, w.Flush())
	}
	require.NoError(t, w.Close())
	return path
}

func newOperatorContext(t *testing.T) *executor.OperatorContext {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { alloc.AssertSize(t, 0) })
	return executor.NewDriverContext(nil, alloc).AddOperatorContext("0", "TableScan")
}

// readAll drains op, returning the number of rows of each page and the
// values of every column, formatted by arrow.
func readAll(t *testing.T, op executor.Operator) (sizes []int64, columns map[string][]string) {
	t.Helper()

	columns = map[string][]string{}
	for !op.IsFinished() {
		page, err := op.Output()
		require.NoError(t, err)
		if page == nil {
			continue
		}
		sizes = append(sizes, page.NumRows())
		for i, field := range page.Schema().Fields() {
			col := page.Column(i)
			for j := 0; j < col.Len(); j++ {
				columns[field.Name] = append(columns[field.Name], col.ValueStr(j))
			}
		}
		page.Release()
	}
	return sizes, columns
}

func TestProvider_CreateStream(t *testing.T) {
	path := writeOrders(t,
		[]orderRow{
			{ID: 1, Quantity: 3, Price: 1.5, Customer: "alice", Note: stringPtr("fragile"), Shipped: true},
			{ID: 2, Quantity: 1, Price: 10, Customer: "bob"},
			{ID: 3, Quantity: 7, Price: 0.25, Customer: "carol", Shipped: true},
		},
		[]orderRow{
			{ID: 4, Quantity: 2, Price: 3, Customer: "dave"},
		},
	)

	columns := []executor.ColumnHandle{
		NewColumn("customer", types.Varchar),
		NewColumn("quantity", types.Bigint),
		NewColumn("price", types.Double),
		NewColumn("note", types.Varchar),
		NewColumn("shipped", types.Boolean),
	}
	provider := &Provider{BatchSize: 2}

	t.Run("first row group", func(t *testing.T) {
		ctx := newOperatorContext(t)
		op, err := provider.CreateStream(ctx, &Split{Path: path, RowGroup: 0}, columns)
		require.NoError(t, err)
		defer func() { require.NoError(t, op.Close()) }()

		require.False(t, op.NeedsInput())
		require.Equal(t, "customer", op.OutputSchema().Field(0).Name)

		sizes, values := readAll(t, op)
		require.Equal(t, []int64{2, 1}, sizes)
		require.Equal(t, []string{"alice", "bob", "carol"}, values["customer"])
		require.Equal(t, []string{"3", "1", "7"}, values["quantity"])
		require.Equal(t, []string{"1.5", "10", "0.25"}, values["price"])
		require.Equal(t, []string{"fragile", array.NullValueStr, array.NullValueStr}, values["note"])
		require.Equal(t, []string{"true", "false", "true"}, values["shipped"])

		require.Equal(t, int64(2), ctx.Stats().OutputPages)
		require.Equal(t, int64(3), ctx.Stats().OutputRows)
	})

	t.Run("second row group", func(t *testing.T) {
		op, err := provider.CreateStream(newOperatorContext(t), &Split{Path: path, RowGroup: 1}, columns[:1])
		require.NoError(t, err)
		defer func() { require.NoError(t, op.Close()) }()

		_, values := readAll(t, op)
		require.Equal(t, []string{"dave"}, values["customer"])
	})

	t.Run("finish drops remaining rows", func(t *testing.T) {
		op, err := provider.CreateStream(newOperatorContext(t), &Split{Path: path, RowGroup: 0}, columns)
		require.NoError(t, err)
		defer func() { require.NoError(t, op.Close()) }()

		op.Finish()
		require.True(t, op.IsFinished())
		page, err := op.Output()
		require.NoError(t, err)
		require.Nil(t, page)
	})
}

func TestProvider_CreateStream_Errors(t *testing.T) {
	path := writeOrders(t, []orderRow{{ID: 1, Customer: "alice"}})
	provider := &Provider{}

	tests := []struct {
		name    string
		split   executor.Split
		columns []executor.ColumnHandle
		want    error
	}{
		{
			name:    "missing column",
			split:   &Split{Path: path},
			columns: []executor.ColumnHandle{NewColumn("discount", types.Double)},
			want:    errors.ErrPrecondition,
		},
		{
			name:    "incompatible type",
			split:   &Split{Path: path},
			columns: []executor.ColumnHandle{NewColumn("customer", types.Bigint)},
			want:    errors.ErrPrecondition,
		},
		{
			name:  "row group out of range",
			split: &Split{Path: path, RowGroup: 1},
			want:  errors.ErrPrecondition,
		},
		{
			name:  "missing file",
			split: &Split{Path: filepath.Join(t.TempDir(), "missing.parquet")},
			want:  os.ErrNotExist,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.CreateStream(newOperatorContext(t), tt.split, tt.columns)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProvider_WithTableScan(t *testing.T) {
	path := writeOrders(t, []orderRow{{ID: 1}, {ID: 2}, {ID: 3}})

	columns := []Column{NewColumn("id", types.Bigint).As("order_id")}
	handles := []executor.ColumnHandle{columns[0]}

	ctx := newOperatorContext(t)
	scan, err := executor.NewTableScan(ctx, "0", Schema(columns), &Provider{}, handles)
	require.NoError(t, err)
	defer func() { require.NoError(t, scan.Close()) }()

	split := &Split{Path: path}
	require.NoError(t, scan.AddSplit(split))
	require.Equal(t, SplitInfo{Path: path, RowGroup: 0}, ctx.Info())
	scan.NoMoreSplits()

	_, values := readAll(t, scan)
	require.Equal(t, []string{"1", "2", "3"}, values["order_id"])
}
