package parquetstream

import (
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/grafana/dskit/multierror"
	"github.com/parquet-go/parquet-go"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/executor"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// stream is an operator producing the rows of one row group in pages of at
// most batchSize rows.
type stream struct {
	ctx     *executor.OperatorContext
	schema  *arrow.Schema
	columns []Column
	leaves  []int

	file    *os.File
	rows    parquet.Rows
	numRows int64
	buf     []parquet.Row

	finished bool
	closed   bool
}

var _ executor.Operator = (*stream)(nil)

func newStream(ctx *executor.OperatorContext, f *os.File, split *Split, columns []Column, batchSize int) (*stream, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	file, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, err
	}

	rowGroups := file.RowGroups()
	if split.RowGroup < 0 || split.RowGroup >= len(rowGroups) {
		return nil, errors.Preconditionf("row group %d out of range, %s has %d row groups", split.RowGroup, split.Path, len(rowGroups))
	}
	leaves, err := lookupColumns(file.Schema(), columns)
	if err != nil {
		return nil, err
	}

	rowGroup := rowGroups[split.RowGroup]
	return &stream{
		ctx:     ctx,
		schema:  Schema(columns),
		columns: columns,
		leaves:  leaves,
		file:    f,
		rows:    rowGroup.Rows(),
		numRows: rowGroup.NumRows(),
		buf:     make([]parquet.Row, batchSize),
	}, nil
}

func (s *stream) Context() *executor.OperatorContext { return s.ctx }
func (s *stream) OutputSchema() *arrow.Schema        { return s.schema }
func (*stream) NeedsInput() bool                     { return false }
func (*stream) IsBlocked() <-chan struct{}           { return executor.NotBlocked }

func (*stream) AddInput(page executor.Page) error {
	if page != nil {
		page.Release()
	}
	return errors.Unsupportedf("parquet stream can not take input")
}

// Output returns the next page of the row group, or nil once all rows were
// read.
func (s *stream) Output() (executor.Page, error) {
	for !s.finished {
		n, err := s.rows.ReadRows(s.buf)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF {
			s.finished = true
		}
		if n > 0 {
			page := s.buildPage(s.buf[:n])
			s.ctx.RecordOutput(page)
			return page, nil
		}
	}
	return nil, nil
}

// Finish stops the stream. Rows not returned yet are dropped.
func (s *stream) Finish() { s.finished = true }

func (s *stream) IsFinished() bool { return s.finished }

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.finished = true

	var errs multierror.MultiError
	errs.Add(s.rows.Close())
	errs.Add(s.file.Close())
	return errs.Err()
}

func (s *stream) buildPage(rows []parquet.Row) executor.Page {
	alloc := s.ctx.Allocator()

	cols := make([]arrow.Array, len(s.columns))
	for i, c := range s.columns {
		builder := array.NewBuilder(alloc, s.schema.Field(i).Type)
		builder.Reserve(len(rows))
		for _, row := range rows {
			appendValue(builder, c.typ, columnValue(row, s.leaves[i]))
		}
		cols[i] = builder.NewArray()
		builder.Release()
	}

	page := array.NewRecord(s.schema, cols, int64(len(rows)))
	for _, col := range cols {
		col.Release()
	}
	return page
}

// columnValue returns the value of the leaf column at index leaf in row.
// A missing value is null.
func columnValue(row parquet.Row, leaf int) parquet.Value {
	for _, v := range row {
		if v.Column() == leaf {
			return v
		}
	}
	return parquet.Value{}
}

func appendValue(builder array.Builder, t types.Type, v parquet.Value) {
	if v.IsNull() {
		builder.AppendNull()
		return
	}

	switch t {
	case types.Bigint, types.Timestamp:
		b := builder.(*array.Int64Builder)
		if v.Kind() == parquet.Int32 {
			b.Append(int64(v.Int32()))
		} else {
			b.Append(v.Int64())
		}
	case types.Double:
		b := builder.(*array.Float64Builder)
		if v.Kind() == parquet.Float {
			b.Append(float64(v.Float()))
		} else {
			b.Append(v.Double())
		}
	case types.Varchar:
		builder.(*array.StringBuilder).Append(string(v.ByteArray()))
	case types.Boolean:
		builder.(*array.BooleanBuilder).Append(v.Boolean())
	default:
		builder.AppendNull()
	}
}
