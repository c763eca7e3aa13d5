// Package parquetstream provides a data stream provider reading row groups
// of parquet files.
package parquetstream

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/parquet-go/parquet-go"

	"github.com/grafana/sqlengine/pkg/engine/internal/datatype"
	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/executor"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// DefaultBatchSize is the number of rows per page used when a provider has
// no batch size configured.
const DefaultBatchSize = 1024

// Split is a single row group of a parquet file.
type Split struct {
	Path     string
	RowGroup int
}

var _ executor.Split = (*Split)(nil)

// Info implements [executor.Split].
func (s *Split) Info() any { return SplitInfo{Path: s.Path, RowGroup: s.RowGroup} }

// SplitInfo is the diagnostic information of a [Split].
type SplitInfo struct {
	Path     string `json:"path"`
	RowGroup int    `json:"row_group"`
}

func (i SplitInfo) String() string { return fmt.Sprintf("%s#%d", i.Path, i.RowGroup) }

// Column is a handle to a top-level column of a parquet file.
type Column struct {
	name   string
	output string
	typ    types.Type
}

var _ executor.ColumnHandle = Column{}

// NewColumn returns a handle to the column name, read as values of t.
func NewColumn(name string, t types.Type) Column { return Column{name: name, typ: t} }

// As returns a copy of c whose values are produced in a field named output.
func (c Column) As(output string) Column {
	c.output = output
	return c
}

// Name implements [executor.ColumnHandle].
func (c Column) Name() string { return c.name }

// Type returns the type of the values produced for the column.
func (c Column) Type() types.Type { return c.typ }

// OutputName returns the name of the field holding the values of c.
func (c Column) OutputName() string {
	if c.output != "" {
		return c.output
	}
	return c.name
}

// Schema returns the schema of the pages produced for columns.
func Schema(columns []Column) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(columns))
	for _, c := range columns {
		fields = append(fields, datatype.Field(c.OutputName(), c.typ))
	}
	return arrow.NewSchema(fields, nil)
}

// Provider creates streams reading the splits of parquet files.
type Provider struct {
	// BatchSize is the maximum number of rows per page.
	BatchSize int
	Logger    log.Logger
}

var _ executor.DataStreamProvider = (*Provider)(nil)

// CreateStream implements [executor.DataStreamProvider]. split must be a
// *[Split] and every column a [Column].
func (p *Provider) CreateStream(ctx *executor.OperatorContext, split executor.Split, handles []executor.ColumnHandle) (executor.Operator, error) {
	if err := errors.CheckNotNil(ctx != nil, "operator context"); err != nil {
		return nil, err
	}
	s, ok := split.(*Split)
	if !ok || s == nil {
		return nil, errors.Preconditionf("unexpected split type %T", split)
	}

	columns := make([]Column, 0, len(handles))
	for _, h := range handles {
		c, ok := h.(Column)
		if !ok {
			return nil, errors.Preconditionf("unexpected column handle type %T", h)
		}
		columns = append(columns, c)
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := p.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	st, err := newStream(ctx, f, s, columns, batchSize)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	level.Debug(logger).Log("msg", "opened parquet split", "path", s.Path, "row_group", s.RowGroup, "rows", st.numRows, "columns", len(columns))
	return st, nil
}

// lookupColumns resolves columns to the indices of the leaf columns of
// schema.
func lookupColumns(schema *parquet.Schema, columns []Column) ([]int, error) {
	indices := make([]int, 0, len(columns))
	for _, c := range columns {
		leaf, ok := schema.Lookup(c.name)
		if !ok {
			return nil, errors.Preconditionf("column %s does not exist", c.name)
		}
		if !compatible(leaf.Node.Type().Kind(), c.typ) {
			return nil, errors.Preconditionf("column %s of kind %s can not be read as %s", c.name, leaf.Node.Type().Kind(), c.typ)
		}
		indices = append(indices, leaf.ColumnIndex)
	}
	return indices, nil
}

func compatible(kind parquet.Kind, t types.Type) bool {
	switch t {
	case types.Bigint, types.Timestamp:
		return kind == parquet.Int32 || kind == parquet.Int64
	case types.Double:
		return kind == parquet.Float || kind == parquet.Double
	case types.Varchar:
		return kind == parquet.ByteArray || kind == parquet.FixedLenByteArray
	case types.Boolean:
		return kind == parquet.Boolean
	default:
		return false
	}
}
