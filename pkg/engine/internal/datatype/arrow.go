package datatype

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// MetadataKeyType is the arrow field metadata key holding the SQL type name
// of a column.
const MetadataKeyType = "sqlengine.type"

var (
	ArrowType = struct {
		Null      arrow.DataType
		Bool      arrow.DataType
		String    arrow.DataType
		Integer   arrow.DataType
		Float     arrow.DataType
		Timestamp arrow.DataType
	}{
		Null:      arrow.Null,
		Bool:      arrow.FixedWidthTypes.Boolean,
		String:    arrow.BinaryTypes.String,
		Integer:   arrow.PrimitiveTypes.Int64,
		Float:     arrow.PrimitiveTypes.Float64,
		Timestamp: arrow.PrimitiveTypes.Int64,
	}

	toArrow = map[types.Type]arrow.DataType{
		types.Bigint:    ArrowType.Integer,
		types.Double:    ArrowType.Float,
		types.Varchar:   ArrowType.String,
		types.Boolean:   ArrowType.Bool,
		types.Timestamp: ArrowType.Timestamp,
	}
)

// ToArrow returns the arrow type used to store values of t. Invalid types
// map to [arrow.Null].
func ToArrow(t types.Type) arrow.DataType {
	if dt, ok := toArrow[t]; ok {
		return dt
	}
	return ArrowType.Null
}

// Field returns an arrow field named name holding values of t. The SQL type
// is kept in the field metadata, since several SQL types share an arrow type.
func Field(name string, t types.Type) arrow.Field {
	return arrow.Field{
		Name:     name,
		Type:     ToArrow(t),
		Nullable: true,
		Metadata: arrow.NewMetadata([]string{MetadataKeyType}, []string{t.String()}),
	}
}

// FieldType returns the SQL type recorded in the metadata of f.
func FieldType(f arrow.Field) types.Type {
	s, ok := f.Metadata.GetValue(MetadataKeyType)
	if !ok {
		return types.Invalid
	}
	t, err := types.FromString(s)
	if err != nil {
		return types.Invalid
	}
	return t
}

// Schema builds an arrow schema with one field per name, in order. typeOf
// resolves the SQL type of each name.
func Schema(names []string, typeOf func(string) types.Type) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, Field(name, typeOf(name)))
	}
	return arrow.NewSchema(fields, nil)
}
