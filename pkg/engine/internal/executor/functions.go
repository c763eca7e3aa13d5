package executor

import (
	"encoding/binary"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cespare/xxhash/v2"

	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/optimizations"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

const (
	bigint  = types.Bigint
	varchar = types.Varchar
)

// combineHashFactor is the multiplier applied to the running hash by
// combine_hash.
const combineHashFactor = 31

type scalarFunction struct {
	arity      int
	returnType types.Type
	evaluate   func(alloc memory.Allocator, args []arrow.Array) (arrow.Array, error)
}

type functionRegistry struct {
	functions map[string]scalarFunction
}

func (r *functionRegistry) register(name string, fn scalarFunction) {
	r.functions[name] = fn
}

func (r *functionRegistry) lookup(name string, arity int) (scalarFunction, error) {
	fn, ok := r.functions[name]
	if !ok {
		return scalarFunction{}, errors.NotImplementedf("function %s", name)
	}
	if fn.arity != arity {
		return scalarFunction{}, errors.Preconditionf("function %s expects %d arguments, got %d", name, fn.arity, arity)
	}
	return fn, nil
}

var scalarFunctions = func() *functionRegistry {
	r := &functionRegistry{functions: make(map[string]scalarFunction)}
	r.register(optimizations.HashCodeFunction, scalarFunction{arity: 1, returnType: bigint, evaluate: hashCode})
	r.register(optimizations.CombineHashFunction, scalarFunction{arity: 2, returnType: bigint, evaluate: combineHash})
	return r
}()

// hashCode returns the xxhash of every value of args[0]. Nulls hash to 0.
func hashCode(alloc memory.Allocator, args []arrow.Array) (arrow.Array, error) {
	input := args[0]

	builder := array.NewInt64Builder(alloc)
	defer builder.Release()
	builder.Reserve(input.Len())

	var buf [8]byte

	for i := range input.Len() {
		if input.IsNull(i) {
			builder.Append(0)
			continue
		}

		var sum uint64
		switch input := input.(type) {
		case *array.Int64:
			binary.LittleEndian.PutUint64(buf[:], uint64(input.Value(i)))
			sum = xxhash.Sum64(buf[:])
		case *array.Float64:
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(input.Value(i)))
			sum = xxhash.Sum64(buf[:])
		case *array.String:
			sum = xxhash.Sum64String(input.Value(i))
		case *array.Binary:
			sum = xxhash.Sum64(input.Value(i))
		case *array.Boolean:
			buf[0] = 0
			if input.Value(i) {
				buf[0] = 1
			}
			sum = xxhash.Sum64(buf[:1])
		default:
			return nil, errors.NotImplementedf("%s of %s", optimizations.HashCodeFunction, input.DataType())
		}
		builder.Append(int64(sum))
	}
	return builder.NewArray(), nil
}

// combineHash returns 31*previous + value for every row, wrapping around on
// overflow. Null inputs count as 0.
func combineHash(alloc memory.Allocator, args []arrow.Array) (arrow.Array, error) {
	previous, ok := args[0].(*array.Int64)
	if !ok {
		return nil, errors.Preconditionf("%s expects bigint arguments, got %s", optimizations.CombineHashFunction, args[0].DataType())
	}
	value, ok := args[1].(*array.Int64)
	if !ok {
		return nil, errors.Preconditionf("%s expects bigint arguments, got %s", optimizations.CombineHashFunction, args[1].DataType())
	}

	builder := array.NewInt64Builder(alloc)
	defer builder.Release()
	builder.Reserve(previous.Len())

	for i := range previous.Len() {
		builder.Append(combineHashFactor*int64Value(previous, i) + int64Value(value, i))
	}
	return builder.NewArray(), nil
}

func int64Value(arr *array.Int64, i int) int64 {
	if arr.IsNull(i) {
		return 0
	}
	return arr.Value(i)
}
