// Package engine wires the planner optimizations and the operator executor
// of the SQL engine.
package engine

import (
	"flag"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/grafana/dskit/flagext"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/sqlengine/pkg/engine/internal/connector/parquetstream"
	"github.com/grafana/sqlengine/pkg/engine/internal/errors"
	"github.com/grafana/sqlengine/pkg/engine/internal/executor"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/optimizations"
	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
	"github.com/grafana/sqlengine/pkg/engine/internal/session"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// Config configures an [Engine].
type Config struct {
	Planner  PlannerConfig  `yaml:"planner"`
	Executor ExecutorConfig `yaml:"executor"`
}

// RegisterFlags registers the flags of the config with f.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("", f)
}

// RegisterFlagsWithPrefix registers the flags of the config with f, each
// prefixed with prefix.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	cfg.Planner.RegisterFlagsWithPrefix(prefix+"planner.", f)
	cfg.Executor.RegisterFlagsWithPrefix(prefix+"executor.", f)
}

// PlannerConfig configures plan optimization.
type PlannerConfig struct {
	// OptimizeHashGeneration is the default of the optimize_hash_generation
	// session property.
	OptimizeHashGeneration bool `yaml:"optimize_hash_generation"`

	// DisabledPasses lists optimizer passes to skip.
	DisabledPasses flagext.StringSliceCSV `yaml:"disabled_passes"`
}

func (cfg *PlannerConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.BoolVar(&cfg.OptimizeHashGeneration, prefix+"optimize-hash-generation", true, "Precompute the hash of grouping, partitioning and join keys in a projection below the node consuming them. Sessions can override it with the optimize_hash_generation property.")
	f.Var(&cfg.DisabledPasses, prefix+"disabled-passes", "Comma-separated list of optimizer passes to skip.")
}

// ExecutorConfig configures plan execution.
type ExecutorConfig struct {
	// BatchSize is the maximum number of rows of pages produced by
	// connectors.
	BatchSize int `yaml:"batch_size"`
}

func (cfg *ExecutorConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.BatchSize, prefix+"batch-size", parquetstream.DefaultBatchSize, "Maximum number of rows per page read by table scans.")
}

// Params holds parameters for constructing a new [Engine].
type Params struct {
	Logger     log.Logger            // Logger for optional log messages.
	Registerer prometheus.Registerer // Registerer for optional metrics.

	Config Config // Config for the Engine.
}

// validate validates p and applies defaults.
func (p *Params) validate() error {
	if p.Logger == nil {
		p.Logger = log.NewNopLogger()
	}
	if p.Registerer == nil {
		p.Registerer = prometheus.NewRegistry()
	}
	if p.Config.Executor.BatchSize <= 0 {
		return fmt.Errorf("invalid batch size for engine. must be greater than 0, got %d", p.Config.Executor.BatchSize)
	}
	return nil
}

// Engine optimizes plans and creates the operators executing them.
type Engine struct {
	logger        log.Logger
	optimizer     *optimizations.Passes
	driverMetrics *executor.DriverMetrics
	batchSize     int
}

// New creates a new Engine.
func New(params Params) (*Engine, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	return &Engine{
		logger: params.Logger,
		optimizer: optimizations.NewPasses(
			params.Logger,
			params.Registerer,
			params.Config.Planner.DisabledPasses,
			optimizations.NewHashGeneration(params.Config.Planner.OptimizeHashGeneration),
		),
		driverMetrics: executor.NewDriverMetrics(params.Registerer),
		batchSize:     params.Config.Executor.BatchSize,
	}, nil
}

// Optimize runs the optimizer passes of the engine over root. Symbols
// introduced by the passes are allocated from symbols, and new nodes get
// their IDs from ids.
func (e *Engine) Optimize(root plan.Node, s *session.Session, symbolTypes map[plan.Symbol]types.Type, symbols *plan.SymbolAllocator, ids *plan.IDAllocator) (plan.Node, error) {
	return e.optimizer.Optimize(root, s, symbolTypes, symbols, ids)
}

// NewTableScanFactory creates a factory of table scans executing node.
// Splits assigned to the scans are row groups of parquet files, see
// [parquetstream.Split].
func (e *Engine) NewTableScanFactory(node *plan.TableScan, symbolTypes map[plan.Symbol]types.Type) (*executor.TableScanFactory, error) {
	if err := errors.CheckNotNil(node != nil, "table scan"); err != nil {
		return nil, err
	}
	if len(node.Columns) != len(node.Outputs) {
		return nil, errors.Preconditionf("table scan %s has %d columns but %d outputs", node.ID(), len(node.Columns), len(node.Outputs))
	}

	columns := make([]parquetstream.Column, 0, len(node.Columns))
	handles := make([]executor.ColumnHandle, 0, len(node.Columns))
	for i, name := range node.Columns {
		out := node.Outputs[i]
		t, ok := symbolTypes[out]
		if !ok {
			return nil, errors.Preconditionf("missing type of symbol %s", out)
		}
		column := parquetstream.NewColumn(name, t).As(out.Name)
		columns = append(columns, column)
		handles = append(handles, column)
	}

	provider := &parquetstream.Provider{
		BatchSize: e.batchSize,
		Logger:    log.With(e.logger, "table", node.Table),
	}
	return executor.NewTableScanFactory(node.ID(), parquetstream.Schema(columns), provider, handles)
}

// NewDriver creates a driver running operators, whose output is passed to
// sink. Drivers created by the same engine share their metrics.
func (e *Engine) NewDriver(ctx *executor.DriverContext, sink executor.Sink, operators ...executor.Operator) (*executor.Driver, error) {
	return executor.NewDriver(ctx, sink, e.driverMetrics, operators...)
}

// NewDriverContext creates the context of a new driver, logging to the
// logger of the engine. Pages are allocated from alloc, or from the default
// allocator if alloc is nil.
func (e *Engine) NewDriverContext(alloc memory.Allocator) *executor.DriverContext {
	return executor.NewDriverContext(e.logger, alloc)
}
