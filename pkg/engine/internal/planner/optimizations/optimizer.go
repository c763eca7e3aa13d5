// Package optimizations holds the rewrite passes applied to logical plans
// before they are executed.
package optimizations

import (
	"maps"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/sqlengine/pkg/engine/internal/planner/plan"
	"github.com/grafana/sqlengine/pkg/engine/internal/session"
	"github.com/grafana/sqlengine/pkg/engine/internal/types"
)

// An Optimizer rewrites a plan into an equivalent plan.
type Optimizer interface {
	// Name returns the name of the optimizer, used to disable it by
	// configuration.
	Name() string

	// Optimize returns the rewritten plan, or root itself if there was
	// nothing to change. Symbols allocated while rewriting are recorded in
	// symbols, and new nodes get their IDs from ids.
	Optimize(root plan.Node, s *session.Session, symbolTypes map[plan.Symbol]types.Type, symbols *plan.SymbolAllocator, ids *plan.IDAllocator) (plan.Node, error)
}

// Pass results used as metric label values.
const (
	resultChanged   = "changed"
	resultUnchanged = "unchanged"
	resultSkipped   = "skipped"
	resultFailed    = "failed"
)

// Passes applies a list of optimizers to a plan, one after the other.
type Passes struct {
	logger     log.Logger
	metrics    *metrics
	optimizers []Optimizer
	disabled   map[string]struct{}
}

var _ Optimizer = (*Passes)(nil)

// NewPasses creates Passes running optimizers in order. Optimizers whose
// name is listed in disabled are skipped. Metrics are registered to reg.
func NewPasses(logger log.Logger, reg prometheus.Registerer, disabled []string, optimizers ...Optimizer) *Passes {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	p := &Passes{
		logger:     logger,
		metrics:    newMetrics(reg),
		optimizers: optimizers,
		disabled:   make(map[string]struct{}, len(disabled)),
	}
	for _, name := range disabled {
		p.disabled[name] = struct{}{}
	}
	return p
}

// Name implements Optimizer.
func (*Passes) Name() string { return "passes" }

// Optimize implements Optimizer. Symbols allocated by one pass are known
// to the passes after it; symbolTypes itself is not modified.
func (p *Passes) Optimize(root plan.Node, s *session.Session, symbolTypes map[plan.Symbol]types.Type, symbols *plan.SymbolAllocator, ids *plan.IDAllocator) (plan.Node, error) {
	if err := checkArguments(root, s, symbolTypes, symbols, ids); err != nil {
		return nil, err
	}
	current := maps.Clone(symbolTypes)

	for _, o := range p.optimizers {
		name := o.Name()
		logger := log.With(p.logger, "pass", name)

		if _, skip := p.disabled[name]; skip {
			level.Debug(logger).Log("msg", "skipping disabled optimizer pass")
			p.metrics.passes.WithLabelValues(name, resultSkipped).Inc()
			continue
		}

		start := time.Now()
		out, err := o.Optimize(root, s, current, symbols, ids)
		duration := time.Since(start)
		p.metrics.passDuration.WithLabelValues(name).Observe(duration.Seconds())

		if err != nil {
			level.Warn(logger).Log("msg", "optimizer pass failed", "duration", duration, "err", err)
			p.metrics.passes.WithLabelValues(name, resultFailed).Inc()
			return nil, err
		}

		result := resultUnchanged
		if out != root {
			result = resultChanged
		}
		level.Debug(logger).Log("msg", "finished optimizer pass", "duration", duration, "result", result)
		p.metrics.passes.WithLabelValues(name, result).Inc()

		root = out
		for sym, t := range symbols.Types() {
			if _, ok := current[sym]; !ok {
				current[sym] = t
			}
		}
	}
	return root, nil
}
