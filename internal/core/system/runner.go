package system

import (
	"fmt"
	"sort"
	"time"

	"github.com/armon/go-metrics"
	"go.uber.org/zap"
)

// Runner executes systems in phase order each tick. Within a phase, systems
// run in registration order.
type Runner struct {
	systems []System
	sorted  bool

	// live holds systems whose Initialize succeeded, in run order. Dispose
	// only touches these.
	live        []System
	initialized bool
	disposed    bool

	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
		log:     log,
	}
}

// SetMetrics enables per-phase tick timing.
func (r *Runner) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Initialize runs Initialize on every registered system in phase order. If
// one fails, the systems initialized before it are disposed and the error is
// returned; Dispose remains safe to call afterwards.
func (r *Runner) Initialize() error {
	if r.initialized {
		return nil
	}
	r.ensureSorted()
	r.initialized = true
	for _, s := range r.systems {
		if in, ok := s.(Initializer); ok {
			if err := in.Initialize(); err != nil {
				r.log.Error("系統初始化失敗",
					zap.String("phase", s.Phase().String()),
					zap.String("system", fmt.Sprintf("%T", s)),
					zap.Error(err),
				)
				r.Dispose()
				return fmt.Errorf("initialize %T: %w", s, err)
			}
		}
		r.live = append(r.live, s)
	}
	return nil
}

// Dispose releases every initialized system in phase order. Idempotent.
func (r *Runner) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	for _, s := range r.live {
		if d, ok := s.(Disposer); ok {
			d.Dispose()
		}
	}
	r.live = nil
}

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	i := 0
	for i < len(r.systems) {
		phase := r.systems[i].Phase()
		start := time.Now()
		for i < len(r.systems) && r.systems[i].Phase() == phase {
			r.systems[i].Update(dt)
			i++
		}
		if r.metrics != nil {
			r.metrics.MeasureSince([]string{"tick", phase.String()}, start)
		}
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
