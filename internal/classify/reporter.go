package classify

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Reporter receives batch progress. Progress is called after every
// evaluated lead with the completed fraction; Done fires once after the
// whole batch is partitioned. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Progress(fraction float64)
	Done()
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) Progress(float64) {}
func (NopReporter) Done()            {}

// LogReporter logs progress once per completed decile instead of once
// per lead, keeping large batches readable.
type LogReporter struct {
	log  *zap.Logger
	last atomic.Int32
}

func NewLogReporter() *LogReporter {
	return &LogReporter{log: zap.L().With(zap.String("component", "classify"))}
}

func (r *LogReporter) Progress(fraction float64) {
	decile := int32(fraction * 10)
	for {
		last := r.last.Load()
		if decile <= last {
			return
		}
		if r.last.CompareAndSwap(last, decile) {
			r.log.Info("classifying", zap.Int("percent", int(decile)*10))
			return
		}
	}
}

func (r *LogReporter) Done() {
	r.log.Info("classification complete")
}
