// Package log provides progress feedback for long evaluation batches: a
// perturbation sweep or a permutation pass can issue hundreds of backtest
// evaluations, and the host wants periodic structured updates rather than
// silence.
package log

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BatchProgress tracks completion of a batch of independent evaluations and
// emits a structured log line at a bounded rate. Safe for concurrent use by
// worker pools.
type BatchProgress struct {
	mu         sync.Mutex
	name       string
	total      int
	done       int
	startTime  time.Time
	lastReport time.Time
	interval   time.Duration
}

// NewBatchProgress creates a progress tracker for a named batch of total
// evaluations, reporting at most once per interval
func NewBatchProgress(name string, total int, interval time.Duration) *BatchProgress {
	now := time.Now()
	return &BatchProgress{
		name:       name,
		total:      total,
		startTime:  now,
		lastReport: now,
		interval:   interval,
	}
}

// Increment records one completed evaluation and reports if the interval has
// elapsed since the last report
func (p *BatchProgress) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	now := time.Now()
	if now.Sub(p.lastReport) < p.interval && p.done < p.total {
		return
	}
	p.lastReport = now

	pct := 0.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	elapsed := now.Sub(p.startTime)

	evt := log.Debug().
		Str("batch", p.name).
		Int("done", p.done).
		Int("total", p.total).
		Float64("pct", pct).
		Dur("elapsed", elapsed)

	// ETA only once there is a rate to extrapolate from
	if p.done > 0 && p.done < p.total {
		perUnit := elapsed / time.Duration(p.done)
		evt = evt.Dur("eta", perUnit*time.Duration(p.total-p.done))
	}

	evt.Msg("Evaluation batch progress")
}

// Done returns the number of completed evaluations
func (p *BatchProgress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}
