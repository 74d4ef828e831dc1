package model

import "sync"

// MemoryUsageTracker accumulates token usage per model in memory.
type MemoryUsageTracker struct {
	mu     sync.Mutex
	totals map[string]Usage
}

func NewMemoryUsageTracker() *MemoryUsageTracker {
	return &MemoryUsageTracker{totals: make(map[string]Usage)}
}

func (t *MemoryUsageTracker) RecordUsage(model string, usage Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.totals[model]
	total.InputTokens += usage.InputTokens
	total.OutputTokens += usage.OutputTokens
	t.totals[model] = total
}

// Totals returns a copy of the per-model accumulation.
func (t *MemoryUsageTracker) Totals() map[string]Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Usage, len(t.totals))
	for k, v := range t.totals {
		out[k] = v
	}
	return out
}

// Grand sums usage across all models.
func (t *MemoryUsageTracker) Grand() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total Usage
	for _, v := range t.totals {
		total.InputTokens += v.InputTokens
		total.OutputTokens += v.OutputTokens
	}
	return total
}
