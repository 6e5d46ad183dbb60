// Package progress folds the progress of several serial phases into one
// percentage that never decreases.
package progress

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/atomic"
)

// Phase is one serial step of a run and its share of the overall 0-100
// range.
type Phase struct {
	Name   string
	Weight float64
}

const (
	LocalDecode = "local-decode"
	Remote      = "remote"
)

// Split returns the two upload phases with the local decode weighted
// localWeight and the remote round trip taking the rest. The default 50/50
// split is a fixed choice, not a measured estimate of where time goes.
func Split(localWeight float64) []Phase {
	return []Phase{
		{Name: LocalDecode, Weight: localWeight},
		{Name: Remote, Weight: 100 - localWeight},
	}
}

var (
	UploadPhases = Split(50)
	DemoPhases   = []Phase{{Name: Remote, Weight: 100}}
)

// Aggregator maps per-phase percentages onto the overall range. Values only
// reach the sink when they exceed the last emitted one, and 100 is reserved
// for Complete.
type Aggregator struct {
	phases  []Phase
	offsets []float64
	index   map[string]int

	mu    sync.Mutex
	value *atomic.Int32
	sink  func(int)
}

// NewAggregator validates that the weights are positive and sum to 100.
// sink may be nil.
func NewAggregator(phases []Phase, sink func(int)) (*Aggregator, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("no phases")
	}
	a := &Aggregator{
		phases:  phases,
		offsets: make([]float64, len(phases)),
		index:   make(map[string]int, len(phases)),
		value:   atomic.NewInt32(0),
		sink:    sink,
	}
	var total float64
	for i, p := range phases {
		if p.Weight <= 0 {
			return nil, fmt.Errorf("phase %q has non-positive weight %v", p.Name, p.Weight)
		}
		if _, dup := a.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate phase %q", p.Name)
		}
		a.index[p.Name] = i
		a.offsets[i] = total
		total += p.Weight
	}
	if math.Abs(total-100) > 1e-9 {
		return nil, fmt.Errorf("phase weights sum to %v, want 100", total)
	}
	return a, nil
}

// Value is the last emitted overall percentage.
func (a *Aggregator) Value() int { return int(a.value.Load()) }

// Report records pct (0-100) of the named phase.
func (a *Aggregator) Report(phase string, pct float64) {
	i, ok := a.index[phase]
	if !ok {
		return
	}
	if math.IsNaN(pct) {
		return
	}
	pct = math.Max(0, math.Min(100, pct))
	overall := int(math.Floor(a.offsets[i] + pct*a.phases[i].Weight/100))
	if overall > 99 {
		overall = 99
	}
	a.emit(overall, false)
}

// Reporter binds Report to one phase, for use as a progress callback.
func (a *Aggregator) Reporter(phase string) func(float64) {
	return func(pct float64) { a.Report(phase, pct) }
}

// Complete emits 100.
func (a *Aggregator) Complete() { a.emit(100, false) }

// Reset returns to 0 for a new run and emits it.
func (a *Aggregator) Reset() { a.emit(0, true) }

func (a *Aggregator) emit(v int, force bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !force && v <= a.Value() {
		return
	}
	a.value.Store(int32(v))
	if a.sink != nil {
		a.sink(v)
	}
}
