package runner

import (
	"context"
	"sync"
)

// progressGuard clamps reports to [0,1] and never lets progress go backwards.
type progressGuard struct {
	mu   sync.Mutex
	last float64
	sink func(Progress)
}

func newProgressGuard(sink func(Progress)) *progressGuard {
	if sink == nil {
		sink = func(Progress) {}
	}
	return &progressGuard{sink: sink}
}

func (g *progressGuard) report(p Progress) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p.Percent < 0 {
		p.Percent = 0
	}
	if p.Percent > 1 {
		p.Percent = 1
	}
	if p.Percent < g.last {
		p.Percent = g.last
	}
	g.last = p.Percent
	g.sink(p)
}

// finish emits a final 1.0 if the runner stopped short of it.
func (g *progressGuard) finish(stage string) {
	g.mu.Lock()
	done := g.last >= 1
	g.mu.Unlock()
	if !done {
		g.report(Progress{Stage: stage, Percent: 1})
	}
}

// guarded wraps a Runner so callers always observe clamped, monotonic progress
// that ends at 1.0 on success.
type guarded struct {
	Runner
}

// Guard returns r wrapped with progress enforcement.
func Guard(r Runner) Runner {
	if _, ok := r.(guarded); ok {
		return r
	}
	return guarded{Runner: r}
}

func (g guarded) Execute(ctx context.Context, p Params, onProgress func(Progress)) (Result, error) {
	pg := newProgressGuard(onProgress)
	res, err := g.Runner.Execute(ctx, p, pg.report)
	if err != nil {
		return res, err
	}
	pg.finish("done")
	if res.Runner == "" {
		res.Runner = g.Runner.Name()
	}
	return res, nil
}
