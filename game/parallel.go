package game

import (
	"runtime"

	"github.com/pthm-cable/meadow/systems"
)

// parallelThreshold is the minimum drained batch size worth fanning
// out to workers. Below this the dispatch overhead dominates.
const parallelThreshold = 64

type workChunk struct {
	start, end int
}

// parallelState fans candidate scoring out over persistent workers.
// Scoring is read-only over value snapshots, so workers write only
// their own slots of the decisions slice and need no locks. All
// structural work (CountVerdict, Start) stays on the caller.
type parallelState struct {
	planner *systems.Planner

	workers  int
	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	started  bool

	contexts  []systems.DecisionContext
	decisions []systems.Decision
}

func newParallelState(planner *systems.Planner) *parallelState {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &parallelState{
		planner:  planner,
		workers:  workers,
		workChan: make(chan workChunk, workers),
		doneChan: make(chan struct{}, workers),
		stopChan: make(chan struct{}),
	}
}

// evaluate scores every context and returns one decision per context,
// in order. Small batches run inline; larger ones are chunked across
// the workers.
func (p *parallelState) evaluate(contexts []systems.DecisionContext) []systems.Decision {
	if len(contexts) == 0 {
		return nil
	}
	p.contexts = contexts
	if cap(p.decisions) < len(contexts) {
		p.decisions = make([]systems.Decision, len(contexts))
	}
	p.decisions = p.decisions[:len(contexts)]

	if len(contexts) < parallelThreshold || p.workers <= 1 {
		for i := range contexts {
			p.decisions[i] = p.planner.Evaluate(&contexts[i])
		}
		return p.decisions
	}

	p.startWorkers()

	chunkSize := (len(contexts) + p.workers - 1) / p.workers
	chunks := 0
	for start := 0; start < len(contexts); start += chunkSize {
		end := start + chunkSize
		if end > len(contexts) {
			end = len(contexts)
		}
		p.workChan <- workChunk{start: start, end: end}
		chunks++
	}
	for i := 0; i < chunks; i++ {
		<-p.doneChan
	}
	return p.decisions
}

// startWorkers lazily spins up the worker goroutines.
func (p *parallelState) startWorkers() {
	if p.started {
		return
	}
	for i := 0; i < p.workers; i++ {
		go p.worker()
	}
	p.started = true
}

func (p *parallelState) worker() {
	for {
		select {
		case <-p.stopChan:
			return
		case chunk := <-p.workChan:
			for i := chunk.start; i < chunk.end; i++ {
				p.decisions[i] = p.planner.Evaluate(&p.contexts[i])
			}
			p.doneChan <- struct{}{}
		}
	}
}

// stop shuts the workers down. Safe to call when none were started.
func (p *parallelState) stop() {
	if !p.started {
		return
	}
	close(p.stopChan)
	p.started = false
}
