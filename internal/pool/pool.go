// Package pool provides a bounded worker pool for fire-and-forget
// background tasks.
package pool

import "golang.org/x/sync/errgroup"

// Pool runs tasks on at most limit concurrent goroutines. Submission
// blocks once the limit is reached, keeping background dispatch bounded.
type Pool struct {
	g *errgroup.Group
}

// New creates a pool with the given concurrency limit.
func New(limit int) *Pool {
	g := new(errgroup.Group)
	g.SetLimit(limit)
	return &Pool{g: g}
}

// Go submits a task.
func (p *Pool) Go(fn func()) {
	p.g.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	_ = p.g.Wait()
}
