// Package app wires footfall components into per-zone pipelines.
package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Runner runs pipelines of every configured zone concurrently.
type Runner struct {
	pipelines []*Pipeline
}

// NewRunner creates a new Runner.
func NewRunner(pipelines ...*Pipeline) *Runner {
	return &Runner{pipelines: pipelines}
}

// Pipelines returns managed pipelines.
func (r *Runner) Pipelines() []*Pipeline {
	return r.pipelines
}

// Run blocks until every pipeline finishes. The first failure cancels the others.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range r.pipelines {
		g.Go(func() error {
			return p.Run(ctx)
		})
	}
	return g.Wait()
}
