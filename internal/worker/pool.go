// Package worker renders batches of image files in parallel.
package worker

import (
	"context"
	"sync"
	"time"
)

// Renderer processes a single file. Implementations must be safe for concurrent use.
type Renderer interface {
	RenderFile(ctx context.Context, input, output string) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, input, output string) error

// RenderFile calls f.
func (f RendererFunc) RenderFile(ctx context.Context, input, output string) error {
	return f(ctx, input, output)
}

// Task is one input file and where its result goes.
type Task struct {
	Input  string
	Output string
}

// Result is the outcome of a Task.
type Result struct {
	Task    Task
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the pool.
type Config struct {
	Workers    int
	Renderer   Renderer
	OnProgress ProgressFunc
}

// Pool spreads tasks over a fixed number of goroutines. Parallelism is across files;
// each file renders on a single goroutine.
type Pool struct {
	workers    int
	renderer   Renderer
	onProgress ProgressFunc
}

// New creates a pool. Fewer than one worker means one.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers:    workers,
		renderer:   cfg.Renderer,
		onProgress: cfg.OnProgress,
	}
}

// Run processes all tasks and blocks until they finish or ctx is cancelled.
// Every task yields exactly one Result; tasks not started before cancellation carry ctx.Err().
// Results are in completion order.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})
	go func() {
		defer close(done)
		failed := 0
		for result := range resultCh {
			results = append(results, result)
			if result.Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(len(results), len(tasks), failed)
			}
		}
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Task: task, Err: err}
			continue
		}

		start := time.Now()
		err := p.renderer.RenderFile(ctx, task.Input, task.Output)
		results <- Result{
			Task:    task,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
