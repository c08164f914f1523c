package pdf

import (
	"context"
	"errors"
	"log"
	"sync"

	"rentdesk/internal/models"
)

// ErrPoolStopped is returned when work is submitted after Stop.
var ErrPoolStopped = errors.New("pdf worker pool stopped")

// Result is the single terminal outcome of one render attempt: either the
// document bytes or a failure reason, never both and never partial output.
type Result struct {
	Bytes []byte
	Err   error
}

type job struct {
	app    *models.Application
	result chan Result
}

// Pool renders application PDFs off the request goroutine so a slow render
// never blocks interactive work. Rendering is not cancellable mid-job; the
// caller simply waits for the terminal result.
type Pool struct {
	renderer Renderer
	jobs     chan job

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given number of render workers.
func NewPool(renderer Renderer, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		renderer: renderer,
		jobs:     make(chan job, workers*2),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		data, err := p.renderer.Render(j.app)
		j.result <- Result{Bytes: data, Err: err}
		close(j.result)
	}
}

// Submit enqueues a render job and returns the channel its terminal result
// will arrive on. The context only gates enqueueing; once a worker picks the
// job up it runs to completion. The mutex is held across the enqueue so Stop
// cannot close the queue under an in-flight send.
func (p *Pool) Submit(ctx context.Context, app *models.Application) (<-chan Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil, ErrPoolStopped
	}

	j := job{app: app, result: make(chan Result, 1)}
	select {
	case p.jobs <- j:
		return j.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Render submits the application and waits for the terminal result.
func (p *Pool) Render(ctx context.Context, app *models.Application) ([]byte, error) {
	results, err := p.Submit(ctx, app)
	if err != nil {
		return nil, err
	}
	res := <-results
	return res.Bytes, res.Err
}

// Stop drains outstanding jobs and shuts the workers down.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
	log.Printf("PDF worker pool stopped")
}
