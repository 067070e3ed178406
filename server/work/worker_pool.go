package work

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const QUEUE_SIZE = 256

var ErrDuplicateJob = errors.New("job with the given name already exists in queue")

type WorkerPool struct {
	mu          sync.RWMutex
	handlers    map[string]Handler
	queued      map[string]bool
	queue       chan *job
	workers     []*worker
	concurrency int
	started     bool
}

func NewWorkerPool(concurrency int) *WorkerPool {
	wp := &WorkerPool{
		handlers:    make(map[string]Handler),
		queued:      make(map[string]bool),
		queue:       make(chan *job, QUEUE_SIZE),
		concurrency: concurrency,
	}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(wp, []time.Duration{
			time.Second, 5 * time.Second, 30 * time.Second,
		}))
	}

	return wp
}

// registerHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) registerHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}

	wp.handlers[name] = handler
	return nil
}

func (wp *WorkerPool) handler(name string) (Handler, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	handler, ok := wp.handlers[name]
	return handler, ok
}

// enqueue adds a job to the queue(to be executed), unique jobs are rejected
// with ErrDuplicateJob while a job with the same name is still queued
func (wp *WorkerPool) enqueue(params JobParams) error {
	if strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	if _, ok := wp.handler(params.Handler); !ok {
		return fmt.Errorf("no handler registered for %q", params.Handler)
	}

	wp.mu.Lock()
	if params.Unique && wp.queued[params.Name] {
		wp.mu.Unlock()
		return ErrDuplicateJob
	}
	wp.queued[params.Name] = true
	wp.mu.Unlock()

	return wp.push(&job{JobParams: params})
}

func (wp *WorkerPool) push(j *job) error {
	select {
	case wp.queue <- j:
		return nil
	default:
		wp.done(j)
		return fmt.Errorf("queue is full, dropping job %v", j.Name)
	}
}

func (wp *WorkerPool) done(j *job) {
	wp.mu.Lock()
	delete(wp.queued, j.Name)
	wp.mu.Unlock()
}

// start starts all workers in pool i.e the workers can start processing jobs
func (wp *WorkerPool) start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true

	for _, worker := range wp.workers {
		worker.start()
	}
}

// stop stops all workers in pool i.e jobs will stop being processed
func (wp *WorkerPool) stop() {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return
	}
	wp.started = false
	wp.mu.Unlock()

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			w.stop()
			wg.Done()
		}(w)
	}
	wg.Wait()
}
