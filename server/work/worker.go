package work

import (
	"fmt"
	"time"

	"github.com/Daskott/enablex/colors"
	"github.com/Daskott/enablex/server/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const MAX_FAILS = 4

var (
	ErrDuplicateHandler = errors.New("handler with provided name already mapped")

	logg = logger.NewLogger("work")
)

type JobParams struct {
	Name    string
	Handler string
	Unique  bool
	Args    map[string]interface{}
}

type Handler func(map[string]interface{}) error

type job struct {
	JobParams
	Fails     int
	LastError string
}

type worker struct {
	id            string
	pool          *WorkerPool
	stopChan      chan struct{}
	retryBackoffs []time.Duration
}

func newWorker(pool *WorkerPool, retryBackoffs []time.Duration) *worker {
	return &worker{
		id:            uuid.NewString()[:8],
		pool:          pool,
		stopChan:      make(chan struct{}),
		retryBackoffs: retryBackoffs,
	}
}

// start starts the worker loop that pulls jobs from the queue & process them
func (w *worker) start() {
	go w.loop()
}

func (w *worker) stop() {
	w.stopChan <- struct{}{}
}

func (w *worker) loop() {
	w.logInfof("Starting worker")
	for {
		select {
		case <-w.stopChan:
			w.logInfof("Stopping worker")
			return
		case currentJob := <-w.pool.queue:
			w.processJob(currentJob)
		}
	}
}

func (w *worker) processJob(j *job) {
	handler, ok := w.pool.handler(j.Handler)
	if !ok {
		w.logError(fmt.Errorf("no handler registered for %q", j.Handler))
		w.pool.done(j)
		return
	}

	err := w.run(handler, j.Args)
	if err != nil {
		w.logError(err)
		w.determineFailedJobFate(j, err)
		return
	}

	w.pool.done(j)
	w.logDebugf("job %v completed", j.Name)
}

// run calls the handler, turning a panic into an error so one bad
// job can't take the worker down
func (w *worker) run(handler Handler, args map[string]interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler(args)
}

// determineFailedJobFate requeues a failed job with a backoff, jobs with
// Fails >= MAX_FAILS are dropped as dead
func (w *worker) determineFailedJobFate(j *job, runError error) {
	j.Fails++
	j.LastError = runError.Error()

	if j.Fails >= MAX_FAILS {
		w.pool.done(j)
		w.logError(fmt.Errorf("job %v is dead after %v fails, last error: %v", j.Name, j.Fails, j.LastError))
		return
	}

	idx := j.Fails - 1
	if idx >= len(w.retryBackoffs) {
		idx = len(w.retryBackoffs) - 1
	}

	w.logInfof("job %v failed %v time(s), retrying in %v", j.Name, j.Fails, w.retryBackoffs[idx])
	time.AfterFunc(w.retryBackoffs[idx], func() {
		if err := w.pool.push(j); err != nil {
			w.logError(err)
		}
	})
}

func (w *worker) logInfof(template string, args ...interface{}) {
	prefix := colors.Tag(colors.Yellow, "worker %v", w.id) + " "
	logg.Infof(prefix+template, args...)
}

func (w *worker) logDebugf(template string, args ...interface{}) {
	prefix := colors.Tag(colors.Yellow, "worker %v", w.id) + " "
	logg.Debugf(prefix+template, args...)
}

func (w *worker) logError(err error) {
	prefix := colors.Tag(colors.Red, "worker %v", w.id) + " "
	logg.Errorf("%v%v", prefix, err)
}
