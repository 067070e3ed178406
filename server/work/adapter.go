package work

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

const MAX_CONCURRENCY = 2

type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          *WorkerPool
}

func NewWorkerAdapter(timeZone string, concurrency int) *WorkerPoolAdapter {
	if concurrency <= 0 {
		concurrency = MAX_CONCURRENCY
	}

	return &WorkerPoolAdapter{
		cronScheduler: NewCronScheduler(timeZone),
		pool:          NewWorkerPool(concurrency),
	}
}

// Start starts the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Start() {
	logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	adapter.pool.start()
}

// Stop stops the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Stop() {
	logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.stop()
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.registerHandler(name, handler)
}

// Perform sends a new job to the queue, now - to be executed as soon as a worker is available
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	logg.Debugf("Enqueuing job: %v", job.Name)

	err := adapter.pool.enqueue(job)
	if errors.Is(err, ErrDuplicateJob) {
		logg.Warnf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error enqueuing job: %v, %v", job.Name, err)
	}

	return nil
}

// PerformIn sends a new job to the queue after 'delay' has elapsed
func (adapter *WorkerPoolAdapter) PerformIn(delay time.Duration, job JobParams) *time.Timer {
	return time.AfterFunc(delay, func() {
		if err := adapter.Perform(job); err != nil {
			logg.Error(err)
		}
	})
}

// PeriodicallyPerform adds a job to the queue (to be executed)
// periodically, based on the 'cronExpression' expression provided
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).Do(adapter.performLogged, job)
	if err != nil {
		return fmt.Errorf("PeriodicallyPerform: %v", err)
	}
	return nil
}

// PerformDailyAt adds a job to the queue every day at 'timeOfDay' i.e. "HH:MM"
func (adapter *WorkerPoolAdapter) PerformDailyAt(timeOfDay string, job JobParams) error {
	_, err := adapter.cronScheduler.Every(1).Day().At(timeOfDay).Tag(job.Name).Do(adapter.performLogged, job)
	if err != nil {
		return fmt.Errorf("PerformDailyAt: %v", err)
	}
	return nil
}

func (adapter *WorkerPoolAdapter) RemovePeriodicJob(jobName string) {
	adapter.cronScheduler.RemoveByTag(jobName)
}

func (adapter *WorkerPoolAdapter) performLogged(job JobParams) {
	if err := adapter.Perform(job); err != nil {
		logg.Error(err)
	}
}
