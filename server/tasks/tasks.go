package tasks

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type Store interface {
	Tasks() ([]models.Task, error)
	SaveTasks(tasks []models.Task) error
	LogActivity(activity models.Activity) error
}

// List is the daily to-do list
type List struct {
	mu    sync.Mutex
	store Store
}

func NewList(store Store) *List {
	return &List{store: store}
}

func (list *List) All() ([]models.Task, error) {
	return list.store.Tasks()
}

func (list *List) Add(title string) (models.Task, error) {
	task := models.Task{
		BaseModel: models.BaseModel{ID: models.NewID()},
		Title:     strings.TrimSpace(title),
		CreatedAt: time.Now(),
	}

	if err := models.Validate(task); err != nil {
		return models.Task{}, err
	}

	list.mu.Lock()
	defer list.mu.Unlock()

	tasks, err := list.store.Tasks()
	if err != nil {
		return models.Task{}, err
	}

	if err := list.store.SaveTasks(append(tasks, task)); err != nil {
		return models.Task{}, fmt.Errorf("Add: %v", err)
	}
	return task, nil
}

// Toggle flips a task's completion, completing a task logs it in the
// activity log
func (list *List) Toggle(id string) (models.Task, error) {
	list.mu.Lock()
	defer list.mu.Unlock()

	tasks, err := list.store.Tasks()
	if err != nil {
		return models.Task{}, err
	}

	_, index, ok := lo.FindIndexOf(tasks, func(task models.Task) bool { return task.ID == id })
	if !ok {
		return models.Task{}, errors.Wrapf(shared.ErrNotFound, "task %v", id)
	}

	tasks[index].Completed = !tasks[index].Completed
	if err := list.store.SaveTasks(tasks); err != nil {
		return models.Task{}, fmt.Errorf("Toggle: %v", err)
	}

	if tasks[index].Completed {
		if err := list.store.LogActivity(models.NewActivity(models.TASK_ACTIVITY, tasks[index].Title)); err != nil {
			return tasks[index], fmt.Errorf("Toggle: %v", err)
		}
	}

	return tasks[index], nil
}

func (list *List) Delete(id string) error {
	list.mu.Lock()
	defer list.mu.Unlock()

	tasks, err := list.store.Tasks()
	if err != nil {
		return err
	}

	remaining := lo.Reject(tasks, func(task models.Task, _ int) bool { return task.ID == id })
	if len(remaining) == len(tasks) {
		return errors.Wrapf(shared.ErrNotFound, "task %v", id)
	}

	if err := list.store.SaveTasks(remaining); err != nil {
		return fmt.Errorf("Delete: %v", err)
	}
	return nil
}

// Pending returns up to limit incomplete tasks in the order they were added
func (list *List) Pending(limit int) ([]models.Task, error) {
	tasks, err := list.store.Tasks()
	if err != nil {
		return nil, err
	}

	return Pending(tasks, limit), nil
}

func Pending(tasks []models.Task, limit int) []models.Task {
	pending := lo.Filter(tasks, func(task models.Task, _ int) bool { return !task.Completed })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending
}
