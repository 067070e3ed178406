package shell

import (
	"sync"
	"time"

	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
)

const (
	MEDICATION_VIEW = "medication"
	EMERGENCY_VIEW  = "emergency"
	CAREGIVERS_VIEW = "caregivers"
	TASKS_VIEW      = "tasks"
	MAPS_VIEW       = "maps"
	HEARING_VIEW    = "hearing"
	READER_VIEW     = "reader"
	ACTIVITY_VIEW   = "activity"
	SETTINGS_VIEW   = "settings"

	DASHBOARD_LIMIT = 2
)

var (
	Views = []string{
		MEDICATION_VIEW,
		EMERGENCY_VIEW,
		CAREGIVERS_VIEW,
		TASKS_VIEW,
		MAPS_VIEW,
		HEARING_VIEW,
		READER_VIEW,
		ACTIVITY_VIEW,
		SETTINGS_VIEW,
	}

	logg = logger.NewLogger("shell")
)

// Hooks run when a view opens or closes, e.g. to start watching location
// or to stop a countdown when the view is torn down
type Hooks struct {
	OnOpen  func()
	OnClose func()
}

type NameSource interface {
	DisplayName() string
}

type DoseSource interface {
	Upcoming(now time.Time, limit int) ([]models.Dose, error)
}

type TaskSource interface {
	Pending(limit int) ([]models.Task, error)
}

type Dashboard struct {
	Greeting string        `json:"greeting"`
	UserName string        `json:"userName"`
	Doses    []models.Dose `json:"upcomingMedications"`
	Tasks    []models.Task `json:"upcomingTasks"`
	OpenView string        `json:"openView,omitempty"`
}

// Shell owns which feature view is open, only one at a time
type Shell struct {
	mu    sync.Mutex
	open  string
	hooks map[string]Hooks
	names NameSource
	doses DoseSource
	tasks TaskSource
}

func New(names NameSource, doses DoseSource, tasks TaskSource) *Shell {
	hooks := make(map[string]Hooks)
	for _, view := range Views {
		hooks[view] = Hooks{}
	}

	return &Shell{hooks: hooks, names: names, doses: doses, tasks: tasks}
}

func (shell *Shell) Register(view string, hooks Hooks) error {
	shell.mu.Lock()
	defer shell.mu.Unlock()

	if _, ok := shell.hooks[view]; !ok {
		return errors.Wrapf(shared.ErrNotFound, "view %v", view)
	}

	shell.hooks[view] = hooks
	return nil
}

// Open shows view, closing whichever view was open before
func (shell *Shell) Open(view string) error {
	shell.mu.Lock()
	defer shell.mu.Unlock()

	hooks, ok := shell.hooks[view]
	if !ok {
		return errors.Wrapf(shared.ErrNotFound, "view %v", view)
	}

	if shell.open == view {
		return nil
	}

	if shell.open != "" {
		shell.teardown(shell.open)
	}

	shell.open = view
	logg.Debugf("opened %v", view)
	if hooks.OnOpen != nil {
		hooks.OnOpen()
	}

	return nil
}

func (shell *Shell) Close(view string) error {
	shell.mu.Lock()
	defer shell.mu.Unlock()

	if _, ok := shell.hooks[view]; !ok {
		return errors.Wrapf(shared.ErrNotFound, "view %v", view)
	}

	if shell.open == view {
		shell.teardown(view)
	}
	return nil
}

// CloseAll tears down the open view, if any
func (shell *Shell) CloseAll() {
	shell.mu.Lock()
	defer shell.mu.Unlock()

	if shell.open != "" {
		shell.teardown(shell.open)
	}
}

func (shell *Shell) IsOpen(view string) bool {
	shell.mu.Lock()
	defer shell.mu.Unlock()
	return shell.open == view
}

func (shell *Shell) Current() string {
	shell.mu.Lock()
	defer shell.mu.Unlock()
	return shell.open
}

// Dashboard is the home screen: greeting plus the next doses & pending tasks
func (shell *Shell) Dashboard(now time.Time) (Dashboard, error) {
	dashboard := Dashboard{
		Greeting: Greeting(now),
		UserName: shell.names.DisplayName(),
		OpenView: shell.Current(),
	}

	doses, err := shell.doses.Upcoming(now, DASHBOARD_LIMIT)
	if err != nil {
		return Dashboard{}, err
	}
	dashboard.Doses = doses

	tasks, err := shell.tasks.Pending(DASHBOARD_LIMIT)
	if err != nil {
		return Dashboard{}, err
	}
	dashboard.Tasks = tasks

	return dashboard, nil
}

func Greeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour < 12:
		return "Good Morning"
	case hour < 18:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}

// teardown must be called with mu held
func (shell *Shell) teardown(view string) {
	shell.open = ""
	logg.Debugf("closed %v", view)
	if hooks := shell.hooks[view]; hooks.OnClose != nil {
		hooks.OnClose()
	}
}
