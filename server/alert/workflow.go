package alert

import (
	"context"
	"sync"
	"time"

	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/shared"
)

const (
	IDLE         = "idle"
	FALL_PENDING = "fall_pending"
	DISPATCHING  = "dispatching"

	RESOLVED_OK        = "ok"
	RESOLVED_CANCELLED = "cancelled"
	RESOLVED_DISPATCH  = "dispatched"

	DEFAULT_COUNTDOWN_TICKS  = 10
	DEFAULT_TICK             = time.Second
	DEFAULT_SOS_COOLDOWN     = 3 * time.Second
	DEFAULT_LOCATION_TIMEOUT = 5 * time.Second

	FALL_STARTED_MESSAGE = "Fall detected! Countdown started."
	OK_MESSAGE           = "Fall alert cancelled - User confirmed they're OK"
	CANCELLED_MESSAGE    = "Fall alert cancelled by user"
	LOCATION_MESSAGE     = "Location shared"
)

var logg = logger.NewLogger("alert")

type ContactSource interface {
	List() ([]models.Contact, error)
}

type LocationSource interface {
	Cached() *models.LocationSample
	RequestFresh(ctx context.Context, timeout time.Duration) (models.LocationSample, error)
}

// Dispatcher hands an alert to a contact's messaging app. It must not wait
// for delivery.
type Dispatcher interface {
	SendAlert(ctx context.Context, contact models.Contact, payload Payload) error
}

// Dialer starts a phone call to a contact
type Dialer interface {
	Dial(ctx context.Context, contact models.Contact) error
}

// Notifier is told about every state change, e.g. to push it to the UI
type Notifier interface {
	Notify(update Update)
}

type Options struct {
	CountdownTicks  int
	Tick            time.Duration
	SOSCooldown     time.Duration
	LocationTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		CountdownTicks:  DEFAULT_COUNTDOWN_TICKS,
		Tick:            DEFAULT_TICK,
		SOSCooldown:     DEFAULT_SOS_COOLDOWN,
		LocationTimeout: DEFAULT_LOCATION_TIMEOUT,
	}
}

type Deps struct {
	Contacts   ContactSource
	Locations  LocationSource
	Events     EventStore
	Dispatcher Dispatcher
	Dialer     Dialer
	Notifiers  []Notifier
}

type Status struct {
	State          string `json:"state"`
	Remaining      int    `json:"remaining"`
	Countdown      int    `json:"countdown"`
	SOSActive      bool   `json:"sosActive"`
	LastResolution string `json:"lastResolution,omitempty"`
}

type Update struct {
	Status
	Event  *models.EmergencyEvent `json:"event,omitempty"`
	Result *Result                `json:"result,omitempty"`
}

// Result summarises one dispatch
type Result struct {
	Reason    string                 `json:"reason"`
	Attempted int                    `json:"attempted"`
	Failed    int                    `json:"failed"`
	Location  *models.LocationSample `json:"location"`
}

// Workflow is the emergency state machine:
//
//	idle -> fall_pending -> {ok | cancelled | dispatching} -> idle
//	idle -> dispatching -> idle
//
// At most one countdown runs at a time.
type Workflow struct {
	mu             sync.Mutex
	opts           Options
	deps           Deps
	log            *EventLog
	state          string
	remaining      int
	lastResolution string
	sosUntil       time.Time
	countdown      *countdown
	cancels        map[int]context.CancelFunc
	nextID         int
	now            func() time.Time
}

func NewWorkflow(deps Deps, opts Options) *Workflow {
	defaults := DefaultOptions()
	if opts.CountdownTicks <= 0 {
		opts.CountdownTicks = defaults.CountdownTicks
	}
	if opts.Tick <= 0 {
		opts.Tick = defaults.Tick
	}
	if opts.SOSCooldown <= 0 {
		opts.SOSCooldown = defaults.SOSCooldown
	}
	if opts.LocationTimeout <= 0 {
		opts.LocationTimeout = defaults.LocationTimeout
	}

	return &Workflow{
		opts:      opts,
		deps:      deps,
		log:       NewEventLog(deps.Events),
		state:     IDLE,
		remaining: opts.CountdownTicks,
		cancels:   make(map[int]context.CancelFunc),
		now:       time.Now,
	}
}

func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status()
}

func (w *Workflow) Events() ([]models.EmergencyEvent, error) {
	return w.log.List()
}

// TriggerSOS dispatches immediately. A pending fall countdown is cancelled
// first. Repeated triggers while dispatching or inside the cool-down window
// fail with shared.ErrSOSInProgress.
func (w *Workflow) TriggerSOS(ctx context.Context) (*Result, error) {
	w.mu.Lock()
	if w.state == DISPATCHING || w.now().Before(w.sosUntil) {
		w.mu.Unlock()
		return nil, shared.ErrSOSInProgress
	}

	if w.state == FALL_PENDING {
		w.stopCountdown()
		logg.Info("SOS triggered, cancelling fall countdown")
	}

	w.sosUntil = w.now().Add(w.opts.SOSCooldown)
	w.state = DISPATCHING
	update := Update{Status: w.status()}
	w.mu.Unlock()

	w.publish(update)
	return w.dispatch(ctx, SOS_REASON)
}

// TriggerFall starts the fall countdown. While one is already running it's
// left untouched and shared.ErrCountdownActive is returned.
func (w *Workflow) TriggerFall() error {
	w.mu.Lock()
	switch w.state {
	case FALL_PENDING:
		w.mu.Unlock()
		return shared.ErrCountdownActive
	case DISPATCHING:
		w.mu.Unlock()
		return shared.ErrSOSInProgress
	}

	w.state = FALL_PENDING
	w.lastResolution = ""
	w.startCountdown()
	w.mu.Unlock()

	logg.Warn("Fall detected, waiting for user response")
	w.logEvent(models.FALL_EVENT, FALL_STARTED_MESSAGE, nil)
	return nil
}

// RestartCountdown resets the running countdown back to full
func (w *Workflow) RestartCountdown() error {
	w.mu.Lock()
	if w.state != FALL_PENDING {
		w.mu.Unlock()
		return shared.ErrNoCountdown
	}

	w.stopCountdown()
	w.startCountdown()
	update := Update{Status: w.status()}
	w.mu.Unlock()

	w.publish(update)
	return nil
}

// ImFine resolves a pending fall without alerting anyone
func (w *Workflow) ImFine() error {
	return w.resolve(RESOLVED_OK, models.OK_EVENT, OK_MESSAGE)
}

// CancelFall resolves a pending fall without alerting anyone
func (w *Workflow) CancelFall() error {
	return w.resolve(RESOLVED_CANCELLED, models.CANCELLED_EVENT, CANCELLED_MESSAGE)
}

// Close stops the countdown & cancels any location lookup in flight. Nothing
// is logged, the workflow can be used again afterwards.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == FALL_PENDING {
		w.stopCountdown()
		w.state = IDLE
	}

	for id, cancel := range w.cancels {
		cancel()
		delete(w.cancels, id)
	}
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (w *Workflow) resolve(resolution, kind, message string) error {
	w.mu.Lock()
	if w.state != FALL_PENDING {
		w.mu.Unlock()
		return shared.ErrNoCountdown
	}

	w.stopCountdown()
	w.state = IDLE
	w.lastResolution = resolution
	w.mu.Unlock()

	logg.Infof("Fall alert resolved: %v", resolution)
	w.logEvent(kind, message, nil)
	return nil
}

// status must be called with mu held
func (w *Workflow) status() Status {
	return Status{
		State:          w.state,
		Remaining:      w.remaining,
		Countdown:      w.opts.CountdownTicks,
		SOSActive:      w.state == DISPATCHING || w.now().Before(w.sosUntil),
		LastResolution: w.lastResolution,
	}
}

// logEvent appends to the event log & publishes the event
func (w *Workflow) logEvent(kind, message string, result *Result) {
	event, err := w.log.Append(kind, message)
	if err != nil {
		logg.Error(err)
	}

	w.publish(Update{Status: w.Status(), Event: &event, Result: result})
}

func (w *Workflow) publish(update Update) {
	for _, notifier := range w.deps.Notifiers {
		notifier.Notify(update)
	}
}

// track registers cancel so Close can abort the operation
func (w *Workflow) track(cancel context.CancelFunc) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	w.cancels[w.nextID] = cancel
	return w.nextID
}

func (w *Workflow) untrack(id int) {
	w.mu.Lock()
	cancel, ok := w.cancels[id]
	delete(w.cancels, id)
	w.mu.Unlock()

	if ok {
		cancel()
	}
}
