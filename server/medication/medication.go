package medication

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Daskott/enablex/colors"
	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/server/work"
	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	REMINDER_HANDLER = "medication_reminder"

	DEFAULT_SNOOZE = 5 * time.Second
)

var logg = logger.NewLogger("medication")

type Store interface {
	Medicines() ([]models.Medicine, error)
	SaveMedicines(medicines []models.Medicine) error
	LogActivity(activity models.Activity) error
}

// Jobs is implemented by the work adapter
type Jobs interface {
	Register(name string, handler work.Handler) error
	PerformDailyAt(timeOfDay string, job work.JobParams) error
	RemovePeriodicJob(name string)
}

// Notifier is told whenever a reminder is raised or cleared, nil means cleared
type Notifier interface {
	Remind(reminder *Reminder)
}

type Reminder struct {
	MedicineID   string    `json:"medicineId"`
	MedicineName string    `json:"medicineName"`
	Time         string    `json:"time"`
	RaisedAt     time.Time `json:"raisedAt"`
}

// Scheduler keeps the medicine list & raises a reminder at each dose time
type Scheduler struct {
	mu          sync.Mutex
	store       Store
	jobs        Jobs
	notifiers   []Notifier
	snooze      time.Duration
	active      *Reminder
	snoozeTimer *time.Timer
	scheduled   map[string][]string
	now         func() time.Time
}

// NewScheduler returns a scheduler, with a nil jobs no daily reminders are
// scheduled
func NewScheduler(store Store, jobs Jobs, snooze time.Duration, notifiers ...Notifier) *Scheduler {
	if snooze <= 0 {
		snooze = DEFAULT_SNOOZE
	}

	return &Scheduler{
		store:     store,
		jobs:      jobs,
		notifiers: notifiers,
		snooze:    snooze,
		scheduled: make(map[string][]string),
		now:       time.Now,
	}
}

// Start registers the reminder handler & schedules every stored medicine
func (scheduler *Scheduler) Start() error {
	if scheduler.jobs == nil {
		return nil
	}

	err := scheduler.jobs.Register(REMINDER_HANDLER, scheduler.handleReminder)
	if err != nil {
		return fmt.Errorf("Start: %v", err)
	}

	medicines, err := scheduler.store.Medicines()
	if err != nil {
		return fmt.Errorf("Start: %v", err)
	}

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	for _, medicine := range medicines {
		scheduler.schedule(medicine)
	}

	return nil
}

func (scheduler *Scheduler) List() ([]models.Medicine, error) {
	return scheduler.store.Medicines()
}

// Add stores a medicine, blank times are dropped & the rest normalised
// to "HH:MM"
func (scheduler *Scheduler) Add(name string, times []string) (models.Medicine, error) {
	medicine := models.Medicine{
		BaseModel: models.BaseModel{ID: models.NewID()},
		Name:      strings.TrimSpace(name),
		Times:     normaliseTimes(times),
	}

	if err := models.Validate(medicine); err != nil {
		return models.Medicine{}, err
	}

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	medicines, err := scheduler.store.Medicines()
	if err != nil {
		return models.Medicine{}, err
	}

	if err := scheduler.store.SaveMedicines(append(medicines, medicine)); err != nil {
		return models.Medicine{}, fmt.Errorf("Add: %v", err)
	}

	scheduler.schedule(medicine)
	return medicine, nil
}

// Update replaces an existing medicine in place
func (scheduler *Scheduler) Update(medicine models.Medicine) (models.Medicine, error) {
	medicine.Name = strings.TrimSpace(medicine.Name)
	medicine.Times = normaliseTimes(medicine.Times)

	if err := models.Validate(medicine); err != nil {
		return models.Medicine{}, err
	}

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	medicines, err := scheduler.store.Medicines()
	if err != nil {
		return models.Medicine{}, err
	}

	_, index, ok := lo.FindIndexOf(medicines, func(m models.Medicine) bool { return m.ID == medicine.ID })
	if !ok {
		return models.Medicine{}, errors.Wrapf(shared.ErrNotFound, "medicine %v", medicine.ID)
	}
	medicines[index] = medicine

	if err := scheduler.store.SaveMedicines(medicines); err != nil {
		return models.Medicine{}, fmt.Errorf("Update: %v", err)
	}

	scheduler.unschedule(medicine.ID)
	scheduler.schedule(medicine)
	return medicine, nil
}

func (scheduler *Scheduler) Delete(id string) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	medicines, err := scheduler.store.Medicines()
	if err != nil {
		return err
	}

	remaining := lo.Reject(medicines, func(m models.Medicine, _ int) bool { return m.ID == id })
	if len(remaining) == len(medicines) {
		return errors.Wrapf(shared.ErrNotFound, "medicine %v", id)
	}

	if err := scheduler.store.SaveMedicines(remaining); err != nil {
		return fmt.Errorf("Delete: %v", err)
	}

	scheduler.unschedule(id)
	return nil
}

// Upcoming returns the doses still due today at or after now, earliest first
func (scheduler *Scheduler) Upcoming(now time.Time, limit int) ([]models.Dose, error) {
	medicines, err := scheduler.store.Medicines()
	if err != nil {
		return nil, err
	}

	return Upcoming(medicines, now, limit), nil
}

// SimulateAlert raises a reminder for a random dose, for testing the alert
func (scheduler *Scheduler) SimulateAlert() (Reminder, error) {
	medicines, err := scheduler.store.Medicines()
	if err != nil {
		return Reminder{}, err
	}

	medicines = lo.Filter(medicines, func(m models.Medicine, _ int) bool { return len(m.Times) > 0 })
	if len(medicines) == 0 {
		return Reminder{}, errors.Wrap(shared.ErrNotFound, "no medicines added")
	}

	medicine := medicines[rand.Intn(len(medicines))]
	timeOfDay := medicine.Times[rand.Intn(len(medicine.Times))]

	return scheduler.raise(medicine.ID, medicine.Name, timeOfDay), nil
}

func (scheduler *Scheduler) ActiveAlert() *Reminder {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	if scheduler.active == nil {
		return nil
	}
	reminder := *scheduler.active
	return &reminder
}

// Taken clears the active reminder & logs the dose in the activity log
func (scheduler *Scheduler) Taken() error {
	scheduler.mu.Lock()
	reminder := scheduler.active
	if reminder == nil {
		scheduler.mu.Unlock()
		return errors.Wrap(shared.ErrNotFound, "no active reminder")
	}
	scheduler.clear()
	scheduler.mu.Unlock()

	scheduler.publish(nil)

	err := scheduler.store.LogActivity(models.NewActivity(models.MEDICATION_ACTIVITY, reminder.MedicineName))
	if err != nil {
		return fmt.Errorf("Taken: %v", err)
	}

	logg.Infof("%v %v taken", colors.Tag(colors.Green, "dose"), reminder.MedicineName)
	return nil
}

// Snooze hides the active reminder & raises it again after the snooze period
func (scheduler *Scheduler) Snooze() error {
	scheduler.mu.Lock()
	reminder := scheduler.active
	if reminder == nil {
		scheduler.mu.Unlock()
		return errors.Wrap(shared.ErrNotFound, "no active reminder")
	}
	scheduler.clear()

	var timer *time.Timer
	timer = time.AfterFunc(scheduler.snooze, func() {
		scheduler.mu.Lock()
		current := scheduler.snoozeTimer == timer
		if current {
			scheduler.snoozeTimer = nil
		}
		scheduler.mu.Unlock()

		if current {
			scheduler.raise(reminder.MedicineID, reminder.MedicineName, reminder.Time)
		}
	})
	scheduler.snoozeTimer = timer
	scheduler.mu.Unlock()

	scheduler.publish(nil)
	return nil
}

// Close clears the active reminder & removes every daily reminder job
func (scheduler *Scheduler) Close() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	scheduler.clear()
	for id := range scheduler.scheduled {
		scheduler.unschedule(id)
	}
}

// Upcoming returns up to limit doses at or after now's time of day, ordered
// by time
func Upcoming(medicines []models.Medicine, now time.Time, limit int) []models.Dose {
	current := now.Hour()*60 + now.Minute()

	doses := []models.Dose{}
	for _, medicine := range medicines {
		for _, timeOfDay := range medicine.Times {
			if models.MinutesOfDay(timeOfDay) >= current {
				doses = append(doses, models.Dose{Name: medicine.Name, Time: timeOfDay})
			}
		}
	}

	sort.SliceStable(doses, func(i, j int) bool {
		return models.MinutesOfDay(doses[i].Time) < models.MinutesOfDay(doses[j].Time)
	})

	if limit > 0 && len(doses) > limit {
		doses = doses[:limit]
	}
	return doses
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (scheduler *Scheduler) handleReminder(args map[string]interface{}) error {
	id, _ := args["id"].(string)
	name, _ := args["name"].(string)
	timeOfDay, _ := args["time"].(string)

	if name == "" || timeOfDay == "" {
		return fmt.Errorf("%v: missing args %v", REMINDER_HANDLER, args)
	}

	scheduler.raise(id, name, timeOfDay)
	return nil
}

func (scheduler *Scheduler) raise(id, name, timeOfDay string) Reminder {
	reminder := Reminder{MedicineID: id, MedicineName: name, Time: timeOfDay, RaisedAt: scheduler.now()}

	scheduler.mu.Lock()
	scheduler.active = &reminder
	scheduler.mu.Unlock()

	logg.Infof("%v time to take %v (%v)", colors.Tag(colors.Yellow, "reminder"), name, timeOfDay)
	scheduler.publish(&reminder)
	return reminder
}

// clear must be called with mu held
func (scheduler *Scheduler) clear() {
	scheduler.active = nil
	if scheduler.snoozeTimer != nil {
		scheduler.snoozeTimer.Stop()
		scheduler.snoozeTimer = nil
	}
}

func (scheduler *Scheduler) publish(reminder *Reminder) {
	for _, notifier := range scheduler.notifiers {
		notifier.Remind(reminder)
	}
}

// schedule must be called with mu held
func (scheduler *Scheduler) schedule(medicine models.Medicine) {
	if scheduler.jobs == nil {
		return
	}

	for _, timeOfDay := range medicine.Times {
		tag := jobTag(medicine.ID, timeOfDay)
		err := scheduler.jobs.PerformDailyAt(timeOfDay, work.JobParams{
			Name:    tag,
			Handler: REMINDER_HANDLER,
			Unique:  true,
			Args: map[string]interface{}{
				"id":   medicine.ID,
				"name": medicine.Name,
				"time": timeOfDay,
			},
		})
		if err != nil {
			logg.Errorf("unable to schedule %v: %v", tag, err)
			continue
		}
		scheduler.scheduled[medicine.ID] = append(scheduler.scheduled[medicine.ID], tag)
	}
}

// unschedule must be called with mu held
func (scheduler *Scheduler) unschedule(id string) {
	if scheduler.jobs == nil {
		return
	}

	for _, tag := range scheduler.scheduled[id] {
		scheduler.jobs.RemovePeriodicJob(tag)
	}
	delete(scheduler.scheduled, id)
}

func jobTag(id, timeOfDay string) string {
	return fmt.Sprintf("med_%v_%v", id, timeOfDay)
}

// normaliseTimes drops blanks & duplicates, keeping the order given.
// Malformed values are kept so validation can reject them.
func normaliseTimes(times []string) []string {
	normalised := []string{}
	for _, value := range times {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		if hour, minute, ok := models.ParseTimeStamp(value); ok {
			value = fmt.Sprintf("%02d:%02d", hour, minute)
		}
		normalised = append(normalised, value)
	}

	return lo.Uniq(normalised)
}
