package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Daskott/enablex/server/contacts"
	"github.com/Daskott/enablex/server/location"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/server/store"
	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type sentAlert struct {
	contact models.Contact
	payload Payload
}

type fakeDispatcher struct {
	mu     sync.Mutex
	sent   []sentAlert
	dialed []models.Contact
	fail   map[string]error
	panics map[string]bool
}

func (dispatcher *fakeDispatcher) SendAlert(ctx context.Context, contact models.Contact, payload Payload) error {
	dispatcher.mu.Lock()
	dispatcher.sent = append(dispatcher.sent, sentAlert{contact: contact, payload: payload})
	dispatcher.mu.Unlock()

	if dispatcher.panics[contact.Name] {
		panic("handoff crashed")
	}
	return dispatcher.fail[contact.Name]
}

func (dispatcher *fakeDispatcher) Dial(ctx context.Context, contact models.Contact) error {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()

	dispatcher.dialed = append(dispatcher.dialed, contact)
	return nil
}

func (dispatcher *fakeDispatcher) Sent() []sentAlert {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	return append([]sentAlert{}, dispatcher.sent...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []Update
}

func (notifier *recordingNotifier) Notify(update Update) {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.updates = append(notifier.updates, update)
}

// Dispatched reports whether the final update of a dispatch was seen
func (notifier *recordingNotifier) Dispatched() bool {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	for _, update := range notifier.updates {
		if update.Result != nil {
			return true
		}
	}
	return false
}

func (notifier *recordingNotifier) States() []string {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	states := []string{}
	for _, update := range notifier.updates {
		states = append(states, update.State)
	}
	return states
}

type testEnv struct {
	workflow   *Workflow
	book       *contacts.Book
	locations  *location.Provider
	dispatcher *fakeDispatcher
	notifier   *recordingNotifier
}

func newTestEnv(source location.Source, opts Options) *testEnv {
	repo := store.NewRepository(store.NewMemoryKV())

	env := &testEnv{
		book:       contacts.NewBook(repo),
		locations:  location.NewProvider(repo, source),
		dispatcher: &fakeDispatcher{fail: map[string]error{}, panics: map[string]bool{}},
		notifier:   &recordingNotifier{},
	}

	env.workflow = NewWorkflow(Deps{
		Contacts:   env.book,
		Locations:  env.locations,
		Events:     repo,
		Dispatcher: env.dispatcher,
		Dialer:     env.dispatcher,
		Notifiers:  []Notifier{env.notifier},
	}, opts)

	return env
}

func (env *testEnv) addContact(t *testing.T, name, phone, category string) models.Contact {
	contact, err := env.book.Add(name, phone, category)
	assert.Nil(t, err)
	return contact
}

func (env *testEnv) eventKinds(t *testing.T) []string {
	events, err := env.workflow.Events()
	assert.Nil(t, err)

	kinds := []string{}
	for _, event := range events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

func fastOptions() Options {
	return Options{
		CountdownTicks:  3,
		Tick:            10 * time.Millisecond,
		SOSCooldown:     time.Hour,
		LocationTimeout: 50 * time.Millisecond,
	}
}

func cachedLocation(t *testing.T, env *testEnv) models.LocationSample {
	sample := models.LocationSample{Latitude: 43.6532, Longitude: -79.3832}
	assert.Nil(t, env.locations.Push(sample))
	return sample
}

func TestTriggerSOS(t *testing.T) {
	t.Run("should alert only family contacts", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)
		env.addContact(t, "Bob", "+2222", models.DOCTOR_CONTACT)
		sample := cachedLocation(t, env)

		result, err := env.workflow.TriggerSOS(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, 1, result.Attempted)
		assert.Equal(t, &sample, result.Location)

		sent := env.dispatcher.Sent()
		assert.Len(t, sent, 1)
		assert.Equal(t, "Alice", sent[0].contact.Name)
		assert.Equal(t, SOS_REASON, sent[0].payload.Reason)

		events, _ := env.workflow.Events()
		assert.Len(t, events, 1)
		assert.Equal(t, models.SOS_EVENT, events[0].Kind)
		assert.Equal(t, "SOS Alert sent to 1 contact(s): SOS Button Pressed", events[0].Message)
		assert.Equal(t, IDLE, env.workflow.Status().State)
	})

	t.Run("should alert everyone when there's no family contact", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())
		env.addContact(t, "Bob", "+2222", models.DOCTOR_CONTACT)
		env.addContact(t, "Dana", "+4444", models.DOCTOR_CONTACT)
		cachedLocation(t, env)

		result, err := env.workflow.TriggerSOS(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, 2, result.Attempted)
		assert.Len(t, env.dispatcher.Sent(), 2)
	})

	t.Run("should fail without contacts & log nothing", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())

		_, err := env.workflow.TriggerSOS(context.Background())
		assert.True(t, errors.Is(err, shared.ErrNoContactsConfigured))
		assert.Empty(t, env.dispatcher.Sent())
		assert.Empty(t, env.eventKinds(t))
		assert.Equal(t, IDLE, env.workflow.Status().State)
		assert.False(t, env.workflow.Status().SOSActive)
	})

	t.Run("should ignore repeated triggers inside cool-down", func(t *testing.T) {
		opts := fastOptions()
		opts.SOSCooldown = 3 * time.Second
		env := newTestEnv(nil, opts)
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)
		cachedLocation(t, env)

		now := time.Now()
		env.workflow.now = func() time.Time { return now }

		_, err := env.workflow.TriggerSOS(context.Background())
		assert.Nil(t, err)
		assert.True(t, env.workflow.Status().SOSActive)

		_, err = env.workflow.TriggerSOS(context.Background())
		assert.Equal(t, shared.ErrSOSInProgress, err)
		assert.Len(t, env.dispatcher.Sent(), 1)

		now = now.Add(3 * time.Second)
		_, err = env.workflow.TriggerSOS(context.Background())
		assert.Nil(t, err)
		assert.Len(t, env.dispatcher.Sent(), 2)
		assert.Equal(t, []string{models.SOS_EVENT, models.SOS_EVENT}, env.eventKinds(t))
	})

	t.Run("should keep going when a handoff fails or panics", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)
		env.addContact(t, "Carol", "+3333", models.FAMILY_CONTACT)
		env.addContact(t, "Dave", "+5555", models.FAMILY_CONTACT)
		env.dispatcher.fail["Alice"] = errors.New("no sms app")
		env.dispatcher.panics["Carol"] = true
		cachedLocation(t, env)

		result, err := env.workflow.TriggerSOS(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, 3, result.Attempted)
		assert.Equal(t, 2, result.Failed)
		assert.Len(t, env.dispatcher.Sent(), 3)
		assert.Equal(t, []string{models.SOS_EVENT}, env.eventKinds(t))
	})

	t.Run("should cancel a pending fall countdown", func(t *testing.T) {
		opts := fastOptions()
		opts.CountdownTicks = 5
		env := newTestEnv(nil, opts)
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)
		cachedLocation(t, env)

		assert.Nil(t, env.workflow.TriggerFall())
		_, err := env.workflow.TriggerSOS(context.Background())
		assert.Nil(t, err)

		time.Sleep(100 * time.Millisecond)
		assert.Len(t, env.dispatcher.Sent(), 1)
		assert.Equal(t, SOS_REASON, env.dispatcher.Sent()[0].payload.Reason)
		assert.Equal(t, []string{models.SOS_EVENT, models.FALL_EVENT}, env.eventKinds(t))
		assert.Equal(t, IDLE, env.workflow.Status().State)
	})
}

func TestDispatchLocation(t *testing.T) {
	t.Run("should fall back to fresh location when nothing is cached", func(t *testing.T) {
		sample := models.LocationSample{Latitude: 1.5, Longitude: 2.5}
		env := newTestEnv(location.FixedSource{Sample: sample}, fastOptions())
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)

		result, err := env.workflow.TriggerSOS(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, &sample, result.Location)
	})

	t.Run("should complete without location when fresh request times out", func(t *testing.T) {
		hanging := location.SourceFunc(func(ctx context.Context) (models.LocationSample, error) {
			<-ctx.Done()
			return models.LocationSample{}, ctx.Err()
		})
		env := newTestEnv(hanging, fastOptions())
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)

		start := time.Now()
		result, err := env.workflow.TriggerSOS(context.Background())
		assert.Nil(t, err)
		assert.Less(t, time.Since(start), time.Second)
		assert.Nil(t, result.Location)

		sent := env.dispatcher.Sent()
		assert.Len(t, sent, 1)
		assert.Contains(t, sent[0].payload.Message(), "Location: Unable to retrieve")
		assert.Equal(t, []string{models.SOS_EVENT}, env.eventKinds(t))
	})
}

func TestFallCountdown(t *testing.T) {
	t.Run("should dispatch when countdown runs out", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)
		env.addContact(t, "Bob", "+2222", models.DOCTOR_CONTACT)
		cachedLocation(t, env)

		assert.Nil(t, env.workflow.TriggerFall())
		assert.Equal(t, FALL_PENDING, env.workflow.Status().State)

		assert.Eventually(t, func() bool {
			return len(env.eventKinds(t)) == 2
		}, 2*time.Second, 5*time.Millisecond)
		assert.Len(t, env.dispatcher.Sent(), 1)
		assert.Equal(t, IDLE, env.workflow.Status().State)

		assert.Equal(t, FALL_TIMEOUT_REASON, env.dispatcher.Sent()[0].payload.Reason)
		assert.Equal(t, RESOLVED_DISPATCH, env.workflow.Status().LastResolution)

		events, _ := env.workflow.Events()
		assert.Len(t, events, 2)
		assert.Equal(t, "SOS Alert sent to 1 contact(s): FALL DETECTED - User did not respond", events[0].Message)
		assert.Equal(t, FALL_STARTED_MESSAGE, events[1].Message)

		_, err := env.workflow.TriggerSOS(context.Background())
		assert.Equal(t, shared.ErrSOSInProgress, err, "Timed out fall should start the cool-down")
		assert.Len(t, env.dispatcher.Sent(), 1)
	})

	t.Run("should resolve ok without dispatch", func(t *testing.T) {
		opts := fastOptions()
		opts.CountdownTicks = 10
		env := newTestEnv(nil, opts)
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)

		assert.Nil(t, env.workflow.TriggerFall())
		time.Sleep(30 * time.Millisecond)
		assert.Nil(t, env.workflow.ImFine())

		status := env.workflow.Status()
		assert.Equal(t, IDLE, status.State)
		assert.Equal(t, 10, status.Remaining)
		assert.Equal(t, RESOLVED_OK, status.LastResolution)

		time.Sleep(150 * time.Millisecond)
		assert.Empty(t, env.dispatcher.Sent())
		assert.Equal(t, []string{models.OK_EVENT, models.FALL_EVENT}, env.eventKinds(t))
	})

	t.Run("should resolve cancelled without dispatch", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)

		assert.Nil(t, env.workflow.TriggerFall())
		assert.Nil(t, env.workflow.CancelFall())

		time.Sleep(80 * time.Millisecond)
		assert.Empty(t, env.dispatcher.Sent())
		assert.Equal(t, []string{models.CANCELLED_EVENT, models.FALL_EVENT}, env.eventKinds(t))
	})

	t.Run("should only resolve a pending countdown", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())

		assert.Equal(t, shared.ErrNoCountdown, env.workflow.ImFine())
		assert.Equal(t, shared.ErrNoCountdown, env.workflow.CancelFall())
		assert.Equal(t, shared.ErrNoCountdown, env.workflow.RestartCountdown())
		assert.Empty(t, env.eventKinds(t))
	})

	t.Run("should keep a single continuous countdown", func(t *testing.T) {
		opts := fastOptions()
		opts.CountdownTicks = 100
		opts.Tick = 20 * time.Millisecond
		env := newTestEnv(nil, opts)
		defer env.workflow.Close()

		assert.Nil(t, env.workflow.TriggerFall())
		assert.Eventually(t, func() bool {
			return env.workflow.Status().Remaining <= 97
		}, 2*time.Second, 5*time.Millisecond)

		assert.Equal(t, shared.ErrCountdownActive, env.workflow.TriggerFall())
		assert.LessOrEqual(t, env.workflow.Status().Remaining, 97)
		assert.Equal(t, []string{models.FALL_EVENT}, env.eventKinds(t))

		assert.Nil(t, env.workflow.RestartCountdown())
		assert.GreaterOrEqual(t, env.workflow.Status().Remaining, 99)
	})

	t.Run("should stop countdown on close", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)

		assert.Nil(t, env.workflow.TriggerFall())
		env.workflow.Close()

		time.Sleep(80 * time.Millisecond)
		assert.Empty(t, env.dispatcher.Sent())
		assert.Equal(t, IDLE, env.workflow.Status().State)
		assert.Equal(t, []string{models.FALL_EVENT}, env.eventKinds(t))
	})

	t.Run("should abort location lookup on close", func(t *testing.T) {
		opts := fastOptions()
		opts.LocationTimeout = 5 * time.Second
		env := newTestEnv(nil, opts)
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)

		done := make(chan *Result, 1)
		go func() {
			result, _ := env.workflow.TriggerSOS(context.Background())
			done <- result
		}()

		assert.Eventually(t, func() bool {
			return env.workflow.Status().State == DISPATCHING
		}, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		start := time.Now()
		env.workflow.Close()

		select {
		case result := <-done:
			assert.Less(t, time.Since(start), time.Second)
			assert.Nil(t, result.Location)
		case <-time.After(2 * time.Second):
			t.Fatal("dispatch still waiting for a location after close")
		}
		assert.Equal(t, []string{models.SOS_EVENT}, env.eventKinds(t))
	})

	t.Run("should publish transitions", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)
		cachedLocation(t, env)

		assert.Nil(t, env.workflow.TriggerFall())
		assert.Eventually(t, env.notifier.Dispatched, 2*time.Second, 5*time.Millisecond)

		states := env.notifier.States()
		assert.Equal(t, FALL_PENDING, states[0])
		assert.Contains(t, states, DISPATCHING)
		assert.Equal(t, IDLE, states[len(states)-1])
	})
}

func TestEventLogCap(t *testing.T) {
	log := NewEventLog(store.NewRepository(store.NewMemoryKV()))

	for i := 0; i < models.MAX_EMERGENCY_EVENTS+1; i++ {
		_, err := log.Append(models.FALL_EVENT, string(rune('a'+i)))
		assert.Nil(t, err)
	}

	events, err := log.List()
	assert.Nil(t, err)
	assert.Len(t, events, models.MAX_EMERGENCY_EVENTS)
	assert.Equal(t, "k", events[0].Message)
	assert.Equal(t, "b", events[len(events)-1].Message)
}

func TestCallCaregiver(t *testing.T) {
	env := newTestEnv(nil, fastOptions())

	_, err := env.workflow.CallCaregiver(context.Background())
	assert.True(t, errors.Is(err, shared.ErrNoContactsConfigured))

	env.addContact(t, "Bob", "+2222", models.DOCTOR_CONTACT)
	env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)

	contact, err := env.workflow.CallCaregiver(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, "Alice", contact.Name)

	events, _ := env.workflow.Events()
	assert.Equal(t, "Called Alice", events[0].Message)
	assert.Equal(t, models.SOS_EVENT, events[0].Kind)
}

func TestShareLocation(t *testing.T) {
	t.Run("should share map link with priority contacts", func(t *testing.T) {
		env := newTestEnv(nil, fastOptions())
		env.addContact(t, "Alice", "+1111", models.FAMILY_CONTACT)
		cachedLocation(t, env)

		link, err := env.workflow.ShareLocation(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=43.6532%2C-79.3832", link)

		sent := env.dispatcher.Sent()
		assert.Len(t, sent, 1)
		assert.Equal(t, SHARE_PAYLOAD, sent[0].payload.Kind)
		assert.Equal(t, []string{models.SOS_EVENT}, env.eventKinds(t))
	})

	t.Run("should fail without any location", func(t *testing.T) {
		env := newTestEnv(location.UnsupportedSource{}, fastOptions())

		_, err := env.workflow.ShareLocation(context.Background())
		assert.True(t, errors.Is(err, shared.ErrUnsupported))
		assert.Empty(t, env.eventKinds(t))
	})
}
