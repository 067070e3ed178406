package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Daskott/enablex/server/logger"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/shared"
	"github.com/golang/geo/s2"
	"github.com/pkg/errors"
)

const (
	EARTH_RADIUS_METERS = 6371010.0

	DEFAULT_WATCH_INTERVAL = 5 * time.Second
)

var logg = logger.NewLogger("location")

// Store persists the most recent sample
type Store interface {
	Location() (*models.LocationSample, error)
	SaveLocation(sample models.LocationSample) error
}

// Requester asks the device UI for one position, answered through Push or Fail
type Requester interface {
	RequestLocation(timeout time.Duration)
}

type waiter chan result

type result struct {
	sample models.LocationSample
	err    error
}

// Provider keeps the single most recent location sample. Samples arrive
// either from a Source (polled while watching or on a fresh request) or
// are pushed by the device UI.
type Provider struct {
	mu        sync.Mutex
	store     Store
	source    Source
	requester Requester
	cached    *models.LocationSample
	lastErr   error
	waiters   map[waiter]struct{}
	cancels   map[int]context.CancelFunc
	nextID    int
	watching  bool
	stopChan  chan struct{}
}

// NewProvider restores the cached sample from store. A nil source means
// positions only come from the device via Push, see SetRequester.
func NewProvider(store Store, source Source) *Provider {
	provider := &Provider{
		store:   store,
		source:  source,
		waiters: make(map[waiter]struct{}),
		cancels: make(map[int]context.CancelFunc),
	}

	sample, err := store.Location()
	if err != nil {
		logg.Warnf("unable to restore cached location: %v", err)
	}
	provider.cached = sample

	return provider
}

// SetRequester sets who is asked for a position when there's no source
func (provider *Provider) SetRequester(requester Requester) {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	provider.requester = requester
}

// Cached returns the most recent sample or nil, it never blocks
func (provider *Provider) Cached() *models.LocationSample {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	if provider.cached == nil {
		return nil
	}
	sample := *provider.cached
	return &sample
}

// LastError is the last failure reported for the location source, nil once
// a sample arrives
func (provider *Provider) LastError() error {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return provider.lastErr
}

// Push records a new sample, last write wins
func (provider *Provider) Push(sample models.LocationSample) error {
	point := s2.LatLngFromDegrees(sample.Latitude, sample.Longitude)
	if !point.IsValid() {
		return errors.Wrapf(shared.ErrInvalidInput, "invalid coordinates %v", sample)
	}

	provider.mu.Lock()
	previous := provider.cached
	provider.cached = &sample
	provider.lastErr = nil
	provider.notify(result{sample: sample})
	provider.mu.Unlock()

	if previous != nil {
		logg.Debugf("moved %.1fm to %v", Distance(*previous, sample), sample)
	}

	if err := provider.store.SaveLocation(sample); err != nil {
		return fmt.Errorf("Push: %v", err)
	}
	return nil
}

// Fail records a failure reported by the device e.g. permission denied.
// Pending fresh requests fail with the same error.
func (provider *Provider) Fail(err error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	provider.lastErr = err
	provider.notify(result{err: err})
}

// RequestFresh asks for one new sample, bounded by timeout. It fails with
// shared.ErrTimeout when nothing arrives in time.
func (provider *Provider) RequestFresh(ctx context.Context, timeout time.Duration) (models.LocationSample, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	id := provider.track(cancel)
	defer provider.untrack(id)

	var res result
	if provider.source != nil {
		res.sample, res.err = provider.source.CurrentPosition(ctx)
	} else {
		res = provider.waitForPush(ctx, timeout)
	}

	if res.err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.LocationSample{}, errors.Wrapf(shared.ErrTimeout, "no location after %v", timeout)
		}
		return models.LocationSample{}, res.err
	}

	if provider.source != nil {
		if err := provider.Push(res.sample); err != nil {
			return models.LocationSample{}, err
		}
	}
	return res.sample, nil
}

// StartWatch starts polling the source every interval until StopWatch.
// Without a source the device is expected to push samples while watching.
func (provider *Provider) StartWatch(interval time.Duration) {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	if provider.watching {
		return
	}
	provider.watching = true

	if provider.source == nil {
		return
	}

	if interval <= 0 {
		interval = DEFAULT_WATCH_INTERVAL
	}

	provider.stopChan = make(chan struct{})
	go provider.watch(interval, provider.stopChan)
}

func (provider *Provider) StopWatch() {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	if !provider.watching {
		return
	}
	provider.watching = false

	if provider.stopChan != nil {
		close(provider.stopChan)
		provider.stopChan = nil
	}
}

func (provider *Provider) Watching() bool {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return provider.watching
}

// Close stops watching and cancels pending fresh requests
func (provider *Provider) Close() {
	provider.StopWatch()

	provider.mu.Lock()
	defer provider.mu.Unlock()
	for id, cancel := range provider.cancels {
		cancel()
		delete(provider.cancels, id)
	}
}

// Distance returns the great circle distance between two samples in meters
func Distance(from, to models.LocationSample) float64 {
	a := s2.LatLngFromDegrees(from.Latitude, from.Longitude)
	b := s2.LatLngFromDegrees(to.Latitude, to.Longitude)
	return a.Distance(b).Radians() * EARTH_RADIUS_METERS
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (provider *Provider) watch(interval time.Duration, stopChan chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		provider.poll(interval)

		select {
		case <-stopChan:
			return
		case <-ticker.C:
		}
	}
}

func (provider *Provider) poll(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sample, err := provider.source.CurrentPosition(ctx)
	if err != nil {
		provider.Fail(err)
		logg.Warnf("watch: %v", err)
		return
	}

	if err := provider.Push(sample); err != nil {
		logg.Error(err)
	}
}

// notify must be called with mu held
func (provider *Provider) notify(res result) {
	for w := range provider.waiters {
		w <- res
		delete(provider.waiters, w)
	}
}

func (provider *Provider) waitForPush(ctx context.Context, timeout time.Duration) result {
	w := make(waiter, 1)

	provider.mu.Lock()
	provider.waiters[w] = struct{}{}
	requester := provider.requester
	provider.mu.Unlock()

	if requester != nil {
		requester.RequestLocation(timeout)
	}

	select {
	case res := <-w:
		return res
	case <-ctx.Done():
		provider.mu.Lock()
		delete(provider.waiters, w)
		provider.mu.Unlock()
		return result{err: ctx.Err()}
	}
}

func (provider *Provider) track(cancel context.CancelFunc) int {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	provider.nextID++
	provider.cancels[provider.nextID] = cancel
	return provider.nextID
}

func (provider *Provider) untrack(id int) {
	provider.mu.Lock()
	cancel, ok := provider.cancels[id]
	delete(provider.cancels, id)
	provider.mu.Unlock()

	if ok {
		cancel()
	}
}
