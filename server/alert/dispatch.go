package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/Daskott/enablex/colors"
	"github.com/Daskott/enablex/server/contacts"
	"github.com/Daskott/enablex/server/intent"
	"github.com/Daskott/enablex/server/models"
	"github.com/Daskott/enablex/shared"
	"github.com/pkg/errors"
)

// dispatch fans the alert out to the priority contacts. A failed handoff
// never stops the remaining ones. The workflow is back to idle when it
// returns.
func (w *Workflow) dispatch(ctx context.Context, reason string) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	id := w.track(cancel)
	defer w.untrack(id)

	all, err := w.deps.Contacts.List()
	if err != nil {
		w.abortDispatch()
		return nil, fmt.Errorf("dispatch: %v", err)
	}

	targets := contacts.PriorityContacts(all)
	if len(targets) == 0 {
		w.abortDispatch()
		return nil, shared.ErrNoContactsConfigured
	}

	result := &Result{Reason: reason, Location: w.resolveLocation(ctx)}
	payload := NewAlertPayload(reason, result.Location, w.now())

	for _, contact := range targets {
		result.Attempted++
		if err := w.send(ctx, contact, payload); err != nil {
			result.Failed++
			logg.Errorf("%v alert to %v failed: %v", colors.Tag(colors.Red, "dispatch"), contact.Name, err)
			continue
		}
		logg.Infof("%v alert handed off for %v", colors.Tag(colors.Orange, "dispatch"), contact.Name)
	}

	w.toIdle()
	w.logEvent(models.SOS_EVENT, fmt.Sprintf("SOS Alert sent to %d contact(s): %s", len(targets), reason), result)

	return result, nil
}

// send isolates a single handoff, a panicking dispatcher counts as failed
func (w *Workflow) send(ctx context.Context, contact models.Contact, payload Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher panicked: %v", r)
		}
	}()

	return w.deps.Dispatcher.SendAlert(ctx, contact, payload)
}

// resolveLocation prefers the cached sample, then one bounded fresh request.
// nil means the location is unavailable.
func (w *Workflow) resolveLocation(ctx context.Context) *models.LocationSample {
	if w.deps.Locations == nil {
		return nil
	}

	if cached := w.deps.Locations.Cached(); cached != nil {
		return cached
	}

	sample, err := w.deps.Locations.RequestFresh(ctx, w.opts.LocationTimeout)
	if err != nil {
		logg.Warnf("location unavailable: %v", err)
		return nil
	}

	return &sample
}

// abortDispatch returns to idle without a cool-down, nothing was sent so
// the user can try again right away
func (w *Workflow) abortDispatch() {
	w.mu.Lock()
	w.sosUntil = time.Time{}
	w.mu.Unlock()

	w.toIdle()
}

func (w *Workflow) toIdle() {
	w.mu.Lock()
	w.state = IDLE
	update := Update{Status: w.status()}
	w.mu.Unlock()

	w.publish(update)
}

// CallCaregiver dials the primary contact
func (w *Workflow) CallCaregiver(ctx context.Context) (models.Contact, error) {
	all, err := w.deps.Contacts.List()
	if err != nil {
		return models.Contact{}, fmt.Errorf("CallCaregiver: %v", err)
	}

	primary, ok := contacts.Primary(all)
	if !ok {
		return models.Contact{}, shared.ErrNoContactsConfigured
	}

	if w.deps.Dialer == nil {
		return models.Contact{}, errors.Wrap(shared.ErrUnsupported, "calling")
	}

	if err := w.deps.Dialer.Dial(ctx, primary); err != nil {
		return models.Contact{}, errors.Wrapf(shared.ErrService, "calling %v: %v", primary.Name, err)
	}

	w.logEvent(models.SOS_EVENT, fmt.Sprintf("Called %s", primary.Name), nil)
	return primary, nil
}

// ShareLocation sends a map link for the current location to the priority
// contacts & returns the link. Unlike an alert, it fails without a location.
func (w *Workflow) ShareLocation(ctx context.Context) (string, error) {
	if w.deps.Locations == nil {
		return "", shared.ErrUnsupported
	}

	ctx, cancel := context.WithCancel(ctx)
	id := w.track(cancel)
	defer w.untrack(id)

	var sample models.LocationSample
	if cached := w.deps.Locations.Cached(); cached != nil {
		sample = *cached
	} else {
		fresh, err := w.deps.Locations.RequestFresh(ctx, w.opts.LocationTimeout)
		if err != nil {
			return "", err
		}
		sample = fresh
	}

	mapURL := intent.MapsURL(sample)
	w.logEvent(models.SOS_EVENT, LOCATION_MESSAGE, nil)

	all, err := w.deps.Contacts.List()
	if err != nil {
		logg.Errorf("ShareLocation: %v", err)
		return mapURL, nil
	}

	payload := NewSharePayload(sample, w.now())
	for _, contact := range contacts.PriorityContacts(all) {
		if err := w.send(ctx, contact, payload); err != nil {
			logg.Errorf("sharing location with %v failed: %v", contact.Name, err)
		}
	}

	return mapURL, nil
}
