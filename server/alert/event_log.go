package alert

import (
	"fmt"
	"sync"

	"github.com/Daskott/enablex/server/models"
)

type EventStore interface {
	EventLog() ([]models.EmergencyEvent, error)
	SaveEventLog(events []models.EmergencyEvent) error
}

// EventLog keeps the most recent emergency events, newest first
type EventLog struct {
	mu    sync.Mutex
	store EventStore
}

func NewEventLog(store EventStore) *EventLog {
	return &EventLog{store: store}
}

// Append adds an event to the front of the log, dropping the oldest
// once there are more than MAX_EMERGENCY_EVENTS
func (log *EventLog) Append(kind, message string) (models.EmergencyEvent, error) {
	log.mu.Lock()
	defer log.mu.Unlock()

	event := models.NewEmergencyEvent(kind, message)

	events, err := log.store.EventLog()
	if err != nil {
		logg.Warnf("discarding unreadable event log: %v", err)
		events = nil
	}

	events = append([]models.EmergencyEvent{event}, events...)
	if len(events) > models.MAX_EMERGENCY_EVENTS {
		events = events[:models.MAX_EMERGENCY_EVENTS]
	}

	if err := log.store.SaveEventLog(events); err != nil {
		return event, fmt.Errorf("Append: %v", err)
	}

	return event, nil
}

func (log *EventLog) List() ([]models.EmergencyEvent, error) {
	log.mu.Lock()
	defer log.mu.Unlock()

	return log.store.EventLog()
}
