package models

import "time"

const (
	SOS_EVENT       = "sos"
	FALL_EVENT      = "fall"
	CANCELLED_EVENT = "cancelled"
	OK_EVENT        = "ok"

	MAX_EMERGENCY_EVENTS = 10
)

type EmergencyEvent struct {
	BaseModel
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"type"`
}

func NewEmergencyEvent(kind, message string) EmergencyEvent {
	return EmergencyEvent{
		BaseModel: BaseModel{ID: NewID()},
		Message:   message,
		Timestamp: now(),
		Kind:      kind,
	}
}
