package models

import "time"

const (
	MEDICATION_ACTIVITY = "medication"
	TASK_ACTIVITY       = "task"

	COMPLETED_ACTIVITY = "completed"

	MAX_ACTIVITIES = 100
)

// Activity records something the user completed, e.g. took a medicine
type Activity struct {
	BaseModel
	Kind      string    `json:"type"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

func NewActivity(kind, title string) Activity {
	return Activity{
		BaseModel: BaseModel{ID: NewID()},
		Kind:      kind,
		Title:     title,
		Timestamp: now(),
		Status:    COMPLETED_ACTIVITY,
	}
}
