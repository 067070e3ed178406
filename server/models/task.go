package models

import "time"

type Task struct {
	BaseModel
	Title     string    `json:"title" validate:"required"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}
