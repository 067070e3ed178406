package models

type Medicine struct {
	BaseModel
	Name  string   `json:"name" validate:"required"`
	Times []string `json:"times" validate:"required,min=1,dive,time_stamp"`
}

// Dose is a single upcoming intake of a medicine
type Dose struct {
	Name string `json:"name"`
	Time string `json:"time"`
}
