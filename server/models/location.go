package models

import "fmt"

type LocationSample struct {
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lng" validate:"longitude"`
}

func (sample LocationSample) String() string {
	return fmt.Sprintf("%.6f, %.6f", sample.Latitude, sample.Longitude)
}
