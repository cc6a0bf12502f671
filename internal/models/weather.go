package models

import "time"

// WeatherReading is a measurement supplied by the weather collaborator.
type WeatherReading struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // %
	Description string    `json:"description"`
	MeasuredAt  time.Time `json:"measured_at"`
}
