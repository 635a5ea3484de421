// Package events turns NASA EONET and FIRMS feeds into map events.
package events

import (
	"time"

	"github.com/i474232898/meteo-aggregation/internal/meteo"
)

// Type is the map marker category.
type Type string

const (
	TypeFire      Type = "fire"
	TypeSmoke     Type = "smoke"
	TypePollution Type = "pollution"
	TypeGood      Type = "good"
)

// Event is one marker shown on the map. Community votes start at zero.
type Event struct {
	ID            string     `json:"id"`
	Type          Type       `json:"type"`
	Lat           float64    `json:"lat"`
	Lng           float64    `json:"lng"`
	Description   string     `json:"description"`
	User          string     `json:"user"`
	Time          *time.Time `json:"time"`
	Confirmations int        `json:"confirmations"`
	FalseReports  int        `json:"falseReports"`
	Source        string     `json:"source"`

	// FIRMS only.
	Brightness *meteo.Float `json:"brightness,omitempty"`
	Confidence *meteo.Float `json:"confidence,omitempty"`
	FRP        *meteo.Float `json:"frp,omitempty"`
}
