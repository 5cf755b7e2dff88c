package models

import "time"

// AlertState is the single in-flight alert exposed to the presentation layer.
type AlertState struct {
	Active   bool      `json:"active"`
	Category Category  `json:"category,omitempty"`
	Title    string    `json:"title,omitempty"`
	ID       string    `json:"id,omitempty"`
	RaisedAt time.Time `json:"raised_at,omitempty"`
}

// Detection is one category whose today count grew during a poll.
type Detection struct {
	Category Category `json:"category"`
	Previous int      `json:"previous"`
	Current  int      `json:"current"`
	Baseline bool     `json:"baseline"`
}

func (d Detection) Delta() int {
	return d.Current - d.Previous
}
