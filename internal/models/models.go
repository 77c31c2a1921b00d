package models

import (
	"fmt"
	"math"
	"time"
)

type Category string

const (
	CategoryEconomy Category = "economy"
	CategoryComfort Category = "comfort"
	CategoryPremium Category = "premium"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryEconomy, CategoryComfort, CategoryPremium:
		return true
	}
	return false
}

// RideOffer is one bookable proposal shown to a browsing rider.
// The label fields are display strings and are never parsed.
type RideOffer struct {
	ID            string   `json:"id" yaml:"id"`
	DriverName    string   `json:"driver_name" yaml:"driver_name"`
	Rating        float64  `json:"rating" yaml:"rating"` // 0..5
	Vehicle       string   `json:"vehicle" yaml:"vehicle"`
	Plate         string   `json:"plate" yaml:"plate"`
	ETALabel      string   `json:"eta" yaml:"eta"`
	DurationLabel string   `json:"duration" yaml:"duration"`
	DistanceLabel string   `json:"distance" yaml:"distance"`
	Price         float64  `json:"price" yaml:"price"`
	Category      Category `json:"category" yaml:"category"`
}

func (o RideOffer) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("offer: empty id")
	}
	if !finite(o.Rating) || o.Rating < 0 || o.Rating > 5 {
		return fmt.Errorf("offer %s: rating %.2f out of range", o.ID, o.Rating)
	}
	if !finite(o.Price) || o.Price < 0 {
		return fmt.Errorf("offer %s: price %v not a non-negative number", o.ID, o.Price)
	}
	if !o.Category.Valid() {
		return fmt.Errorf("offer %s: unknown category %q", o.ID, o.Category)
	}
	return nil
}

// RideRequest is a pending trip shown on the driver dashboard.
type RideRequest struct {
	ID              string  `json:"id" yaml:"id"`
	Pickup          string  `json:"pickup" yaml:"pickup"`
	Dropoff         string  `json:"dropoff" yaml:"dropoff"`
	DistanceLabel   string  `json:"distance" yaml:"distance"`
	DurationLabel   string  `json:"duration" yaml:"duration"`
	Fare            float64 `json:"fare" yaml:"fare"`
	PassengerRating float64 `json:"passenger_rating" yaml:"passenger_rating"`
}

func (r RideRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("request: empty id")
	}
	if !finite(r.Fare) || r.Fare < 0 {
		return fmt.Errorf("request %s: fare %v not a non-negative number", r.ID, r.Fare)
	}
	if !finite(r.PassengerRating) || r.PassengerRating < 0 || r.PassengerRating > 5 {
		return fmt.Errorf("request %s: passenger rating %.2f out of range", r.ID, r.PassengerRating)
	}
	return nil
}

// finite is false for NaN and ±Inf, which compare false against any bound
// and cannot be encoded as JSON.
func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Event records a successful session or queue transition.
type Event struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Subject string    `json:"subject"` // session or queue id
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

const (
	EventSessionOpened   = "session.opened"
	EventSessionBooked   = "session.booked"
	EventSessionRebooked = "session.rebooked"
	EventSessionCanceled = "session.canceled"
	EventQueueOpened     = "queue.opened"
	EventQueueAccepted   = "queue.accepted"
	EventQueueRejected   = "queue.rejected"
)
