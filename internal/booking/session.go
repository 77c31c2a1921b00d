// Package booking holds the rider booking lifecycle: a session is either
// browsing the catalog or holds exactly one confirmed offer.
//
// Transitions are methods on the Session value and return a new value; the
// receiver is never modified, so a failed transition leaves the caller's
// state exactly as it was.
package booking

import (
	"errors"
	"fmt"

	"github.com/example/ride-dashboards/internal/models"
)

var (
	ErrInvalidOfferReference = errors.New("offer not in catalog")
	ErrInvalidTransition     = errors.New("invalid transition")
)

type State string

const (
	Browsing  State = "browsing"
	Confirmed State = "confirmed"
)

// Session is the rider-side record of which offer, if any, is confirmed.
// Offer is non-nil exactly when State is Confirmed.
type Session struct {
	State State             `json:"state"`
	Offer *models.RideOffer `json:"offer,omitempty"`
}

func NewSession() Session {
	return Session{State: Browsing}
}

// Book confirms the offer with the given id. It is only valid while browsing;
// use Rebook to replace an already confirmed offer.
func (s Session) Book(c *Catalog, offerID string) (Session, error) {
	if s.State != Browsing {
		return s, fmt.Errorf("book while %s: %w", s.State, ErrInvalidTransition)
	}
	return s.confirm(c, offerID)
}

// Rebook confirms offerID from either state, overwriting any previous offer.
func (s Session) Rebook(c *Catalog, offerID string) (Session, error) {
	return s.confirm(c, offerID)
}

// Cancel drops the confirmed offer and returns to browsing.
func (s Session) Cancel() (Session, error) {
	if s.State != Confirmed {
		return s, fmt.Errorf("cancel while %s: %w", s.State, ErrInvalidTransition)
	}
	return NewSession(), nil
}

func (s Session) confirm(c *Catalog, offerID string) (Session, error) {
	if c == nil {
		return s, fmt.Errorf("offer %q: %w", offerID, ErrInvalidOfferReference)
	}
	o, ok := c.Lookup(offerID)
	if !ok {
		return s, fmt.Errorf("offer %q: %w", offerID, ErrInvalidOfferReference)
	}
	return Session{State: Confirmed, Offer: &o}, nil
}

// HasOffer reports whether an offer is currently held.
func (s Session) HasOffer() bool { return s.State == Confirmed && s.Offer != nil }
