// Package queue tracks the ride requests offered to a driver: the ones still
// pending and the ids the driver accepted. Like booking.Session, a Queue is a
// value; every operation returns a new Queue and leaves the receiver as is.
package queue

import (
	"errors"
	"fmt"

	"github.com/example/ride-dashboards/internal/models"
)

var (
	ErrUnknownRequest  = errors.New("unknown ride request")
	ErrAlreadyAccepted = errors.New("ride request already accepted")
)

type Queue struct {
	pending  []models.RideRequest
	accepted []string
}

func New(requests []models.RideRequest) (Queue, error) {
	seen := make(map[string]struct{}, len(requests))
	pending := make([]models.RideRequest, 0, len(requests))
	for _, r := range requests {
		if err := r.Validate(); err != nil {
			return Queue{}, err
		}
		if _, dup := seen[r.ID]; dup {
			return Queue{}, fmt.Errorf("request %s: duplicate id", r.ID)
		}
		seen[r.ID] = struct{}{}
		pending = append(pending, r)
	}
	return Queue{pending: pending}, nil
}

// Accept records id as accepted and takes it off the pending list.
// Accepting an id twice is a no-op.
func (q Queue) Accept(id string) (Queue, error) {
	if q.IsAccepted(id) {
		return q, nil
	}
	i := q.pendingIndex(id)
	if i < 0 {
		return q, fmt.Errorf("accept %q: %w", id, ErrUnknownRequest)
	}
	next := Queue{
		pending:  without(q.pending, i),
		accepted: append(append(make([]string, 0, len(q.accepted)+1), q.accepted...), id),
	}
	return next, nil
}

// Reject removes a pending request. Accepted requests cannot be rejected.
func (q Queue) Reject(id string) (Queue, error) {
	if q.IsAccepted(id) {
		return q, fmt.Errorf("reject %q: %w", id, ErrAlreadyAccepted)
	}
	i := q.pendingIndex(id)
	if i < 0 {
		return q, fmt.Errorf("reject %q: %w", id, ErrUnknownRequest)
	}
	return Queue{pending: without(q.pending, i), accepted: q.accepted}, nil
}

func (q Queue) Pending() []models.RideRequest {
	out := make([]models.RideRequest, len(q.pending))
	copy(out, q.pending)
	return out
}

// Accepted returns accepted ids in the order they were accepted.
func (q Queue) Accepted() []string {
	out := make([]string, len(q.accepted))
	copy(out, q.accepted)
	return out
}

func (q Queue) IsAccepted(id string) bool {
	for _, a := range q.accepted {
		if a == id {
			return true
		}
	}
	return false
}

func (q Queue) pendingIndex(id string) int {
	for i, r := range q.pending {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func without(rs []models.RideRequest, i int) []models.RideRequest {
	out := make([]models.RideRequest, 0, len(rs)-1)
	out = append(out, rs[:i]...)
	return append(out, rs[i+1:]...)
}

// Snapshot is the JSON view of a queue.
type Snapshot struct {
	Pending  []models.RideRequest `json:"pending"`
	Accepted []string             `json:"accepted"`
}

func (q Queue) Snapshot() Snapshot {
	return Snapshot{Pending: q.Pending(), Accepted: q.Accepted()}
}
