// Package service owns the live rider sessions and driver queues. It applies
// the pure transitions from the booking and queue packages and, once a
// transition has succeeded, records metrics, publishes an event and pushes
// the new snapshot to subscribers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-dashboards/internal/booking"
	"github.com/example/ride-dashboards/internal/catalog"
	"github.com/example/ride-dashboards/internal/ingest"
	"github.com/example/ride-dashboards/internal/models"
	"github.com/example/ride-dashboards/internal/observability"
	"github.com/example/ride-dashboards/internal/queue"
	"github.com/example/ride-dashboards/internal/storage"
)

var ErrSessionNotFound = errors.New("session not found")

// Notifier pushes snapshots to rendering clients subscribed to a topic.
// Close drops the topic's subscribers once the session or queue is gone.
type Notifier interface {
	Notify(topic string, v any)
	Close(topic string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, any) {}
func (nopNotifier) Close(string)       {}

type Service struct {
	provider  catalog.Provider
	publisher ingest.Publisher
	notifier  Notifier
	logger    *slog.Logger

	riders  *storage.Registry[riderEntry]
	drivers *storage.Registry[driverEntry]

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithPublisher(p ingest.Publisher) Option { return func(s *Service) { s.publisher = p } }
func WithNotifier(n Notifier) Option          { return func(s *Service) { s.notifier = n } }
func WithLogger(l *slog.Logger) Option        { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option   { return func(s *Service) { s.now = now } }
func WithIDs(newID func() string) Option      { return func(s *Service) { s.newID = newID } }

func New(provider catalog.Provider, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		publisher: ingest.NopPublisher{},
		notifier:  nopNotifier{},
		logger:    slog.Default(),
		riders:    storage.NewRegistry[riderEntry](),
		drivers:   storage.NewRegistry[driverEntry](),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func RiderTopic(id string) string  { return "rider/" + id }
func DriverTopic(id string) string { return "driver/" + id }

// emit runs the side effects of a successful transition. Publishing is
// best-effort: a broker outage must not undo a state change already stored.
// Notifications for one id may race each other; snapshots carry the entry's
// version so subscribers discard the late ones.
func (s *Service) emit(ctx context.Context, kind, subject, topic string, snapshot any) {
	ev := models.Event{ID: s.newID(), Kind: kind, Subject: subject, At: s.now().UTC(), Payload: snapshot}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		observability.EventsPublishFailures.Inc()
		s.logger.Warn("event publish failed", "kind", kind, "subject", subject, "error", err)
	}
	s.notifier.Notify(topic, snapshot)
	s.logger.Info("transition", "kind", kind, "subject", subject)
}

func recordTransition(op string, err error) {
	observability.TransitionsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, booking.ErrInvalidOfferReference):
		return "invalid_offer"
	case errors.Is(err, booking.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, queue.ErrUnknownRequest):
		return "unknown_request"
	case errors.Is(err, queue.ErrAlreadyAccepted):
		return "already_accepted"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

func observeProvider(call string, start time.Time) {
	observability.ProviderLatency.WithLabelValues(call).Observe(time.Since(start).Seconds())
}
