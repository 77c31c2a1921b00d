package service

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ride-dashboards/internal/booking"
	"github.com/example/ride-dashboards/internal/models"
	"github.com/example/ride-dashboards/internal/observability"
)

// riderEntry pairs a session with the catalog snapshot it was opened
// against; the snapshot stays fixed for the life of the session. version
// counts successful transitions, starting at 1 when opened.
type riderEntry struct {
	catalog *booking.Catalog
	session booking.Session
	version uint64
}

// RiderView is what a rider dashboard renders.
type RiderView struct {
	ID      string             `json:"id"`
	Version uint64             `json:"version"`
	State   booking.State      `json:"state"`
	Offer   *models.RideOffer  `json:"offer,omitempty"`
	Offers  []models.RideOffer `json:"offers"`
}

func (v RiderView) SnapshotVersion() uint64 { return v.Version }

func (e riderEntry) view(id string) RiderView {
	return RiderView{ID: id, Version: e.version, State: e.session.State, Offer: e.session.Offer, Offers: e.catalog.Offers()}
}

// Offers returns a fresh catalog snapshot from the provider.
func (s *Service) Offers(ctx context.Context) ([]models.RideOffer, error) {
	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Offers(), nil
}

func (s *Service) loadCatalog(ctx context.Context) (*booking.Catalog, error) {
	defer observeProvider("offers", time.Now())
	offers, err := s.provider.Offers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}
	return booking.NewCatalog(offers)
}

// OpenRider starts a browsing session over the current catalog.
func (s *Service) OpenRider(ctx context.Context) (RiderView, error) {
	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return RiderView{}, err
	}
	id := s.newID()
	e := riderEntry{catalog: cat, session: booking.NewSession(), version: 1}
	s.riders.Put(id, e)
	observability.SessionsOpen.Inc()
	v := e.view(id)
	s.emit(ctx, models.EventSessionOpened, id, RiderTopic(id), v)
	return v, nil
}

func (s *Service) Rider(_ context.Context, id string) (RiderView, error) {
	e, err := s.riders.Get(id)
	if err != nil {
		return RiderView{}, notFound(err)
	}
	return e.view(id), nil
}

func (s *Service) CloseRider(_ context.Context, id string) error {
	if _, ok := s.riders.Remove(id); !ok {
		return ErrSessionNotFound
	}
	observability.SessionsOpen.Dec()
	s.notifier.Close(RiderTopic(id))
	s.logger.Info("rider session closed", "session", id)
	return nil
}

func (s *Service) Book(ctx context.Context, id, offerID string) (RiderView, error) {
	return s.applyRider(ctx, "book", models.EventSessionBooked, id, func(e riderEntry) (booking.Session, error) {
		return e.session.Book(e.catalog, offerID)
	})
}

func (s *Service) Rebook(ctx context.Context, id, offerID string) (RiderView, error) {
	return s.applyRider(ctx, "rebook", models.EventSessionRebooked, id, func(e riderEntry) (booking.Session, error) {
		return e.session.Rebook(e.catalog, offerID)
	})
}

func (s *Service) Cancel(ctx context.Context, id string) (RiderView, error) {
	return s.applyRider(ctx, "cancel", models.EventSessionCanceled, id, func(e riderEntry) (booking.Session, error) {
		return e.session.Cancel()
	})
}

func (s *Service) applyRider(ctx context.Context, op, kind, id string, fn func(riderEntry) (booking.Session, error)) (RiderView, error) {
	e, err := s.riders.Update(id, func(e riderEntry) (riderEntry, error) {
		next, err := fn(e)
		if err != nil {
			return e, err
		}
		e.session = next
		e.version++
		return e, nil
	})
	err = notFound(err)
	recordTransition(op, err)
	if err != nil {
		s.logger.Debug("rider transition rejected", "op", op, "session", id, "error", err)
		return RiderView{}, err
	}
	v := e.view(id)
	s.emit(ctx, kind, id, RiderTopic(id), v)
	return v, nil
}
