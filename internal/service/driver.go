package service

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ride-dashboards/internal/models"
	"github.com/example/ride-dashboards/internal/observability"
	"github.com/example/ride-dashboards/internal/queue"
)

type driverEntry struct {
	queue   queue.Queue
	version uint64
}

type DriverView struct {
	ID      string `json:"id"`
	Version uint64 `json:"version"`
	queue.Snapshot
}

func (v DriverView) SnapshotVersion() uint64 { return v.Version }

func (e driverEntry) view(id string) DriverView {
	return DriverView{ID: id, Version: e.version, Snapshot: e.queue.Snapshot()}
}

func (s *Service) OpenDriver(ctx context.Context) (DriverView, error) {
	start := time.Now()
	reqs, err := s.provider.PendingRequests(ctx)
	observeProvider("pending_requests", start)
	if err != nil {
		return DriverView{}, fmt.Errorf("load requests: %w", err)
	}
	q, err := queue.New(reqs)
	if err != nil {
		return DriverView{}, err
	}
	id := s.newID()
	e := driverEntry{queue: q, version: 1}
	s.drivers.Put(id, e)
	observability.QueuesOpen.Inc()
	v := e.view(id)
	s.emit(ctx, models.EventQueueOpened, id, DriverTopic(id), v)
	return v, nil
}

func (s *Service) Driver(_ context.Context, id string) (DriverView, error) {
	e, err := s.drivers.Get(id)
	if err != nil {
		return DriverView{}, notFound(err)
	}
	return e.view(id), nil
}

func (s *Service) CloseDriver(_ context.Context, id string) error {
	if _, ok := s.drivers.Remove(id); !ok {
		return ErrSessionNotFound
	}
	observability.QueuesOpen.Dec()
	s.notifier.Close(DriverTopic(id))
	s.logger.Info("driver queue closed", "queue", id)
	return nil
}

func (s *Service) Accept(ctx context.Context, id, requestID string) (DriverView, error) {
	return s.applyDriver(ctx, "accept", models.EventQueueAccepted, id, func(q queue.Queue) (queue.Queue, error) {
		return q.Accept(requestID)
	})
}

// Reject takes a pending request off the driver's queue.
func (s *Service) Reject(ctx context.Context, id, requestID string) (DriverView, error) {
	return s.applyDriver(ctx, "reject", models.EventQueueRejected, id, func(q queue.Queue) (queue.Queue, error) {
		return q.Reject(requestID)
	})
}

func (s *Service) applyDriver(ctx context.Context, op, kind, id string, fn func(queue.Queue) (queue.Queue, error)) (DriverView, error) {
	e, err := s.drivers.Update(id, func(e driverEntry) (driverEntry, error) {
		next, err := fn(e.queue)
		if err != nil {
			return e, err
		}
		e.queue = next
		e.version++
		return e, nil
	})
	err = notFound(err)
	recordTransition(op, err)
	if err != nil {
		s.logger.Debug("driver transition rejected", "op", op, "queue", id, "error", err)
		return DriverView{}, err
	}
	v := e.view(id)
	s.emit(ctx, kind, id, DriverTopic(id), v)
	return v, nil
}
