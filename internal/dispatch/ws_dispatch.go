package dispatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn a subscriber needs.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Versioned snapshots carry a per-topic sequence number. A subscriber never
// receives a snapshot older than, or equal to, one it already has.
type Versioned interface {
	SnapshotVersion() uint64
}

// WSSession is one connected rendering client.
type WSSession struct {
	conn Conn
	mu   sync.Mutex
	last uint64
}

func (s *WSSession) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(v)
}

func (s *WSSession) sendLocked(v any) error {
	if vv, ok := v.(Versioned); ok {
		ver := vv.SnapshotVersion()
		if ver != 0 && ver <= s.last {
			return nil
		}
		s.last = ver
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

const writeWait = 5 * time.Second

// WSRegistry fans snapshots out to the clients subscribed to a topic
// (a rider session or driver queue).
type WSRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[*WSSession]struct{}
	logger *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSRegistry{topics: make(map[string]map[*WSSession]struct{}), logger: logger}
}

// Add subscribes conn to topic and returns a func that removes it again.
func (r *WSRegistry) Add(topic string, conn Conn) (*WSSession, func()) {
	s := &WSSession{conn: conn}
	r.add(topic, s)
	return s, func() { r.remove(topic, s) }
}

// Subscribe is Add followed by sending the value returned by current. The
// session is registered before current runs and stays locked until the
// value is written, so a notification racing the subscription is either
// already reflected in that value or delivered after it.
func (r *WSRegistry) Subscribe(topic string, conn Conn, current func() (any, error)) (*WSSession, func(), error) {
	s := &WSSession{conn: conn}
	s.mu.Lock()
	r.add(topic, s)
	remove := func() { r.remove(topic, s) }

	v, err := current()
	if err == nil {
		err = s.sendLocked(v)
	}
	s.mu.Unlock()
	if err != nil {
		remove()
		return nil, nil, err
	}
	return s, remove, nil
}

func (r *WSRegistry) add(topic string, s *WSSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.topics[topic]
	if !ok {
		subs = make(map[*WSSession]struct{})
		r.topics[topic] = subs
	}
	subs[s] = struct{}{}
}

func (r *WSRegistry) remove(topic string, s *WSSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.topics[topic]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(r.topics, topic)
	}
	_ = s.conn.Close()
}

// Notify sends v to every subscriber of topic. Subscribers whose send fails
// are dropped.
func (r *WSRegistry) Notify(topic string, v any) {
	r.mu.RLock()
	subs := make([]*WSSession, 0, len(r.topics[topic]))
	for s := range r.topics[topic] {
		subs = append(subs, s)
	}
	r.mu.RUnlock()

	for _, s := range subs {
		if err := s.Send(v); err != nil {
			r.logger.Warn("ws send failed, dropping subscriber", "topic", topic, "error", err)
			r.remove(topic, s)
		}
	}
}

// Close disconnects every subscriber of topic.
func (r *WSRegistry) Close(topic string) {
	r.mu.Lock()
	subs := r.topics[topic]
	delete(r.topics, topic)
	r.mu.Unlock()

	for s := range subs {
		_ = s.conn.Close()
	}
	if len(subs) > 0 {
		r.logger.Debug("ws topic closed", "topic", topic, "subscribers", len(subs))
	}
}

func (r *WSRegistry) Subscribers(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

var _ Conn = (*websocket.Conn)(nil)
