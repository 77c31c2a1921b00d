package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/ride-dashboards/internal/models"
)

func TestDefaultFixtures(t *testing.T) {
	s, err := Default()
	if err != nil {
		t.Fatalf("default fixtures: %v", err)
	}
	ctx := context.Background()
	offers, _ := s.Offers(ctx)
	if len(offers) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(offers))
	}
	if offers[2].ID != "3" || offers[2].Price != 22.00 || offers[2].Category != models.CategoryPremium {
		t.Fatalf("unexpected third offer %+v", offers[2])
	}
	reqs, _ := s.PendingRequests(ctx)
	if len(reqs) != 2 || reqs[1].Fare != 8.75 {
		t.Fatalf("unexpected requests %+v", reqs)
	}
	d, _ := s.DriverReport(ctx)
	if len(d.Earnings) != 7 || d.Compensation.Total() != 2499 {
		t.Fatalf("unexpected driver report %+v", d)
	}
	m, _ := s.ManagerReport(ctx)
	if len(m.RecentIssues) != 3 || m.Performance[0].Time != "00:00" {
		t.Fatalf("unexpected manager report %+v", m)
	}
	r, _ := s.RegulatorReport(ctx)
	if len(r.Compliance) != 5 || r.Compliance[2].Status != "warning" {
		t.Fatalf("unexpected regulator report %+v", r)
	}
}

func TestStaticReturnsCopies(t *testing.T) {
	s, _ := Default()
	a, _ := s.Offers(context.Background())
	a[0].Price = 0
	b, _ := s.Offers(context.Background())
	if b[0].Price == 0 {
		t.Fatal("static provider leaked its slice")
	}
}

func TestLoadFileRejectsInvalidOffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	data := "offers:\n  - id: x\n    price: 3\n    category: luxury\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestParseRejectsNonFiniteNumbers(t *testing.T) {
	docs := map[string]string{
		"offer rating":  "offers:\n  - id: x\n    rating: .nan\n    category: economy\n",
		"offer price":   "offers:\n  - id: x\n    price: .inf\n    category: economy\n",
		"request fare":  "requests:\n  - id: r\n    fare: .nan\n",
		"request score": "requests:\n  - id: r\n    passenger_rating: -.inf\n",
	}
	for name, doc := range docs {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

type fakeKV struct {
	values map[string][]byte
	lists  map[string][]string
	sets   int
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string][]byte{}, lists: map[string][]string{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.sets++
	f.values[key] = value
	return nil
}

func (f *fakeKV) LRange(_ context.Context, key string) ([]string, error) {
	return f.lists[key], nil
}

type countingProvider struct {
	*Static
	offerCalls int
}

func (c *countingProvider) Offers(ctx context.Context) ([]models.RideOffer, error) {
	c.offerCalls++
	return c.Static.Offers(ctx)
}

func TestRedisCachesOffers(t *testing.T) {
	s, _ := Default()
	inner := &countingProvider{Static: s}
	kv := newFakeKV()
	r := NewRedis(kv, inner, RedisOptions{})

	for i := 0; i < 3; i++ {
		offers, err := r.Offers(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(offers) != 3 {
			t.Fatalf("expected 3 offers, got %d", len(offers))
		}
	}
	if inner.offerCalls != 1 {
		t.Fatalf("expected one inner call, got %d", inner.offerCalls)
	}
	if kv.sets != 1 {
		t.Fatalf("expected one cache write, got %d", kv.sets)
	}
}

func TestRedisPendingFromList(t *testing.T) {
	s, _ := Default()
	kv := newFakeKV()
	r := NewRedis(kv, s, RedisOptions{PendingKey: "pending"})

	reqs, _ := r.PendingRequests(context.Background())
	if len(reqs) != 2 {
		t.Fatalf("expected fallback requests, got %d", len(reqs))
	}

	b, _ := json.Marshal(models.RideRequest{ID: "r9", Pickup: "A", Dropoff: "B", Fare: 5, PassengerRating: 4})
	kv.lists["pending"] = []string{string(b), "not json", string(b)}
	reqs, _ = r.PendingRequests(context.Background())
	if len(reqs) != 1 || reqs[0].ID != "r9" {
		t.Fatalf("expected list contents, got %+v", reqs)
	}
}
