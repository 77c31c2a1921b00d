package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-dashboards/internal/catalog"
	"github.com/example/ride-dashboards/internal/dispatch"
	"github.com/example/ride-dashboards/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	p, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := dispatch.NewWSRegistry(logger)
	svc := service.New(p, service.WithNotifier(hub), service.WithLogger(logger))
	return NewServer(svc, hub, logger)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func openSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, "POST", "/api/v1/rider/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: %d %s", rec.Code, rec.Body.String())
	}
	return decode[service.RiderView](t, rec).ID
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	id := openSession(t, s)

	rec := do(t, s, "POST", "/api/v1/rider/sessions/"+id+"/book", `{"offer_id":"2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}
	v := decode[service.RiderView](t, rec)
	if v.State != "confirmed" || v.Offer == nil || v.Offer.Price != 22.00 {
		t.Fatalf("unexpected booked view %+v", v)
	}

	rec = do(t, s, "POST", "/api/v1/rider/sessions/"+id+"/book", `{"offer_id":"1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("double book: expected 409, got %d", rec.Code)
	}

	rec = do(t, s, "POST", "/api/v1/rider/sessions/"+id+"/cancel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	v = decode[service.RiderView](t, rec)
	if v.State != "browsing" || v.Offer != nil {
		t.Fatalf("unexpected canceled view %+v", v)
	}
}

func TestBookUnknownOfferReturns422(t *testing.T) {
	s := newTestServer(t)
	id := openSession(t, s)

	rec := do(t, s, "POST", "/api/v1/rider/sessions/"+id+"/book", `{"offer_id":"99"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["request_id"] == "" || body["error"] == "" {
		t.Fatalf("error body missing fields: %v", body)
	}

	v := decode[service.RiderView](t, do(t, s, "GET", "/api/v1/rider/sessions/"+id, ""))
	if v.State != "browsing" {
		t.Fatalf("session changed after failed book: %+v", v)
	}
}

func TestCancelWhileBrowsingReturns409(t *testing.T) {
	s := newTestServer(t)
	id := openSession(t, s)
	if rec := do(t, s, "POST", "/api/v1/rider/sessions/"+id+"/cancel", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestBadBodies(t *testing.T) {
	s := newTestServer(t)
	id := openSession(t, s)
	for _, body := range []string{"{", `{}`} {
		if rec := do(t, s, "POST", "/api/v1/rider/sessions/"+id+"/book", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
	if rec := do(t, s, "GET", "/api/v1/rider/sessions/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing session: expected 404, got %d", rec.Code)
	}
}

func TestRebookAndClose(t *testing.T) {
	s := newTestServer(t)
	id := openSession(t, s)
	do(t, s, "POST", "/api/v1/rider/sessions/"+id+"/book", `{"offer_id":"1"}`)
	rec := do(t, s, "POST", "/api/v1/rider/sessions/"+id+"/rebook", `{"offer_id":"3"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rebook: %d", rec.Code)
	}
	if v := decode[service.RiderView](t, rec); v.Offer.ID != "3" {
		t.Fatalf("rebook kept old offer: %+v", v.Offer)
	}
	if rec := do(t, s, "DELETE", "/api/v1/rider/sessions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("close: %d", rec.Code)
	}
	if rec := do(t, s, "GET", "/api/v1/rider/sessions/"+id, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("closed session still served: %d", rec.Code)
	}
}

func TestDriverQueue(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, "POST", "/api/v1/driver/queues", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("open queue: %d", rec.Code)
	}
	id := decode[service.DriverView](t, rec).ID
	base := "/api/v1/driver/queues/" + id + "/requests/"

	for i := 0; i < 2; i++ {
		if rec := do(t, s, "POST", base+"1/accept", ""); rec.Code != http.StatusOK {
			t.Fatalf("accept #%d: %d", i, rec.Code)
		}
	}
	if rec := do(t, s, "POST", base+"1/reject", ""); rec.Code != http.StatusConflict {
		t.Fatalf("reject accepted: expected 409, got %d", rec.Code)
	}
	rec = do(t, s, "POST", base+"2/reject", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: %d", rec.Code)
	}
	v := decode[service.DriverView](t, rec)
	if len(v.Pending) != 0 || len(v.Accepted) != 1 || v.Accepted[0] != "1" {
		t.Fatalf("unexpected queue %+v", v)
	}
	if rec := do(t, s, "POST", base+"7/accept", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown request: expected 404, got %d", rec.Code)
	}
}

func TestReports(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/reports/driver", "/api/v1/reports/manager", "/api/v1/reports/regulator", "/api/v1/rider/offers"} {
		rec := do(t, s, "GET", path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s: content type %q", path, ct)
		}
	}
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestWebsocketReceivesTransitions(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	id := openSession(t, s)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rider/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first service.RiderView
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.State != "browsing" {
		t.Fatalf("initial snapshot %+v", first)
	}

	resp, err := http.Post(ts.URL+"/api/v1/rider/sessions/"+id+"/book", "application/json", strings.NewReader(`{"offer_id":"1"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	var next service.RiderView
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatal(err)
	}
	if next.State != "confirmed" || next.Offer.ID != "1" {
		t.Fatalf("transition snapshot %+v", next)
	}
}

func TestWriteJSONUnencodableValue(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	s.writeJSON(rec, req, http.StatusOK, map[string]float64{"price": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["error"] == "" {
		t.Fatalf("missing error body: %q", rec.Body.String())
	}
}

func TestPanicReturnsJSONWithRequestID(t *testing.T) {
	s := newTestServer(t)
	s.mux.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	req := httptest.NewRequest("GET", "/boom", nil)
	req.Header.Set("X-Request-ID", "req-9")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["request_id"] != "req-9" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestWebsocketSnapshotCarriesVersion(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	id := openSession(t, s)
	if rec := do(t, s, "POST", "/api/v1/rider/sessions/"+id+"/book", `{"offer_id":"2"}`); rec.Code != http.StatusOK {
		t.Fatalf("book: %d", rec.Code)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/rider/"+id, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first service.RiderView
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.State != "confirmed" || first.Version != 2 {
		t.Fatalf("initial snapshot %+v", first)
	}
}

func TestWebsocketClosedWithSession(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	id := openSession(t, s)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/rider/"+id, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first service.RiderView
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, s, "DELETE", "/api/v1/rider/sessions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("close: %d", rec.Code)
	}
	if rec := do(t, s, "DELETE", "/api/v1/rider/sessions/"+id, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second close: %d", rec.Code)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection still open after session closed")
	}
}

func TestWebsocketUnknownSession(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, "GET", "/ws/driver/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
