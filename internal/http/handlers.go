package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-dashboards/internal/booking"
	"github.com/example/ride-dashboards/internal/catalog"
	"github.com/example/ride-dashboards/internal/dispatch"
	"github.com/example/ride-dashboards/internal/queue"
	"github.com/example/ride-dashboards/internal/service"
)

type Server struct {
	svc    *service.Service
	hub    *dispatch.WSRegistry
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(svc *service.Service, hub *dispatch.WSRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, hub: hub, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())

	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rider/offers", s.handleOffers).Methods("GET")
	api.HandleFunc("/rider/sessions", s.handleOpenSession).Methods("POST")
	api.HandleFunc("/rider/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/rider/sessions/{id}", s.handleCloseSession).Methods("DELETE")
	api.HandleFunc("/rider/sessions/{id}/book", s.handleBook).Methods("POST")
	api.HandleFunc("/rider/sessions/{id}/rebook", s.handleRebook).Methods("POST")
	api.HandleFunc("/rider/sessions/{id}/cancel", s.handleCancel).Methods("POST")

	api.HandleFunc("/driver/queues", s.handleOpenQueue).Methods("POST")
	api.HandleFunc("/driver/queues/{id}", s.handleGetQueue).Methods("GET")
	api.HandleFunc("/driver/queues/{id}", s.handleCloseQueue).Methods("DELETE")
	api.HandleFunc("/driver/queues/{id}/requests/{request_id}/accept", s.handleAccept).Methods("POST")
	api.HandleFunc("/driver/queues/{id}/requests/{request_id}/reject", s.handleReject).Methods("POST")

	api.HandleFunc("/reports/driver", s.handleDriverReport).Methods("GET")
	api.HandleFunc("/reports/manager", s.handleManagerReport).Methods("GET")
	api.HandleFunc("/reports/regulator", s.handleRegulatorReport).Methods("GET")

	s.mux.HandleFunc("/ws/{kind:rider|driver}/{id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type offerBody struct {
	OfferID string `json:"offer_id"`
}

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.svc.Offers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"offers": offers})
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.OpenRider(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, v)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Rider(r.Context(), mux.Vars(r)["id"])
	s.respond(w, r, v, err)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CloseRider(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	s.withOffer(w, r, s.svc.Book)
}

func (s *Server) handleRebook(w http.ResponseWriter, r *http.Request) {
	s.withOffer(w, r, s.svc.Rebook)
}

func (s *Server) withOffer(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, offerID string) (service.RiderView, error)) {
	var body offerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeErrorStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if body.OfferID == "" {
		s.writeErrorStatus(w, r, http.StatusBadRequest, "offer_id is required")
		return
	}
	v, err := fn(r.Context(), mux.Vars(r)["id"], body.OfferID)
	s.respond(w, r, v, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Cancel(r.Context(), mux.Vars(r)["id"])
	s.respond(w, r, v, err)
}

func (s *Server) handleOpenQueue(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.OpenDriver(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, v)
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Driver(r.Context(), mux.Vars(r)["id"])
	s.respond(w, r, v, err)
}

func (s *Server) handleCloseQueue(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CloseDriver(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	v, err := s.svc.Accept(r.Context(), vars["id"], vars["request_id"])
	s.respond(w, r, v, err)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	v, err := s.svc.Reject(r.Context(), vars["id"], vars["request_id"])
	s.respond(w, r, v, err)
}

func (s *Server) handleDriverReport(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.DriverReport(r.Context())
	s.respond(w, r, v, err)
}

func (s *Server) handleManagerReport(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.ManagerReport(r.Context())
	s.respond(w, r, v, err)
}

func (s *Server) handleRegulatorReport(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.RegulatorReport(r.Context())
	s.respond(w, r, v, err)
}

var upgrader = websocket.Upgrader{}

// handleWS subscribes a rendering client to one session or queue. The
// current snapshot is sent first, then one message per transition.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var topic string
	var current func() (any, error)
	if vars["kind"] == "rider" {
		topic = service.RiderTopic(id)
		current = func() (any, error) { return s.svc.Rider(r.Context(), id) }
	} else {
		topic = service.DriverTopic(id)
		current = func() (any, error) { return s.svc.Driver(r.Context(), id) }
	}
	// answer unknown ids with a plain 404 before upgrading
	if _, err := current(); err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	_, remove, err := s.hub.Subscribe(topic, conn, current)
	if err != nil {
		s.logger.Debug("ws subscribe failed", "topic", topic, "error", err)
		return
	}
	// drain until the client goes away; inbound messages are ignored
	go func() {
		defer remove()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrInvalidOfferReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, queue.ErrAlreadyAccepted):
		return http.StatusConflict
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, queue.ErrUnknownRequest):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "error", err, "request_id", requestIDFromContext(r.Context()))
	}
	s.writeErrorStatus(w, r, status, err.Error())
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, map[string]string{"error": msg, "request_id": requestIDFromContext(r.Context())})
}

// writeJSON encodes v before touching the status line so an unencodable
// value turns into a 500 rather than a 2xx with an empty body.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode response", "error", err, "request_id", requestIDFromContext(r.Context()))
		status = http.StatusInternalServerError
		b, _ = json.Marshal(map[string]string{"error": "response encoding failed", "request_id": requestIDFromContext(r.Context())})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(b, '\n')); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}
