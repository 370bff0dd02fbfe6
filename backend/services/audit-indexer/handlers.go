package main

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/centralbank/usdw/backend/internal/ledgererr"
	"github.com/centralbank/usdw/backend/pkg/common"
	"github.com/centralbank/usdw/backend/pkg/common/api"
	"github.com/centralbank/usdw/backend/services/audit-indexer/indexer"
	"github.com/centralbank/usdw/backend/services/audit-indexer/models"
)

const auditorRole = "AUDITOR"

type Service struct {
	store indexer.EventStore
	log   *zap.Logger
}

func (s *Service) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	s.list(w, r, filter)
}

func (s *Service) AccountEventsHandler(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	filter.AccountID = mux.Vars(r)["id"]
	s.list(w, r, filter)
}

func (s *Service) list(w http.ResponseWriter, r *http.Request, filter models.EventFilter) {
	events, err := s.store.List(r.Context(), filter)
	if err != nil {
		traceID := uuid.NewString()
		s.log.Error("failed to list audit events", zap.String("traceId", traceID), zap.Error(err))
		api.WriteLedgerError(w, ledgererr.Wrap(err, ledgererr.KindInternal, "failed to list events"), traceID)
		return
	}
	api.WriteSuccess(w, http.StatusOK, events)
}

func parseFilter(w http.ResponseWriter, r *http.Request) (models.EventFilter, bool) {
	q := r.URL.Query()
	filter := models.EventFilter{EventName: q.Get("event")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			api.WriteLedgerError(w, ledgererr.New(ledgererr.KindInvalidArgument, "limit must be a positive integer"), "")
			return filter, false
		}
		filter.Limit = limit
	}
	return filter, true
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Audit indexer OK"))
}

func newRouter(svc *Service, jwtSecret []byte, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	protected := r.NewRoute().Subrouter()
	protected.Use(common.AuthMiddleware(jwtSecret))
	protected.HandleFunc("/events", common.RequireRole(auditorRole, svc.ListEventsHandler)).Methods("GET")
	protected.HandleFunc("/accounts/{id}/events", svc.AccountEventsHandler).Methods("GET")
	return r
}
