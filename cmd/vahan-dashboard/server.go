package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/WessleyAI/vahan-insights/engine/charts"
	"github.com/WessleyAI/vahan-insights/engine/dashboard"
	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/engine/export"
	"github.com/WessleyAI/vahan-insights/pkg/metrics"
)

// builder renders dashboards. *dashboard.Service implements it.
type builder interface {
	Build(ctx context.Context, f domain.Filters) (*dashboard.Dashboard, error)
}

type server struct {
	svc    builder
	reg    *metrics.Registry
	logger *slog.Logger
	now    func() time.Time
}

func newServer(svc builder, reg *metrics.Registry, logger *slog.Logger) *server {
	return &server{svc: svc, reg: reg, logger: logger, now: time.Now}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /export/"+dashboard.FileWorkbook, s.handleWorkbook)
	mux.HandleFunc("GET /export/{table}", s.handleTable)
	mux.Handle("GET /metrics", s.reg.Handler())
	return mux
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	d, ok := s.render(w, r)
	if !ok {
		return
	}
	v := d.View(s.now(), "/export/")
	if q := filterQuery(r.URL.Query()); q != "" {
		for i := range v.Downloads {
			v.Downloads[i].URL += "?" + q
		}
	}
	var buf bytes.Buffer
	if err := charts.RenderPage(&buf, v); err != nil {
		s.logger.Error("render page failed", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := s.render(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *server) handleTable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("table")
	d, ok := s.render(w, r)
	if !ok {
		return
	}
	t, found := d.Table(name)
	if !found {
		http.Error(w, fmt.Sprintf("no data for %s", name), http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, t); err != nil {
		s.logger.Error("write csv failed", "table", name, "err", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	attachment(w, "text/csv; charset=utf-8", t.Filename)
	buf.WriteTo(w)
}

func (s *server) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	d, ok := s.render(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	err := export.WriteXLSX(&buf, d.Tables()...)
	if errors.Is(err, export.ErrEmptyTable) {
		http.Error(w, "no data to export", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("write xlsx failed", "err", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", dashboard.FileWorkbook)
	buf.WriteTo(w)
}

// render parses the filters and builds the dashboard. On failure it writes
// the error response and reports false.
func (s *server) render(w http.ResponseWriter, r *http.Request) (*dashboard.Dashboard, bool) {
	f, err := filtersFromQuery(r.URL.Query(), s.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	d, err := s.svc.Build(r.Context(), f)
	if err != nil {
		s.logger.Warn("dashboard build failed", "err", err)
		http.Error(w, "Upstream request failed: "+err.Error(), http.StatusBadGateway)
		return nil, false
	}
	return d, true
}

// buildForRequest answers NATS build requests. Each render is bounded by
// budget.
func (s *server) buildForRequest(budget time.Duration) func(context.Context, domain.Filters) (*dashboard.Dashboard, error) {
	return func(ctx context.Context, f domain.Filters) (*dashboard.Dashboard, error) {
		if err := domain.ValidateFilters(f, s.now()); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, budget)
		defer cancel()
		return s.svc.Build(ctx, f)
	}
}

// --- Filters ---

// Query parameter names, matching domain.Filters JSON tags.
const (
	paramFromYear       = "from_year"
	paramToYear         = "to_year"
	paramStateCode      = "state_code"
	paramRTOCode        = "rto_code"
	paramVehicleClasses = "vehicle_classes"
	paramVehicleMakers  = "vehicle_makers"
	paramTimePeriod     = "time_period"
	paramFitnessCheck   = "fitness_check"
	paramVehicleType    = "vehicle_type"
)

var filterParams = []string{
	paramFromYear, paramToYear, paramStateCode, paramRTOCode, paramVehicleClasses,
	paramVehicleMakers, paramTimePeriod, paramFitnessCheck, paramVehicleType,
}

// filtersFromQuery overlays q on the default filters and validates the
// result. Absent or empty parameters keep their defaults.
func filtersFromQuery(q url.Values, now time.Time) (domain.Filters, error) {
	f := domain.DefaultFilters(now)
	for _, p := range []struct {
		key string
		dst *int
	}{
		{paramFromYear, &f.FromYear},
		{paramToYear, &f.ToYear},
		{paramTimePeriod, &f.TimePeriod},
		{paramFitnessCheck, &f.FitnessCheck},
	} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, domain.NewValidationError(p.key, v, domain.ErrInvalidFilter)
		}
		*p.dst = n
	}
	for _, p := range []struct {
		key string
		dst *string
	}{
		{paramStateCode, &f.StateCode},
		{paramRTOCode, &f.RTOCode},
		{paramVehicleClasses, &f.VehicleClasses},
		{paramVehicleMakers, &f.VehicleMakers},
		{paramVehicleType, &f.VehicleType},
	} {
		if v := q.Get(p.key); v != "" {
			*p.dst = v
		}
	}
	return f, domain.ValidateFilters(f, now)
}

// filterQuery re-encodes the filter parameters of q so download links
// export what the page shows.
func filterQuery(q url.Values) string {
	kept := url.Values{}
	for _, k := range filterParams {
		if v := q.Get(k); v != "" {
			kept.Set(k, v)
		}
	}
	return kept.Encode()
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
