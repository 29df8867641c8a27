package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/WessleyAI/vahan-insights/engine/dashboard"
	"github.com/WessleyAI/vahan-insights/engine/domain"
	"github.com/WessleyAI/vahan-insights/engine/vahan"
	"github.com/WessleyAI/vahan-insights/pkg/config"
	"github.com/WessleyAI/vahan-insights/pkg/metrics"
	"github.com/WessleyAI/vahan-insights/pkg/natsutil"
)

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func upstreamPayloads() map[string]string {
	return map[string]string{
		vahan.EndpointCategories:             `{"labels":["2W","LMV"],"data":[300,100]}`,
		vahan.EndpointTopMakers:              `[{"makerName":"HERO","count":50}]`,
		vahan.EndpointYearWiseTrend:          `{"labels":["2023-01","2023-02","2024-01","2024-02"],"data":[100,100,110,90]}`,
		vahan.EndpointDurationWise + "?ct=2": `[{"yearAsString":"Q1","registeredVehicleCount":5}]`,
		vahan.EndpointDurationWise + "?ct=1": `[{"yearAsString":"2023","registeredVehicleCount":500}]`,
		vahan.EndpointDurationWise + "?ct=3": `[{"yearAsString":"Jan","registeredVehicleCount":40}]`,
		vahan.EndpointTopRevenue:             `{"labels":["MH","UP"],"data":[9,8]}`,
		vahan.EndpointRevenueTrend:           `{"2022":[10,20],"2023":[5]}`,
	}
}

// fakeUpstream serves the payloads above. It answers 500 while failing is
// set.
func fakeUpstream(t *testing.T, failing *atomic.Bool) *httptest.Server {
	t.Helper()
	payloads := upstreamPayloads()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing != nil && failing.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/")
		if ct := r.URL.Query().Get("calendarType"); ct != "" {
			key += "?ct=" + ct
		}
		body, ok := payloads[key]
		if !ok {
			body = `{}`
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testServer(t *testing.T, failing *atomic.Bool) (*server, config.Config) {
	t.Helper()
	up := fakeUpstream(t, failing)
	cfg := config.Default()
	cfg.BaseURL = up.URL
	cfg.Timeout = 5 * time.Second

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := metrics.New()
	client := vahan.New(vahan.Options{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout, Logger: logger, Metrics: reg})
	s := newServer(dashboard.New(client, dashboard.Options{Metrics: reg}, logger), reg, logger)
	s.now = func() time.Time { return fixedNow }
	return s, cfg
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	handleHealth(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
}

func TestPage(t *testing.T) {
	s, cfg := testServer(t, nil)
	rec := get(t, s.handler(cfg), "/?from_year=2023&to_year=2024")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html, got %s", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Vahan Registrations") {
		t.Fatal("expected page title")
	}
	if !strings.Contains(body, "/export/category_distribution.csv?from_year=2023") {
		t.Fatal("expected download links to carry the filters")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestDashboardJSON(t *testing.T) {
	s, cfg := testServer(t, nil)
	rec := get(t, s.handler(cfg), "/api/dashboard?from_year=2023&state_code=MH")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var d dashboard.Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Categories) != 2 || d.Categories[0].Label != "2W" {
		t.Fatalf("unexpected categories %+v", d.Categories)
	}
	if d.Filters.StateCode != "MH" || d.Filters.FromYear != 2023 || d.Filters.ToYear != 2024 {
		t.Fatalf("unexpected filters %+v", d.Filters)
	}
	if d.TopMakers != nil {
		t.Fatal("top makers should be off by default")
	}
	if len(d.Requests) != 7 {
		t.Fatalf("expected 7 upstream calls, got %d", len(d.Requests))
	}
	if !strings.Contains(d.Requests[0], "stateCode=MH") {
		t.Fatalf("expected filters in upstream url, got %s", d.Requests[0])
	}
}

func TestExportCSV(t *testing.T) {
	s, cfg := testServer(t, nil)
	rec := get(t, s.handler(cfg), "/export/"+dashboard.FileCategories)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="category_distribution.csv"` {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if want := "label,value\n2W,300\nLMV,100\n"; rec.Body.String() != want {
		t.Fatalf("expected %q, got %q", want, rec.Body.String())
	}
}

func TestExportCSVNotFound(t *testing.T) {
	s, cfg := testServer(t, nil)
	for _, name := range []string{"nope.csv", dashboard.FileTopMakers} {
		if rec := get(t, s.handler(cfg), "/export/"+name); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", name, rec.Code)
		}
	}
}

func TestExportWorkbook(t *testing.T) {
	s, cfg := testServer(t, nil)
	rec := get(t, s.handler(cfg), "/export/"+dashboard.FileWorkbook)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if n := len(f.GetSheetList()); n < 5 {
		t.Fatalf("expected one sheet per non-empty table, got %d", n)
	}
}

func TestInvalidFilters(t *testing.T) {
	s, cfg := testServer(t, nil)
	for _, q := range []string{"from_year=abc", "from_year=2000", "from_year=2024&to_year=2023", "time_period=9"} {
		if rec := get(t, s.handler(cfg), "/api/dashboard?"+q); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestUpstreamFailure(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	s, cfg := testServer(t, &failing)
	rec := get(t, s.handler(cfg), "/")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "500") {
		t.Fatalf("expected upstream status in message, got %q", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, cfg := testServer(t, nil)
	h := s.handler(cfg)
	get(t, h, "/api/health")
	get(t, h, "/api/dashboard")
	body := get(t, h, "/metrics").Body.String()

	for _, want := range []string{
		`vahan_http_requests_total{path="GET /api/health",status="200"} 1`,
		`vahan_renders_total 1`,
		`vahan_upstream_requests_total{endpoint="categoriesdonutchart",outcome="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}

func TestFiltersFromQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    domain.Filters
		wantErr error
	}{
		{"defaults", "", domain.DefaultFilters(fixedNow), nil},
		{"overrides", "from_year=2020&state_code=UP&rto_code=&vehicle_type=T&fitness_check=1",
			domain.Filters{FromYear: 2020, ToYear: 2024, StateCode: "UP", RTOCode: "0", VehicleType: "T", FitnessCheck: 1}, nil},
		{"not a number", "to_year=x", domain.Filters{}, domain.ErrInvalidFilter},
		{"out of range", "to_year=2030", domain.Filters{}, domain.ErrYearOutOfRange},
		{"order", "from_year=2024&to_year=2022", domain.Filters{}, domain.ErrYearOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := filtersFromQuery(q, fixedNow)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestFilterQuery(t *testing.T) {
	q, _ := url.ParseQuery("to_year=2024&junk=1&state_code=MH")
	if got := filterQuery(q); got != "state_code=MH&to_year=2024" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestNATSResponder(t *testing.T) {
	ns, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	ns.Start()
	if !ns.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
	})

	s, cfg := testServer(t, nil)
	if _, err := natsutil.Respond(nc, cfg.NATSSubject, s.buildForRequest(time.Minute)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d, err := natsutil.Request[domain.Filters, dashboard.Dashboard](ctx, nc, cfg.NATSSubject, domain.DefaultFilters(fixedNow))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if len(d.Categories) != 2 {
		t.Fatalf("unexpected categories %+v", d.Categories)
	}

	_, err = natsutil.Request[domain.Filters, dashboard.Dashboard](ctx, nc, cfg.NATSSubject, domain.Filters{})
	if !errors.Is(err, natsutil.ErrRemote) {
		t.Fatalf("expected remote validation error, got %v", err)
	}
}

func TestHealthServer(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	gs, _ := newHealthServer()
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	client := healthpb.NewHealthClient(conn)
	for _, svc := range []string{"", healthService} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			t.Fatalf("check %q: %v", svc, err)
		}
		if resp.Status != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("expected SERVING for %q, got %v", svc, resp.Status)
		}
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	_, cfg := testServer(t, nil)
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Skip("cannot open listener")
	}
	cfg.Port = strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not exit")
	}
}
