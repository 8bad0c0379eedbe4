package server_test

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"drivepulse/internal/auth"
	"drivepulse/internal/config"
	"drivepulse/internal/http/server"
	"drivepulse/internal/logging"
	"drivepulse/internal/memstore"
	"drivepulse/internal/telemetry"
)

type testServer struct {
	t      *testing.T
	client *fasthttp.Client
	store  *memstore.Store
}

type response struct {
	status int
	header map[string]string
	body   []byte
}

func (r response) detail() string {
	var out struct {
		Detail any `json:"detail"`
	}
	_ = json.Unmarshal(r.body, &out)
	if s, ok := out.Detail.(string); ok {
		return s
	}
	return fmt.Sprint(out.Detail)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})

	store := memstore.New()
	tokens, err := auth.NewTokenManager("server-test-secret-0123456789abcdef", 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{CORSOrigins: []string{"*"}}
	handler := server.New(cfg, telemetry.NewService(store), auth.NewService(store, tokens))

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})

	return &testServer{
		t:     t,
		store: store,
		client: &fasthttp.Client{
			Dial: func(string) (net.Conn, error) { return ln.Dial() },
		},
	}
}

func (s *testServer) do(method, path, token string, body any, extra ...[2]string) response {
	s.t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://drivepulse.test" + path)
	req.Header.SetMethod(method)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, h := range extra {
		req.Header.Set(h[0], h[1])
	}
	switch b := body.(type) {
	case nil:
	case string:
		req.Header.SetContentType("application/json")
		req.SetBodyString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			s.t.Fatal(err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}

	if err := s.client.Do(req, resp); err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}

	headers := map[string]string{}
	resp.Header.VisitAll(func(k, v []byte) { headers[string(k)] = string(v) })
	return response{
		status: resp.StatusCode(),
		header: headers,
		body:   append([]byte(nil), resp.Body()...),
	}
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	reg := s.do("POST", "/auth/register", "", map[string]any{
		"email": email, "password": password, "full_name": "Test Driver", "university": "UB",
	})
	if reg.status != fasthttp.StatusOK {
		s.t.Fatalf("register: %d %s", reg.status, reg.body)
	}
	res := s.do("POST", "/auth/login", "", map[string]string{"email": email, "password": password})
	if res.status != fasthttp.StatusOK {
		s.t.Fatalf("login: %d %s", res.status, res.body)
	}
	var tok auth.TokenResponse
	if err := json.Unmarshal(res.body, &tok); err != nil {
		s.t.Fatal(err)
	}
	return tok.AccessToken
}

func (s *testServer) startSession(token string) telemetry.SessionView {
	s.t.Helper()
	res := s.do("POST", "/sessions/start", token, nil)
	if res.status != fasthttp.StatusOK {
		s.t.Fatalf("start: %d %s", res.status, res.body)
	}
	var view telemetry.SessionView
	if err := json.Unmarshal(res.body, &view); err != nil {
		s.t.Fatal(err)
	}
	return view
}

func batchBody(sessionID uuid.UUID) map[string]any {
	ts := "2025-03-14T09:30:00Z"
	return map[string]any{
		"session_id": sessionID,
		"measurements": []map[string]any{
			{"technology": "4G", "rssi": -80, "rsrp": -95, "cell_id": 40412, "latitude": 4.1527, "longitude": 9.241, "recorded_at": ts},
			{"technology": "4G", "rssi": -90, "latitude": 4.1530, "longitude": 9.242, "recorded_at": ts},
		},
		"speed_tests": []map[string]any{
			{"download_mbps": 23.4, "upload_mbps": 5.2, "ping_ms": 48, "latitude": 4.15, "longitude": 9.24, "recorded_at": ts},
		},
		"events": []map[string]any{
			{"event_type": "handover", "latitude": 4.15, "longitude": 9.24, "recorded_at": ts, "details": map[string]any{"to_cell": 40413}},
		},
		"mos_feedback": []map[string]any{
			{"rating": 4, "emotion": "happy", "latitude": 4.15, "longitude": 9.24},
			{"rating": 5, "latitude": 4.15, "longitude": 9.24},
		},
	}
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	res := s.do("GET", "/", "", nil)
	if res.status != fasthttp.StatusOK || !bytes.Contains(res.body, []byte("DrivePulse API is running")) {
		t.Errorf("GET / = %d %s", res.status, res.body)
	}
	if res := s.do("GET", "/healthz", "", nil); res.status != fasthttp.StatusOK || string(res.body) != "ok" {
		t.Errorf("GET /healthz = %d %s", res.status, res.body)
	}
	if res := s.do("GET", "/nope", "", nil); res.status != fasthttp.StatusNotFound || res.detail() != "Not Found" {
		t.Errorf("GET /nope = %d %s", res.status, res.body)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login("driver@drivepulse.io", "correct-horse")

	me := s.do("GET", "/auth/me", token, nil)
	if me.status != fasthttp.StatusOK || !bytes.Contains(me.body, []byte(`"email":"driver@drivepulse.io"`)) {
		t.Errorf("GET /auth/me = %d %s", me.status, me.body)
	}
	if bytes.Contains(me.body, []byte("password")) {
		t.Error("user representation leaks the password hash")
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		detail string
	}{
		{
			name: "duplicate email", method: "POST", path: "/auth/register",
			body:   map[string]string{"email": "Driver@drivepulse.io", "password": "whatever1"},
			status: fasthttp.StatusBadRequest, detail: "Email already registered",
		},
		{
			name: "wrong password", method: "POST", path: "/auth/login",
			body:   map[string]string{"email": "driver@drivepulse.io", "password": "nope-nope"},
			status: fasthttp.StatusUnauthorized, detail: "Incorrect email or password",
		},
		{
			name: "no token", method: "POST", path: "/sessions/start",
			status: fasthttp.StatusUnauthorized, detail: "Not authenticated",
		},
		{
			name: "bad token", method: "POST", path: "/sessions/start", token: "abc.def.ghi",
			status: fasthttp.StatusUnauthorized, detail: "Could not validate credentials",
		},
		{
			name: "malformed json", method: "POST", path: "/auth/login", body: `{"email":`,
			status: fasthttp.StatusBadRequest, detail: "invalid JSON body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(tt.method, tt.path, tt.token, tt.body)
			if res.status != tt.status {
				t.Fatalf("status = %d, want %d (%s)", res.status, tt.status, res.body)
			}
			if got := res.detail(); got != tt.detail {
				t.Errorf("detail = %q, want %q", got, tt.detail)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner := s.login("owner@drivepulse.io", "owner-pass")
	other := s.login("other@drivepulse.io", "other-pass")

	view := s.startSession(owner)
	if view.EndTime != nil {
		t.Fatalf("new session has end_time %v", view.EndTime)
	}

	end := map[string]any{
		"end_time": "2025-03-14T10:15:00Z", "avg_rssi": -88.5, "total_distance_km": 12.3,
		"drops_count": 1, "handovers_count": 4, "speedtest_count": 2, "error_count": 0,
	}
	path := "/sessions/" + view.ID.String() + "/end"

	if res := s.do("PATCH", path, other, end); res.status != fasthttp.StatusForbidden ||
		res.detail() != "Not authorized to modify this session" {
		t.Errorf("end by other user = %d %s", res.status, res.body)
	}
	if res := s.do("PATCH", "/sessions/"+uuid.NewString()+"/end", owner, end); res.status != fasthttp.StatusNotFound ||
		res.detail() != "Session not found" {
		t.Errorf("end unknown = %d %s", res.status, res.body)
	}
	if res := s.do("PATCH", "/sessions/not-a-uuid/end", owner, end); res.status != fasthttp.StatusUnprocessableEntity {
		t.Errorf("end malformed id = %d %s", res.status, res.body)
	}

	res := s.do("PATCH", path, owner, end)
	if res.status != fasthttp.StatusOK {
		t.Fatalf("end = %d %s", res.status, res.body)
	}
	var ended telemetry.SessionView
	if err := json.Unmarshal(res.body, &ended); err != nil {
		t.Fatal(err)
	}
	if ended.EndTime == nil || !ended.EndTime.Equal(time.Date(2025, 3, 14, 10, 15, 0, 0, time.UTC)) {
		t.Errorf("end_time = %v", ended.EndTime)
	}

	sum := s.do("GET", "/analytics/session/"+view.ID.String()+"/summary", other, nil)
	if sum.status != fasthttp.StatusOK {
		t.Fatalf("summary = %d %s", sum.status, sum.body)
	}
	var summary map[string]any
	if err := json.Unmarshal(sum.body, &summary); err != nil {
		t.Fatal(err)
	}
	if summary["avg_rssi"] != -88.5 || summary["total_handovers"] != float64(4) || summary["avg_mos"] != nil {
		t.Errorf("summary = %v", summary)
	}
}

func TestBatchUploadAndAnalytics(t *testing.T) {
	s := newTestServer(t)
	token := s.login("analyst@drivepulse.io", "analyst-pass")
	view := s.startSession(token)
	id := view.ID.String()

	res := s.do("POST", "/upload/batch", token, batchBody(view.ID))
	if res.status != fasthttp.StatusOK {
		t.Fatalf("upload = %d %s", res.status, res.body)
	}
	if !bytes.Equal(res.body, []byte(`{"status":"success","message":"Batch upload completed"}`)) {
		t.Errorf("upload body = %s", res.body)
	}
	want := memstore.Counts{Measurements: 2, SpeedTests: 1, Events: 1, MosFeedback: 2}
	if got := s.store.Counts(view.ID); got != want {
		t.Errorf("stored counts = %+v, want %+v", got, want)
	}

	t.Run("summary", func(t *testing.T) {
		res := s.do("GET", "/analytics/session/"+id+"/summary", token, nil)
		var sum map[string]any
		if err := json.Unmarshal(res.body, &sum); err != nil {
			t.Fatal(err)
		}
		if sum["avg_mos"] != 4.5 || sum["session_id"] != id {
			t.Errorf("summary = %v", sum)
		}
	})

	t.Run("map", func(t *testing.T) {
		res := s.do("GET", "/analytics/session/"+id+"/map", token, nil)
		var points []map[string]any
		if err := json.Unmarshal(res.body, &points); err != nil {
			t.Fatal(err)
		}
		if len(points) != 2 {
			t.Fatalf("points = %v", points)
		}
		for _, key := range []string{"lat", "lon", "rssi", "tech", "time"} {
			if _, ok := points[0][key]; !ok {
				t.Errorf("map point missing %q: %v", key, points[0])
			}
		}
	})

	t.Run("mos correlation", func(t *testing.T) {
		res := s.do("GET", "/analytics/session/"+id+"/mos-correlation", token, nil)
		var corr telemetry.Correlation
		if err := json.Unmarshal(res.body, &corr); err != nil {
			t.Fatal(err)
		}
		if corr.Interpretation != telemetry.InterpretationGood || *corr.AvgRSSI != -85 || *corr.AvgMOS != 4.5 {
			t.Errorf("correlation = %+v", corr)
		}
	})

	t.Run("export", func(t *testing.T) {
		res := s.do("GET", "/export/session/"+id+"/csv", token, nil)
		if res.status != fasthttp.StatusOK {
			t.Fatalf("export = %d %s", res.status, res.body)
		}
		if !strings.HasPrefix(res.header["Content-Type"], "text/csv") {
			t.Errorf("Content-Type = %q", res.header["Content-Type"])
		}
		if got, want := res.header["Content-Disposition"], "attachment; filename=session_"+id+".csv"; got != want {
			t.Errorf("Content-Disposition = %q, want %q", got, want)
		}
		rows, err := csv.NewReader(bytes.NewReader(res.body)).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 3 || rows[0][0] != "id" {
			t.Errorf("csv rows = %v", rows)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		for _, p := range []string{"summary", "map", "mos-correlation"} {
			res := s.do("GET", "/analytics/session/"+uuid.NewString()+"/"+p, token, nil)
			if res.status != fasthttp.StatusNotFound {
				t.Errorf("%s of unknown session = %d", p, res.status)
			}
		}
		if res := s.do("GET", "/export/session/"+uuid.NewString()+"/csv", token, nil); res.status != fasthttp.StatusNotFound {
			t.Errorf("export of unknown session = %d", res.status)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		res := s.do("GET", "/metrics", "", nil)
		if res.status != fasthttp.StatusOK {
			t.Fatalf("metrics = %d", res.status)
		}
		for _, name := range []string{"drivepulse_http_requests_total", "drivepulse_ingested_rows_total"} {
			if !bytes.Contains(res.body, []byte(name)) {
				t.Errorf("metrics output missing %s", name)
			}
		}
	})
}

func TestBatchUploadErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.login("errors@drivepulse.io", "errors-pass")
	view := s.startSession(token)

	t.Run("unknown session", func(t *testing.T) {
		res := s.do("POST", "/upload/batch", token, batchBody(uuid.New()))
		if res.status != fasthttp.StatusNotFound || res.detail() != "Session not found" {
			t.Errorf("= %d %s", res.status, res.body)
		}
	})

	t.Run("rating out of range", func(t *testing.T) {
		body := batchBody(view.ID)
		body["mos_feedback"] = []map[string]any{{"rating": 6, "latitude": 1, "longitude": 1}}
		res := s.do("POST", "/upload/batch", token, body)
		if res.status != fasthttp.StatusUnprocessableEntity {
			t.Fatalf("= %d %s", res.status, res.body)
		}
		if !bytes.Contains(res.body, []byte(`"mos_feedback[0].rating"`)) {
			t.Errorf("422 body does not name the field: %s", res.body)
		}
	})

	t.Run("storage failure rolls back", func(t *testing.T) {
		before := s.store.Counts(view.ID)
		s.store.FailInsert = map[string]error{"events": memstore.ErrInjected}
		defer func() { s.store.FailInsert = nil }()

		res := s.do("POST", "/upload/batch", token, batchBody(view.ID))
		if res.status != fasthttp.StatusInternalServerError || res.detail() != "Upload failed" {
			t.Errorf("= %d %s", res.status, res.body)
		}
		if got := s.store.Counts(view.ID); got != before {
			t.Errorf("counts changed from %+v to %+v", before, got)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		res := s.do("POST", "/upload/batch", "", batchBody(view.ID))
		if res.status != fasthttp.StatusUnauthorized {
			t.Errorf("= %d %s", res.status, res.body)
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	res := s.do("OPTIONS", "/upload/batch", "", nil,
		[2]string{"Origin", "http://localhost:8081"},
		[2]string{"Access-Control-Request-Method", "POST"},
		[2]string{"Access-Control-Request-Headers", "authorization,content-type"},
	)
	if res.status != fasthttp.StatusOK {
		t.Fatalf("preflight = %d", res.status)
	}
	if got := res.header["Access-Control-Allow-Origin"]; got != "http://localhost:8081" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := res.header["Access-Control-Allow-Headers"]; got != "authorization,content-type" {
		t.Errorf("Allow-Headers = %q", got)
	}

	simple := s.do("GET", "/", "", nil, [2]string{"Origin", "http://localhost:8081"})
	if simple.header["Access-Control-Allow-Origin"] != "http://localhost:8081" {
		t.Errorf("simple request missing CORS header: %v", simple.header)
	}
}
