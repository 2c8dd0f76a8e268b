package httpctrl

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Agrid-Dev/dualstat/internal/testutil"
	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

func TestGET_v1_ReturnsStrings(t *testing.T) {
	srv, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[map[string]any](t, rr)
	if got["mode"] != "heat_cool" {
		t.Fatalf("expected mode=heat_cool, got %v", got["mode"])
	}
	if got["hvac_action"] != "idle" {
		t.Fatalf("expected hvac_action=idle, got %v", got["hvac_action"])
	}
	if got["device_id"] != "default" {
		t.Fatalf("expected device_id=default, got %v", got["device_id"])
	}
	if got["target_low"] != 19.0 || got["target_high"] != 24.0 {
		t.Fatalf("expected target range 19..24, got %v..%v", got["target_low"], got["target_high"])
	}
}

func TestGET_v1_UnknownTemperatureIsNull(t *testing.T) {
	srv, f := newTestServer()
	f.S.CurrentTemperature = nil
	f.S.Active = false

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodGet, "/v1", nil)
	assertStatus(t, rr, http.StatusOK)

	got := decodeJSON[map[string]any](t, rr)
	if v, ok := got["current_temperature"]; !ok || v != nil {
		t.Fatalf("expected current_temperature=null, got %v (present=%v)", v, ok)
	}
}

func TestPOST_mode_Valid(t *testing.T) {
	srv, f := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/mode", map[string]any{
		"value": "heat",
	})
	assertStatus(t, rr, http.StatusOK)

	if !f.SetModeCalled || f.SetModeArg != thermostat.ModeHeat {
		t.Fatalf("expected SetMode(Heat) called, got called=%v arg=%v", f.SetModeCalled, f.SetModeArg)
	}
}

func TestPOST_mode_InvalidPayload(t *testing.T) {
	srv, _ := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/mode", map[string]any{
		"mode": "weird",
	})
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
}

func TestPOST_mode_InvalidString(t *testing.T) {
	srv, f := newTestServer()

	rr := doJSONRequest(t, srv.srv.Handler, http.MethodPost, "/v1/mode", map[string]any{
		"value": "auto",
	})
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
	if f.SetModeCalled {
		t.Fatal("expected SetMode not called")
	}
}

func TestPOST_target_range(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/target_range", map[string]float64{"low": 18, "high": 23.5})
	assertStatus(t, rr, http.StatusOK)

	if !f.SetTargetRangeCalled || f.SetTargetRangeLow != 18 || f.SetTargetRangeHigh != 23.5 {
		t.Fatalf("expected SetTargetRange(18, 23.5), got called=%v %v..%v", f.SetTargetRangeCalled, f.SetTargetRangeLow, f.SetTargetRangeHigh)
	}
}

func TestPOST_target_range_MissingBound(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/target_range", map[string]float64{"low": 18})
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
	if f.SetTargetRangeCalled {
		t.Fatal("expected SetTargetRange not called")
	}
}

func TestPOST_target_range_ErrorFromService(t *testing.T) {
	srv, f := newTestServer()
	f.SetTargetRangeErr = thermostat.ErrInvertedRange

	rr := postValueEndpoint(t, srv, "/v1/target_range", map[string]float64{"low": 25, "high": 20})
	assertStatus(t, rr, http.StatusBadRequest)
	if msg := assertErrorResponse(t, rr); msg != thermostat.ErrInvertedRange.Error() {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestPOST_target_low(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/target_low", 17.5)
	assertStatus(t, rr, http.StatusOK)

	if f.SetTargetRangeLow != 17.5 || f.SetTargetRangeHigh != 24 {
		t.Fatalf("expected range 17.5..24, got %v..%v", f.SetTargetRangeLow, f.SetTargetRangeHigh)
	}
}

func TestPOST_target_high(t *testing.T) {
	srv, f := newTestServer()

	rr := postValueEndpoint(t, srv, "/v1/target_high", 26.0)
	assertStatus(t, rr, http.StatusOK)

	if f.SetTargetRangeLow != 19 || f.SetTargetRangeHigh != 26 {
		t.Fatalf("expected range 19..26, got %v..%v", f.SetTargetRangeLow, f.SetTargetRangeHigh)
	}

	f.SetTargetRangeErr = thermostat.ErrInvertedRange
	rr = postValueEndpoint(t, srv, "/v1/target_high", 10.0)
	assertStatus(t, rr, http.StatusBadRequest)
	_ = assertErrorResponse(t, rr)
}

func TestGET_healthz(t *testing.T) {
	srv, _ := newTestServer()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)

	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "ok" {
		t.Fatalf("expected body 'ok', got %s", rr.Body.String())
	}
}

func TestGET_metrics(t *testing.T) {
	f := testutil.NewFakeThermostatService()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("dualstat_up 1"))
	})
	srv := New(f, ":0", "default", WithMetricsHandler(metrics))

	rr := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "dualstat_up 1" {
		t.Fatalf("unexpected metrics body %q", rr.Body.String())
	}
}

func TestGET_metrics_NotMountedByDefault(t *testing.T) {
	srv, _ := newTestServer()

	rr := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assertStatus(t, rr, http.StatusNotFound)
}

// ---- test helpers ----

func newTestServer() (*Server, *testutil.FakeThermostatService) {
	f := testutil.NewFakeThermostatService()
	deviceID := "default"
	return New(f, ":0", deviceID), f
}

func doJSONRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal: %v", err)
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("json.Unmarshal: %v body=%s", err, rr.Body.String())
	}
	return v
}

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeJSON[struct {
		Error string `json:"error"`
	}](t, rr)
	if resp.Error == "" {
		t.Fatalf("expected non-empty error field, got body=%s", rr.Body.String())
	}
	return resp.Error
}

func postValueEndpoint[T any](t *testing.T, srv *Server, path string, value T) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONRequest(t, srv.srv.Handler, http.MethodPost, path, struct {
		Value T `json:"value"`
	}{Value: value})
}
