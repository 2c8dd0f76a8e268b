package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Agrid-Dev/dualstat/internal/ports"
	"github.com/Agrid-Dev/dualstat/internal/thermostat"
)

type Server struct {
	svc      ports.ThermostatService
	srv      *http.Server
	deviceID string
}

type Option func(*http.ServeMux)

// WithMetricsHandler exposes h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(mux *http.ServeMux) {
		mux.Handle("GET /metrics", h)
	}
}

// New returns a runnable server.
func New(svc ports.ThermostatService, addr string, deviceID string, opts ...Option) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)

	// Write
	mux.HandleFunc("POST /v1/mode", s.handlePostMode)
	mux.HandleFunc("POST /v1/target_range", s.handlePostTargetRange)
	mux.HandleFunc("POST /v1/target_low", s.handlePostTargetLow)
	mux.HandleFunc("POST /v1/target_high", s.handlePostTargetHigh)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	for _, opt := range opts {
		opt(mux)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	DeviceID           string   `json:"device_id"`
	Mode               string   `json:"mode"`
	HVACAction         string   `json:"hvac_action"`
	Active             bool     `json:"active"`
	CurrentTemperature *float64 `json:"current_temperature"`
	TargetLow          *float64 `json:"target_low"`
	TargetHigh         *float64 `json:"target_high"`
	MinTemp            float64  `json:"min_temp"`
	MaxTemp            float64  `json:"max_temp"`
	HeaterOn           bool     `json:"heater_on"`
	CoolerOn           bool     `json:"cooler_on"`
	Unit               string   `json:"unit"`
	Precision          float64  `json:"precision"`
}

func toDTO(s thermostat.Snapshot) snapshotDTO {
	return snapshotDTO{
		Mode:               s.Mode.String(),
		HVACAction:         s.Action.String(),
		Active:             s.Active,
		CurrentTemperature: s.CurrentTemperature,
		TargetLow:          s.TargetLow,
		TargetHigh:         s.TargetHigh,
		MinTemp:            s.MinTemp,
		MaxTemp:            s.MaxTemp,
		HeaterOn:           s.HeaterOn,
		CoolerOn:           s.CoolerOn,
		Unit:               string(s.Unit),
		Precision:          s.Precision,
	}
}

type rangeReq struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handlePostMode(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "heat_cool"}
	postValue(s, w, r, func(v string) error {
		m, err := thermostat.ParseMode(v)
		if err != nil {
			return err
		}
		return s.svc.SetMode(m)
	})
}

func (s *Server) handlePostTargetRange(w http.ResponseWriter, r *http.Request) {
	// body: {"value": {"low": 19, "high": 24}}
	postValue(s, w, r, func(v rangeReq) error {
		if v.Low == nil || v.High == nil {
			return errors.New("both 'low' and 'high' are required")
		}
		return s.svc.SetTargetRange(*v.Low, *v.High)
	})
}

func (s *Server) handlePostTargetLow(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		_, high := currentRange(s.svc.Get())
		return s.svc.SetTargetRange(v, high)
	})
}

func (s *Server) handlePostTargetHigh(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		low, _ := currentRange(s.svc.Get())
		return s.svc.SetTargetRange(low, v)
	})
}

// currentRange falls back to the min/max temperatures for unset targets.
func currentRange(snap thermostat.Snapshot) (low, high float64) {
	low, high = snap.MinTemp, snap.MaxTemp
	if snap.TargetLow != nil {
		low = *snap.TargetLow
	}
	if snap.TargetHigh != nil {
		high = *snap.TargetHigh
	}
	return low, high
}

// ---- generic helpers ----
func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get())
	dto.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
