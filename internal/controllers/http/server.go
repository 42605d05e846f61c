package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Agrid-Dev/puritank/internal/ports"
	"github.com/Agrid-Dev/puritank/internal/rig"
)

type Server struct {
	svc      ports.RigService
	srv      *http.Server
	deviceID string
	log      *zap.Logger
}

// New returns a runnable server.
func New(svc ports.RigService, addr string, deviceID string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID, log: logger}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/threshold", s.handleGetThreshold)

	// Write
	mux.HandleFunc("POST /v1/start", s.handlePostStart)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

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

type thresholdDTO struct {
	Temperature float64 `json:"temperature"`
	ExpectedTDS float64 `json:"expected_tds"`
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w, http.StatusOK)
}

func (s *Server) handleGetThreshold(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("temperature")
	if raw == "" {
		writeErr(w, http.StatusBadRequest, "missing query parameter 'temperature'")
		return
	}
	temp, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(temp) || math.IsInf(temp, 0) {
		writeErr(w, http.StatusBadRequest, "invalid temperature")
		return
	}
	writeJSON(w, http.StatusOK, thresholdDTO{Temperature: temp, ExpectedTDS: s.svc.ExpectedThreshold(temp)})
}

func (s *Server) handlePostStart(w http.ResponseWriter, r *http.Request) {
	// body: {"value": true}
	postValue(s, w, r, func(v bool) error {
		if !v {
			return errValueMustBeTrue
		}
		if err := s.svc.RequestStart(); err != nil {
			return err
		}
		s.log.Info("remote start requested", zap.String("remote_addr", r.RemoteAddr))
		return nil
	})
}

var errValueMustBeTrue = errors.New("value must be true")

// ---- generic helpers ----
func (s *Server) respondSnapshot(w http.ResponseWriter, code int) {
	writeJSON(w, code, ports.ToDTO(s.deviceID, s.svc.Get()))
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
		code := http.StatusBadRequest
		if errors.Is(err, rig.ErrCycleActive) {
			code = http.StatusConflict
		}
		writeErr(w, code, err.Error())
		return
	}

	s.respondSnapshot(w, http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
