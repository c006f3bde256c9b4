// Package server exposes the prediction service over HTTP.
//
//	POST /predict   one record -> {prediction, result}
//	GET  /healthz   {status, trained}
//	GET  /metrics   Prometheus exposition
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/YuminosukeSato/heartml/internal/predict"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes caps a prediction request body.
const maxBodyBytes = 64 << 10

// Predictor is the part of predict.Service the handlers use.
type Predictor interface {
	Predict(ctx context.Context, rec predict.Record) (*predict.Prediction, error)
	Trained(ctx context.Context) (bool, error)
}

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartml_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heartml_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register http collectors")
		}
	}
	return m, nil
}

// Server holds the HTTP handlers.
type Server struct {
	predictor Predictor
	logger    log.Logger
	metrics   *metrics
	router    chi.Router
}

// New builds the router. Collectors are registered on reg and served, with
// everything else gathered by gatherer, on /metrics.
func New(p Predictor, logger log.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Server, error) {
	if logger == nil {
		logger = log.Nop()
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}
	s := &Server{predictor: p, logger: logger, metrics: m}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Post("/predict", s.handlePredict)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.router = r
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// instrument counts requests and logs every non-metrics request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.metrics.latency.WithLabelValues(route).Observe(elapsed.Seconds())
		if route != "/metrics" {
			s.logger.Info("HTTP request",
				"method", r.Method,
				"route", route,
				"status", status,
				"request_id", middleware.GetReqID(r.Context()),
				log.DurationMsKey, elapsed.Milliseconds(),
			)
		}
	})
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Detail string            `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto status codes: input errors are
// 422, a missing model or a bootstrap that outlived its bound is 503 and
// everything else is 500 with the cause.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var in *errors.InputError
	switch {
	case errors.As(err, &in):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid input", Fields: in.Fields})
	case errors.Is(err, errors.ErrNotTrained):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "model not trained", Detail: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "model not ready", Detail: err.Error()})
	default:
		s.logger.Error("Prediction failed", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Detail: err.Error()})
	}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
		return
	}
	rec, err := predict.DecodeRecord(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pred, err := s.predictor.Predict(r.Context(), *rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

type healthBody struct {
	Status  string `json:"status"`
	Trained bool   `json:"trained"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	trained, err := s.predictor.Trained(r.Context())
	if err != nil {
		s.logger.Warn("Artifact check failed", log.ErrAttrKey, err.Error())
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Trained: trained})
}

// ListenAndServe serves h on addr until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	logger.Info("Server stopped")
	return nil
}
