package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LinesRecv = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gtrc_lines_received_total",
		Help: "Total de líneas leídas del transporte",
	})
	FramesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gtrc_frames_rejected_total",
		Help: "Frames descartados por motivo",
	}, []string{"reason"})
	ReadingsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gtrc_readings_accepted_total",
		Help: "Lecturas validadas y enviadas al sink",
	})
	AcksSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gtrc_acks_sent_total",
		Help: "Total de ACK escritos al dispositivo",
	})
	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gtrc_sink_errors_total",
		Help: "Errores de upsert por sink",
	}, []string{"sink"})
	ParseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gtrc_parse_latency_seconds",
		Help:    "Latencia del parseo por frame",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveParseLatency(start time.Time) {
	ParseLatency.Observe(time.Since(start).Seconds())
}

// NewMetricsHandler expone /metrics y /healthz.
func NewMetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// StartMetricsServer bloquea hasta que el servidor termina.
func StartMetricsServer(port string) error {
	err := http.ListenAndServe(":"+port, NewMetricsHandler())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
