package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsAdvanced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cc_corpus",
		Name:      "records_advanced_total",
		Help:      "Records that reached a stage, by stage.",
	}, []string{"stage"})
	RecordsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cc_corpus",
		Name:      "records_failed_total",
		Help:      "Records moved to the error stage, by the operation that failed.",
	}, []string{"op"})
	DocumentsSeen = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cc_corpus",
		Name:      "documents_seen_total",
		Help:      "HTTP response captures read from archives.",
	})
	DocumentsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cc_corpus",
		Name:      "documents_accepted_total",
		Help:      "Documents that passed the quality filter.",
	})
	DocumentsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cc_corpus",
		Name:      "documents_rejected_total",
		Help:      "Documents dropped, by reason.",
	}, []string{"reason"})
	SinkFlushes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cc_corpus",
		Name:      "sink_flushes_total",
		Help:      "Buffered sink flushes to output files.",
	})
	SinkBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cc_corpus",
		Name:      "sink_bytes_total",
		Help:      "Bytes flushed to output files.",
	})
)

// Init registers collectors; call once from main.
func Init() {
	prometheus.MustRegister(RecordsAdvanced, RecordsFailed, DocumentsSeen, DocumentsAccepted,
		DocumentsRejected, SinkFlushes, SinkBytes)
}

// Serve starts a /metrics server on the given addr (e.g., ":9090"). Non-blocking when run in goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// ObserveFlush is a sink flush hook.
func ObserveFlush(n int) {
	SinkFlushes.Inc()
	SinkBytes.Add(float64(n))
}
