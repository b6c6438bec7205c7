package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds the service's custom Prometheus metrics.
type Manager struct {
	Registry *prometheus.Registry

	BidsAcceptedTotal  prometheus.Counter
	BidsRejectedTotal  *prometheus.CounterVec // by rejection reason
	ExtensionsTotal    prometheus.Counter
	AuctionsEndedTotal prometheus.Counter
	BidLatency         prometheus.Histogram
	LiveAuctions       prometheus.Gauge
	Subscribers        prometheus.Gauge
}

func NewManager(serviceName string) *Manager {
	// Hyphens are not valid in metric names.
	serviceName = strings.ReplaceAll(serviceName, "-", "_")
	registry := prometheus.NewRegistry()

	bidsAccepted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "bids_accepted_total",
		Help:      "Total number of accepted bids.",
	})
	bidsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "bids_rejected_total",
		Help:      "Total number of rejected bids by reason.",
	}, []string{"reason"})
	extensions := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "anti_sniping_extensions_total",
		Help:      "Total number of anti-sniping end time extensions.",
	})
	ended := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "auctions_ended_total",
		Help:      "Total number of auctions finalized.",
	})
	bidLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: serviceName,
		Name:      "bid_processing_seconds",
		Help:      "Time spent inside the per-listing critical section.",
		Buckets:   prometheus.DefBuckets,
	})
	liveAuctions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: serviceName,
		Name:      "live_auctions",
		Help:      "Number of auctions currently tracked in memory.",
	})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: serviceName,
		Name:      "event_subscribers",
		Help:      "Number of active push subscribers across all listings.",
	})

	registry.MustRegister(
		bidsAccepted,
		bidsRejected,
		extensions,
		ended,
		bidLatency,
		liveAuctions,
		subscribers,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:           registry,
		BidsAcceptedTotal:  bidsAccepted,
		BidsRejectedTotal:  bidsRejected,
		ExtensionsTotal:    extensions,
		AuctionsEndedTotal: ended,
		BidLatency:         bidLatency,
		LiveAuctions:       liveAuctions,
		Subscribers:        subscribers,
	}
}

// Server exposes the registry on /metrics.
type Server struct {
	srv *http.Server
	log logger.Logger
}

func NewServer(port string, registry *prometheus.Registry, log logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Infof("Prometheus metrics server starting on %s/metrics", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
