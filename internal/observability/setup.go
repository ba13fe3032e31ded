package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger

	// Metrics
	moderationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_actions_total",
			Help: "Total number of delete-and-mute actions taken",
		},
		[]string{"reason"},
	)

	policyTogglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_policy_toggles_total",
			Help: "Total number of per-chat security toggles",
		},
		[]string{"state"},
	)

	unmuteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unmute_requests_total",
			Help: "Total number of admin unmute requests by outcome",
		},
		[]string{"outcome"},
	)
)

func Init(ctx context.Context, metricsAddr string) error {
	// Initialize logger
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	// Register metrics
	prometheus.MustRegister(moderationActionsTotal)
	prometheus.MustRegister(policyTogglesTotal)
	prometheus.MustRegister(unmuteRequestsTotal)

	// Setup OpenTelemetry (simplified setup)
	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	// Start Prometheus metrics endpoint
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

// RecordModerationAction records an executed delete-and-mute action
func RecordModerationAction(reason string) {
	moderationActionsTotal.WithLabelValues(reason).Inc()
}

// RecordPolicyToggle records a security on/off toggle
func RecordPolicyToggle(enabled bool) {
	state := "off"
	if enabled {
		state = "on"
	}
	policyTogglesTotal.WithLabelValues(state).Inc()
}

// RecordUnmuteRequest records an unmute request outcome
func RecordUnmuteRequest(outcome string) {
	unmuteRequestsTotal.WithLabelValues(outcome).Inc()
}
