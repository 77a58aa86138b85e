package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsOptions configures the auth metrics collectors.
type MetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// Metrics exposes Prometheus collectors for token and verification flows.
type Metrics struct {
	TokensIssued      *prometheus.CounterVec
	TokensRotated     prometheus.Counter
	SessionsRevoked   *prometheus.CounterVec
	TamperDetected    prometheus.Counter
	VerificationSent  prometheus.Counter
	VerificationFails *prometheus.CounterVec
}

// NewMetrics constructs the collectors and registers them with the provided
// registerer.
func NewMetrics(opts MetricsOptions) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "user_service"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Total number of issued tokens partitioned by kind (access, refresh).",
		}, []string{"kind"}),
		TokensRotated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_rotated_total",
			Help:      "Total number of successful refresh token rotations.",
		}),
		SessionsRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_revoked_total",
			Help:      "Total number of revoked refresh sessions partitioned by scope (single, all).",
		}, []string{"scope"}),
		TamperDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_tamper_detected_total",
			Help:      "Total number of refresh token hash mismatches, a possible theft or replay signal.",
		}),
		VerificationSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "verification_codes_sent_total",
			Help:      "Total number of verification codes handed to the delivery port.",
		}),
		VerificationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "verification_failures_total",
			Help:      "Total number of rejected verification attempts partitioned by reason.",
		}, []string{"reason"}),
	}

	collectors := []prometheus.Collector{
		m.TokensIssued,
		m.TokensRotated,
		m.SessionsRevoked,
		m.TamperDetected,
		m.VerificationSent,
		m.VerificationFails,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}

	return m, nil
}

// Nop returns unregistered collectors, used when metrics are disabled.
func Nop() *Metrics {
	m, _ := NewMetrics(MetricsOptions{Registerer: prometheus.NewRegistry()})
	return m
}
