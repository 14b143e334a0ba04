// Package metrics registers the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "xui_gateway"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "REST requests handled, by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "REST request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Calls to the 3x-ui panel API, by path and outcome.",
	}, []string{"path", "outcome"})

	PanelLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "panel_logins_total",
		Help:      "Login attempts against the 3x-ui panel, by outcome.",
	}, []string{"outcome"})

	OrphanMetadataRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "orphan_metadata_rows",
		Help:      "Metadata rows found without a matching panel client on the last sweep.",
	})
)

// Upstream call outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnreachable = "unreachable"
	OutcomeStatus      = "bad_status"
	OutcomeEmpty       = "empty"
	OutcomeMalformed   = "malformed"
	OutcomeRejected    = "rejected"
)
