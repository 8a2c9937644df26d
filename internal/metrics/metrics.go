package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModerationVerdicts counts classified payloads by severity and content type.
	ModerationVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigflow_moderation_verdicts_total",
			Help: "Total number of classified payloads by severity and content type",
		},
		[]string{"severity", "content_type"},
	)

	// SessionsCreated counts service sessions opened by completion detection.
	SessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigflow_sessions_created_total",
			Help: "Total number of service sessions created by source",
		},
		[]string{"source"},
	)

	SessionsPromoted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gigflow_sessions_promoted_total",
			Help: "Total number of sessions moved to review_prompted",
		},
	)

	ReviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigflow_reviews_submitted_total",
			Help: "Total number of reviews submitted by reviewee role",
		},
		[]string{"role"},
	)

	SchedulerLastTick = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gigflow_scheduler_last_tick_timestamp_seconds",
			Help: "Unix time of the last completed review prompt scan",
		},
	)
)
