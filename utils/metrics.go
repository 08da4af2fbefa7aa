package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oblatos_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oblatos_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// PointsAwarded counts points granted, by source (session, bonus, activity, snippet).
	PointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oblatos_points_awarded_total",
		Help: "Points granted to users",
	}, []string{"source"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oblatos_cache_hits_total",
		Help: "Cache hits by tier",
	}, []string{"tier"})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oblatos_cache_misses_total",
		Help: "Cache misses",
	})

	CalendarSyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oblatos_calendar_sync_runs_total",
		Help: "Google Calendar synchronisation runs by outcome",
	}, []string{"outcome"})

	PushNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oblatos_push_notifications_total",
		Help: "Push notifications sent to OneSignal by outcome",
	}, []string{"outcome"})
)
