package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quill_redis_errors_total",
	Help: "Total number of Redis command errors",
}, []string{"command"})

// CacheHits counts cache-aside hits per key prefix.
var CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quill_cache_hits_total",
	Help: "Total number of cache hits",
}, []string{"prefix"})

// CacheMisses counts cache-aside misses per key prefix.
var CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quill_cache_misses_total",
	Help: "Total number of cache misses",
}, []string{"prefix"})

// TasksProcessed counts task-queue completions by task type and outcome
// (ok, skipped, retried, dead).
var TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quill_tasks_processed_total",
	Help: "Total number of async tasks processed by outcome",
}, []string{"type", "outcome"})

// NotificationsCreated counts notification rows written by the dispatcher.
var NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quill_notifications_created_total",
	Help: "Total number of notifications created",
}, []string{"type"})

// InitMetrics creates the Prometheus HTTP middleware for the given service.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware wraps the fiberprometheus middleware as a fiber.Handler.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
