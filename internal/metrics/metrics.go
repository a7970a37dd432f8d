// Package metrics содержит prometheus-коллекторы бота и HTTP API.
// Все коллекторы регистрируются в глобальном реестре при старте.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RatingChanges: результаты операций рейтинга (applied, self_target, ...).
	RatingChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_changes_total",
			Help: "Rating change requests by result",
		},
		[]string{"result"},
	)

	// RatingPointsMoved: сколько баллов реально перемещено (give/take/admin).
	RatingPointsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_points_moved_total",
			Help: "Rating points moved by direction",
		},
		[]string{"direction"},
	)

	// RatingShame: сколько раз объявлен позор.
	RatingShame = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rating_shame_total",
			Help: "Shame announcements",
		},
	)

	// BotUpdates: апдейты Telegram по типу обработки.
	BotUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Telegram updates by kind",
		},
		[]string{"kind"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rating_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(RatingChanges)
	prometheus.MustRegister(RatingPointsMoved)
	prometheus.MustRegister(RatingShame)
	prometheus.MustRegister(BotUpdates)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
}

// GinMiddleware считает запросы и время ответа по шаблону маршрута.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath() // шаблон, а не реальный URL, иначе взорвётся кардинальность
		if path == "" {
			path = "unknown"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
