package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Группы маршрутов, которыми помечаются HTTP-метрики
const (
	GroupHealth    = "health"
	GroupMetrics   = "metrics"
	GroupWebSocket = "ws"
	GroupStatus    = "status" // /api/stats, /api/players
	GroupWorld     = "world"
	GroupAuth      = "auth"
	GroupAdmin     = "admin"
	GroupOther     = "other"
	GroupUnmatched = "unmatched"
)

// RouteGroup сводит шаблон маршрута gin к метке группы.
// Идентификаторы из пути (чанки, id игроков) в метки не попадают.
func RouteGroup(fullPath string) string {
	switch {
	case fullPath == "":
		return GroupUnmatched
	case fullPath == "/health":
		return GroupHealth
	case fullPath == "/metrics":
		return GroupMetrics
	case fullPath == "/ws":
		return GroupWebSocket
	case fullPath == "/api/stats", fullPath == "/api/players":
		return GroupStatus
	case strings.HasPrefix(fullPath, "/api/world"):
		return GroupWorld
	case strings.HasPrefix(fullPath, "/api/auth"):
		return GroupAuth
	case strings.HasPrefix(fullPath, "/api/admin"):
		return GroupAdmin
	default:
		return GroupOther
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// HTTPMetrics метрики REST API по группам маршрутов:
//
//	<ns>_http_requests_total{group,method,class}
//	<ns>_http_request_duration_seconds{group}
//	<ns>_http_requests_inflight
//	<ns>_websocket_upgrades_total
//
// Запросы /ws живут всю игровую сессию, поэтому в гистограмму длительности
// не попадают.
type HTTPMetrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inflight   prometheus.Gauge
	wsUpgrades prometheus.Counter
}

// NewHTTPMetrics создаёт метрики и регистрирует их в reg
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP-запросы по группам маршрутов и классам ответа.",
		}, []string{"group", "method", "class"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"group"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "Текущее количество обрабатываемых HTTP-запросов.",
		}),
		wsUpgrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_upgrades_total",
			Help:      "Запросы на подключение игрового клиента через WebSocket.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.inflight, m.wsUpgrades)
	return m
}

// Handler возвращает middleware для router.Use()
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		group := RouteGroup(c.FullPath())
		if group == GroupWebSocket {
			m.wsUpgrades.Inc()
			c.Next()
			return
		}

		start := time.Now()
		m.inflight.Inc()
		c.Next()
		m.inflight.Dec()

		m.duration.WithLabelValues(group).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(group, c.Request.Method, statusClass(c.Writer.Status())).Inc()
	}
}

// Mount добавляет GET /metrics с метриками из g
func (m *HTTPMetrics) Mount(r gin.IRoutes, g prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
