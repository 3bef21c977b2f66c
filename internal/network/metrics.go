package network

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики игрового сервера
type Metrics struct {
	tickDuration prometheus.Histogram
	players      prometheus.Gauge
	connections  *prometheus.CounterVec
	rejected     prometheus.Counter
	commands     *prometheus.CounterVec
	tileUpdates  *prometheus.CounterVec
	droppedLines prometheus.Counter
	kicked       prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "game",
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного тика физики и рассылки.",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.032, 0.064},
		}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "game",
			Name:      "players_online",
			Help:      "Подключённые игроки.",
		}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "connections_total",
			Help:      "Принятые соединения по транспорту.",
		}, []string{"transport"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "connections_rejected_total",
			Help:      "Соединения, отклонённые из-за лимита игроков или остановки.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "commands_total",
			Help:      "Команды клиентов по типу и результату.",
		}, []string{"command", "result"}),
		tileUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "tile_updates_total",
			Help:      "Применённые изменения клеток по слою.",
		}, []string{"layer"}),
		droppedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "outbound_dropped_total",
			Help:      "Исходящие строки, не поместившиеся в буфер сессии.",
		}),
		kicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "sessions_kicked_total",
			Help:      "Сессии, закрытые из-за переполнения буфера или администратором.",
		}),
	}

	reg.MustRegister(m.tickDuration, m.players, m.connections, m.rejected,
		m.commands, m.tileUpdates, m.droppedLines, m.kicked)
	return m
}
