package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/swagaria-server/internal/logging"
)

// TraceIDKey ключ trace-ID в gin.Context
const TraceIDKey = "trace_id"

// TraceHeader заголовок ответа с trace-ID
const TraceHeader = "X-Trace-Id"

// RequestLogger снабжает каждый запрос trace-ID и пишет итог запроса в лог.
// Служебные группы (health, metrics) пишутся на уровне DEBUG, ошибки 5xx на WARN.
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создаёт middleware поверх logger; nil означает логгер api
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.GetAPILogger()
	}
	return &RequestLogger{logger: logger}
}

// traceID берёт ID активного OpenTelemetry-спана, затем валидный входящий
// заголовок, иначе генерирует новый
func traceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	if in := c.GetHeader(TraceHeader); in != "" {
		if id, err := uuid.Parse(in); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := traceID(c)
		c.Set(TraceIDKey, id)
		c.Header(TraceHeader, id)

		start := time.Now()
		c.Next()

		group := RouteGroup(c.FullPath())
		status := c.Writer.Status()
		switch {
		case status >= 500:
			rl.logger.Warn("[HTTP] %s %s %d %s group=%s trace=%s", c.Request.Method, c.Request.URL.Path, status, time.Since(start), group, id)
		case group == GroupHealth || group == GroupMetrics:
			rl.logger.Debug("[HTTP] %s %s %d trace=%s", c.Request.Method, c.Request.URL.Path, status, id)
		default:
			rl.logger.Info("[HTTP] %s %s %d %s group=%s ip=%s trace=%s", c.Request.Method, c.Request.URL.Path, status, time.Since(start), group, c.ClientIP(), id)
		}
	}
}
