package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/annel0/swagaria-server/internal/logging"
)

// Settings параметры трассировки
type Settings struct {
	ServiceName string
	// Endpoint host:port OTLP/HTTP коллектора; пустой означает
	// OTEL_EXPORTER_OTLP_ENDPOINT или localhost:4318
	Endpoint string
	// SampleRatio доля корневых спанов, попадающих в выборку (0..1)
	SampleRatio float64
	// World описание мира, которое попадёт в ресурс
	WorldSeed    int64
	WorldChunksX int
	WorldChunksY int
}

// Shutdown сбрасывает накопленные спаны и останавливает провайдер
type Shutdown func(context.Context) error

func (s Settings) sampler() sdktrace.Sampler {
	switch {
	case s.SampleRatio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case s.SampleRatio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.SampleRatio))
	}
}

func (s Settings) resource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(s.ServiceName),
			attribute.Int64("swagaria.world.seed", s.WorldSeed),
			attribute.Int("swagaria.world.chunks_x", s.WorldChunksX),
			attribute.Int("swagaria.world.chunks_y", s.WorldChunksY),
		),
	)
}

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный
// TracerProvider. Экспортер соединяется лениво, поэтому недоступный
// коллектор не мешает запуску сервера.
func InitTelemetry(ctx context.Context, s Settings) (Shutdown, error) {
	var opts []otlptracehttp.Option
	if s.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(s.Endpoint), otlptracehttp.WithInsecure())
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := s.resource(ctx)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(s.sampler()),
	)
	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (service=%s, endpoint=%q, sample=%.2f)", s.ServiceName, s.Endpoint, s.SampleRatio)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}
