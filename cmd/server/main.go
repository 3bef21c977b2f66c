package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/swagaria-server/internal/api"
	"github.com/annel0/swagaria-server/internal/auth"
	"github.com/annel0/swagaria-server/internal/config"
	"github.com/annel0/swagaria-server/internal/eventbus"
	"github.com/annel0/swagaria-server/internal/logging"
	"github.com/annel0/swagaria-server/internal/network"
	"github.com/annel0/swagaria-server/internal/observability"
	"github.com/annel0/swagaria-server/internal/util"
	"github.com/annel0/swagaria-server/internal/world"
	"github.com/annel0/swagaria-server/internal/world/item"
	"github.com/annel0/swagaria-server/internal/world/tile"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию GAME_CONFIG или configs/server.yaml)")
	hashPassword := flag.String("hash-password", "", "вывести bcrypt-хеш пароля для admin.password_hash и выйти")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("❌ Ошибка хеширования пароля: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	consoleLevel, _ := logging.ParseLevel(cfg.Logging.ConsoleLevel)
	fileLevel, _ := logging.ParseLevel(cfg.Logging.FileLevel)
	logging.Configure(logging.Options{
		Dir:          cfg.Logging.Dir,
		ConsoleLevel: consoleLevel,
		FileLevel:    fileLevel,
	})
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск Swagaria сервера...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed := util.SeedFromString(cfg.World.GetSeed())

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.Settings{
			ServiceName:  cfg.Telemetry.ServiceName,
			Endpoint:     cfg.Telemetry.Endpoint,
			SampleRatio:  cfg.Telemetry.SampleRatio,
			WorldSeed:    seed,
			WorldChunksX: cfg.World.ChunksX,
			WorldChunksY: cfg.World.ChunksY,
		})
		if err != nil {
			logging.Warn("⚠️ OpenTelemetry не запущен: %v", err)
		} else {
			defer func() {
				if err := shutdownTelemetry(context.Background()); err != nil {
					logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === МИР ===
	w, err := world.New(world.Config{
		Seed:    seed,
		ChunksX: cfg.World.ChunksX,
		ChunksY: cfg.World.ChunksY,
		Terrain: world.DefaultTerrain(),
	}, tile.DefaultCatalog())
	if err != nil {
		logging.Error("❌ Ошибка генерации мира: %v", err)
		os.Exit(1)
	}

	// === ШИНА СОБЫТИЙ ===
	bus, err := openEventBus(cfg)
	if err != nil {
		logging.Error("❌ Ошибка подключения шины событий: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("Логгер событий не подписан: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, registry)
	busMetrics.Start()
	defer busMetrics.Stop()

	// === ИГРОВОЙ СЕРВЕР ===
	gameServer := network.NewGameServer(network.Config{
		TCPAddr:        cfg.Server.GetTCPAddr(),
		KCPAddr:        cfg.Server.GetKCPAddr(),
		PlayerLimit:    cfg.Server.GetPlayerLimit(),
		TickInterval:   cfg.Server.TickInterval(),
		ReadTimeout:    cfg.Server.ReadTimeout(),
		WriteTimeout:   cfg.Server.WriteTimeout(),
		OutboundBuffer: cfg.Server.OutboundBuffer,
		MaxLineBytes:   cfg.Server.MaxLineBytes,
		ReachDistance:  cfg.Gameplay.ReachDistance,
	}, w, item.DefaultCatalog(), bus, network.NewMetrics(registry))

	if err := gameServer.Start(); err != nil {
		logging.Error("❌ Ошибка запуска игрового сервера: %v", err)
		os.Exit(1)
	}

	// === REST API ===
	tokens, err := auth.NewTokenIssuer(cfg.Admin.GetJWTSecret(), auth.DefaultTokenTTL)
	if err != nil {
		logging.Error("❌ Ошибка настройки JWT: %v", err)
		gameServer.Stop()
		os.Exit(1)
	}
	admin := auth.Admin{Username: cfg.Admin.Username, PasswordHash: cfg.Admin.PasswordHash}
	if !admin.Enabled() {
		logging.Warn("⚠️ admin.password_hash не задан: административные эндпоинты недоступны")
	}

	restServer := api.NewRestServer(api.Config{
		Addr:      cfg.Server.GetHTTPAddr(),
		Game:      gameServer,
		Admin:     admin,
		Tokens:    tokens,
		Registry:  registry,
		Telemetry: cfg.Telemetry.Enabled,
		Shutdown:  stop,
	})
	go func() {
		if err := restServer.Start(); err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
			stop()
		}
	}()

	logging.Info("✅ Все сервисы запущены: seed=%d, мир %dx%d", seed, w.Width, w.Height)
	logging.Info("   🎮 Игровой трафик: TCP %q, KCP %q, WebSocket /ws", cfg.Server.GetTCPAddr(), cfg.Server.GetKCPAddr())
	logging.Info("   🌐 REST API: %s", cfg.Server.GetHTTPAddr())

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, останавливаемся...")

	// === GRACEFUL SHUTDOWN ===
	gameServer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// openEventBus JetStream при заданном URL, иначе шина в памяти
func openEventBus(cfg *config.Config) (eventbus.EventBus, error) {
	url := cfg.EventBus.GetURL()
	if url == "" {
		logging.Info("🚌 Шина событий в памяти (буфер %d)", cfg.EventBus.Buffer)
		return eventbus.NewMemoryBus(cfg.EventBus.Buffer), nil
	}

	retention := time.Duration(cfg.EventBus.Retention) * time.Hour
	bus, err := eventbus.NewJetStreamBus(url, cfg.EventBus.Stream, retention)
	if err != nil {
		return nil, err
	}
	logging.Info("🚌 Шина событий NATS JetStream: %s, стрим %s", url, cfg.EventBus.Stream)
	return bus, nil
}
