package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/swagaria-server/internal/auth"
	"github.com/annel0/swagaria-server/internal/logging"
	"github.com/annel0/swagaria-server/internal/middleware"
	"github.com/annel0/swagaria-server/internal/network"
	"github.com/annel0/swagaria-server/internal/world"
)

// GameService часть игрового сервера, нужная REST API
type GameService interface {
	Sessions() []*network.Session
	World() *world.World
	Ticks() uint64
	Uptime() time.Duration
	Kick(id int) bool
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// RestServer представляет REST API сервер
type RestServer struct {
	router   *gin.Engine
	server   *http.Server
	game     GameService
	admin    auth.Admin
	tokens   *auth.TokenIssuer
	metrics  *ServerMetrics
	shutdown func()
	logger   *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr      string               // адрес для запуска сервера
	Game      GameService          // игровой сервер
	Admin     auth.Admin           // учётная запись администратора
	Tokens    *auth.TokenIssuer    // выпуск и проверка JWT
	Registry  *prometheus.Registry // реестр метрик для /metrics
	Telemetry bool                 // включить otelgin
	Shutdown  func()               // вызывается из POST /api/admin/shutdown
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Addr == "" {
		config.Addr = ":8088"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	if config.Telemetry {
		router.Use(otelgin.Middleware("rest_api"))
	}

	router.Use(middleware.NewRequestLogger(logging.GetAPILogger()).Handler())

	httpMetrics := middleware.NewHTTPMetrics("rest_api", config.Registry)
	router.Use(httpMetrics.Handler())
	httpMetrics.Mount(router, config.Registry)

	rs := &RestServer{
		router:   router,
		game:     config.Game,
		admin:    config.Admin,
		tokens:   config.Tokens,
		metrics:  NewServerMetrics(),
		shutdown: config.Shutdown,
		logger:   logging.GetAPILogger(),
	}
	rs.server = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Настраиваем маршруты
	rs.setupRoutes()

	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	rs.router.GET("/health", rs.handleHealth)

	// Игровой протокол поверх WebSocket
	rs.router.GET("/ws", func(c *gin.Context) {
		rs.game.HandleWebSocket(c.Writer, c.Request)
	})

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/players", rs.handlePlayers)
		api.GET("/world", rs.handleWorld)
		api.GET("/world/chunks/:cx/:cy", rs.handleChunk)
		api.GET("/world/snapshot", rs.handleSnapshot)
	}

	// Эндпоинт для аутентификации (без JWT защиты)
	api.POST("/auth/login", rs.handleLogin)

	// Административные эндпоинты (только для админов)
	admin := api.Group("/admin")
	admin.Use(rs.requireAdmin())
	{
		admin.POST("/shutdown", rs.handleShutdown)
		admin.POST("/kick/:id", rs.handleKick)
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Handler http.Handler роутера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает HTTP сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.server.Addr)
	err := rs.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop останавливает HTTP сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}
