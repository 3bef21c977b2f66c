package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath используется, когда путь не задан ни аргументом, ни через GAME_CONFIG
const DefaultPath = "configs/server.yaml"

// Config корневая структура конфигурации сервера
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	Gameplay  GameplayConfig  `yaml:"gameplay"`
	Logging   LoggingConfig   `yaml:"logging"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Admin     AdminConfig     `yaml:"admin"`
}

// ServerConfig описывает сетевые параметры
type ServerConfig struct {
	TCPAddr             string `yaml:"tcp_addr"`
	KCPAddr             string `yaml:"kcp_addr"`
	HTTPAddr            string `yaml:"http_addr"`
	PlayerLimit         int    `yaml:"player_limit"`
	TickMillis          int    `yaml:"tick_ms"`
	OutboundBuffer      int    `yaml:"outbound_buffer"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MaxLineBytes        int    `yaml:"max_line_bytes"`
}

// WorldConfig описывает размеры мира и сид генерации
type WorldConfig struct {
	Seed    string `yaml:"seed"`
	ChunksX int    `yaml:"chunks_x"`
	ChunksY int    `yaml:"chunks_y"`
}

// GameplayConfig параметры проверки правок мира
type GameplayConfig struct {
	ReachDistance float64 `yaml:"reach_distance"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// AdminConfig учётная запись администратора REST API
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	JWTSecret    string `yaml:"jwt_secret"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			TickMillis:          16,
			OutboundBuffer:      8192,
			ReadTimeoutSeconds:  600,
			WriteTimeoutSeconds: 10,
			MaxLineBytes:        4096,
		},
		World: WorldConfig{
			ChunksX: 64,
			ChunksY: 64,
		},
		Gameplay: GameplayConfig{
			ReachDistance: 8000,
		},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
		},
		EventBus: EventBusConfig{
			Stream:    "WORLD",
			Retention: 24,
			Buffer:    1024,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "swagaria-server",
			SampleRatio: 1,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
	}
}

// GetTCPAddr возвращает адрес TCP листенера: config -> env -> default
func (s *ServerConfig) GetTCPAddr() string {
	return getAddrWithEnvFallback(s.TCPAddr, "GAME_TCP_ADDR", ":25565")
}

// GetKCPAddr возвращает адрес KCP листенера; пустая строка отключает KCP
func (s *ServerConfig) GetKCPAddr() string {
	return getAddrWithEnvFallback(s.KCPAddr, "GAME_KCP_ADDR", "")
}

// GetHTTPAddr возвращает адрес REST API
func (s *ServerConfig) GetHTTPAddr() string {
	return getAddrWithEnvFallback(s.HTTPAddr, "GAME_HTTP_ADDR", ":8088")
}

// GetPlayerLimit возвращает лимит игроков: config -> env -> default
func (s *ServerConfig) GetPlayerLimit() int {
	return getIntWithEnvFallback(s.PlayerLimit, "GAME_PLAYER_LIMIT", 10)
}

// TickInterval период тика симуляции
func (s *ServerConfig) TickInterval() time.Duration {
	return time.Duration(s.TickMillis) * time.Millisecond
}

// ReadTimeout таймаут чтения соединения; 0 отключает таймаут
func (s *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout таймаут записи в соединение
func (s *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// GetSeed возвращает строковый сид мира: config -> env GAME_SEED
func (w *WorldConfig) GetSeed() string {
	return getAddrWithEnvFallback(w.Seed, "GAME_SEED", "")
}

// GetURL возвращает адрес NATS; пустая строка означает in-memory шину
func (e *EventBusConfig) GetURL() string {
	return getAddrWithEnvFallback(e.URL, "NATS_URL", "")
}

// GetJWTSecret возвращает секрет подписи токенов администратора
func (a *AdminConfig) GetJWTSecret() string {
	return getAddrWithEnvFallback(a.JWTSecret, "JWT_SECRET", "")
}

// getAddrWithEnvFallback возвращает строку с приоритетом: config -> env -> default
func getAddrWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// getIntWithEnvFallback возвращает число с приоритетом: config -> env -> default
func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.World.ChunksX <= 0 || c.World.ChunksY <= 0 {
		return fmt.Errorf("world size must be positive, got %dx%d chunks", c.World.ChunksX, c.World.ChunksY)
	}
	if c.Server.TickMillis <= 0 {
		return errors.New("server.tick_ms must be positive")
	}
	if c.Server.OutboundBuffer <= 0 {
		return errors.New("server.outbound_buffer must be positive")
	}
	if c.Server.MaxLineBytes < 64 {
		return errors.New("server.max_line_bytes must be at least 64")
	}
	if c.Gameplay.ReachDistance <= 0 {
		return errors.New("gameplay.reach_distance must be positive")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0,1], got %g", c.Telemetry.SampleRatio)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берётся GAME_CONFIG, затем DefaultPath; отсутствие
// файла по умолчанию не является ошибкой.
func Load(path string) (*Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			path = DefaultPath
			explicit = false
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
