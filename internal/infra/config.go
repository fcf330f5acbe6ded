package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultServerURL  = "http://localhost:8000"
	DefaultMockURL    = "http://localhost:8080"
	DefaultPort       = 3000
	DefaultAPITimeout = 5 * time.Second

	// DefaultEnvFile — временный файл окружения, который пишет лаунчер.
	DefaultEnvFile = ".env.local"
	EnvFileVar     = "DASHBOARD_ENV_FILE"
)

// Config — корневая структура конфигурации дашборда и индексатора.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Indexer  IndexerConfig  `mapstructure:"indexer"`
}

type AppConfig struct {
	Env string `mapstructure:"env"` // development, production, test
}

// ServerConfig описывает настройки HTTP-сервера дашборда.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr собирает адрес для http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig описывает бэкенд (реальный или mock), к которому обращается дашборд.
type APIConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	MockURL   string        `mapstructure:"mock_url"`
	UseMock   bool          `mapstructure:"use_mock"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// BaseURL возвращает адрес бэкенда для данных страниц.
// Прокси-роуты метрик всегда ходят в MockURL.
func (a APIConfig) BaseURL() string {
	if a.UseMock {
		return a.MockURL
	}
	return a.ServerURL
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// DatabaseConfig описывает подключение к PostgreSQL (только индексатор).
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (блокировка индексатора).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IndexerConfig управляет разовым прогоном индексатора.
type IndexerConfig struct {
	PageSize  int           `mapstructure:"page_size"`
	MaxPages  int           `mapstructure:"max_pages"`
	Range     string        `mapstructure:"range"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	Resources []string      `mapstructure:"resources"`

	// Настройки защиты исходящих вызовов
	RateLimit     float64       `mapstructure:"rate_limit"`
	RateBurst     int           `mapstructure:"rate_burst"`
	RetryAttempts uint          `mapstructure:"retry_attempts"`
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	if err := LoadEnvFile(os.Getenv(EnvFileVar)); err != nil {
		return nil, err
	}

	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. Переменные окружения: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := bindLegacyEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.normalize()

	return &cfg, nil
}

// LoadEnvFile подгружает временный файл окружения лаунчера.
// Уже выставленные переменные процесса не перетираются.
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// bindLegacyEnv привязывает имена переменных, которые исторически выставляет окружение дашборда.
// Порядок имен задает приоритет.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"api.server_url": {"API_SERVER_URL", "CYLESTIO_SERVER_URL"},
		"api.mock_url":   {"MOCK_API_URL", "NEXT_PUBLIC_MOCK_API_URL"},
		"api.use_mock":   {"USE_MOCK_API", "NEXT_PUBLIC_USE_MOCK_API"},
		"server.port":    {"PORT", "SERVER_PORT"},
		"app.env":        {"APP_ENV", "NODE_ENV"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("api.server_url", DefaultServerURL)
	v.SetDefault("api.mock_url", DefaultMockURL)
	v.SetDefault("api.use_mock", false)
	v.SetDefault("api.timeout", DefaultAPITimeout)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("indexer.page_size", 100)
	v.SetDefault("indexer.max_pages", 1000)
	v.SetDefault("indexer.range", "7d")
	v.SetDefault("indexer.lock_ttl", 10*time.Minute)
	v.SetDefault("indexer.resources", []string{"agents", "events", "alerts"})
	v.SetDefault("indexer.rate_limit", 20.0)
	v.SetDefault("indexer.rate_burst", 5)
	v.SetDefault("indexer.retry_attempts", 3)
	v.SetDefault("indexer.cb_max_requests", 3)
	v.SetDefault("indexer.cb_interval", 5*time.Second)
	v.SetDefault("indexer.cb_timeout", 30*time.Second)
}

// normalize подставляет дефолты для явно обнуленных значений (например, PORT="").
func (c *Config) normalize() {
	c.API.ServerURL = strings.TrimRight(strings.TrimSpace(c.API.ServerURL), "/")
	if c.API.ServerURL == "" {
		c.API.ServerURL = DefaultServerURL
	}
	c.API.MockURL = strings.TrimRight(strings.TrimSpace(c.API.MockURL), "/")
	if c.API.MockURL == "" {
		c.API.MockURL = DefaultMockURL
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.Server.Port <= 0 {
		c.Server.Port = DefaultPort
	}
}
