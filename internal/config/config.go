package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config описывает конфигурацию обоих процессов (API и воркера).
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Postgres PostgresConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Push     PushConfig
	JWT      JWTConfig

	DispatchQueueName string `yaml:"dispatch_queue_name" env:"DISPATCH_QUEUE_NAME" env-default:"notification_dispatch"`
	WorkerConcurrency int    `yaml:"worker_concurrency" env:"WORKER_CONCURRENCY" env-default:"10"`
	HealthCheckPort   string `yaml:"health_check_port" env:"HEALTH_CHECK_PORT" env-default:"8088"`
}

type ServerConfig struct {
	Port               string `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	CORSAllowedOrigins string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
}

type RabbitMQConfig struct {
	// URI может быть пустым: тогда диспетчер работает в режиме без очереди,
	// а фоновые эффекты выполняются в том же процессе.
	URI string `yaml:"uri" env:"RABBITMQ_URI"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"` // Optional: realtime broadcast is skipped when empty
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type PushConfig struct {
	ServerKey string `yaml:"server_key" env:"FCM_SERVER_KEY"` // Optional: push delivery is disabled when empty
	Endpoint  string `yaml:"endpoint" env:"FCM_ENDPOINT" env-default:"https://fcm.googleapis.com/fcm/send"`
}

type JWTConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	// Статический секрет для межсервисных вызовов /internal/*
	InterServiceSecret string `yaml:"inter_service_secret" env:"INTER_SERVICE_SECRET"`
}

// GetAllowedOrigins разбивает строку CORS-оригинов на срез.
func (c *Config) GetAllowedOrigins() []string {
	if c.Server.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.Server.CORSAllowedOrigins, " ", ""), ",")
}

// LoadConfig читает config.yml, при его отсутствии — переменные окружения.
func LoadConfig() (*Config, error) {
	configPath := "config.yml"

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v. Попытка чтения из переменных окружения.", configPath, err)
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
		}
	}

	return &cfg, nil
}
