// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	Scheduler               `yaml:"scheduler"`
	EmailProvider           `yaml:"email_provider"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP    string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP    time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	MetricsAddress string        `yaml:"metrics_address" env-default:":9091"`
	RateLimit      float64       `yaml:"rate_limit" env-default:"10"`
	RateBurst      int           `yaml:"rate_burst" env-default:"20"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay" env-default:"3s"`
}

// Scheduler настройки планировщика уведомлений
type Scheduler struct {
	Interval        time.Duration `yaml:"interval" env-default:"1h"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout" env-default:"15s"`
	Workers         int           `yaml:"workers" env-default:"4"`
	PopupDedupTTL   time.Duration `yaml:"popup_dedup_ttl" env-default:"1h"`
	PopupIcon       string        `yaml:"popup_icon" env-default:"/static/icon.png"`
}

// EmailProvider выбор и настройки провайдера для отправки писем
type EmailProvider struct {
	Kind    string        `yaml:"kind" env:"EMAIL_PROVIDER" env-default:"emailjs"`
	APIURL  string        `yaml:"api_url" env-default:"https://api.emailjs.com/api/v1.0"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// SMTP настройки smtp-провайдера
type SMTP struct {
	SMTPHost string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"smtp_port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPass string `yaml:"smtp_pass" env:"SMTP_PASS"`
}

// MustLoad функция для загрузки конфига, путь берется из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load читает конфиг из файла и переменных окружения.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"RabbitMQ:\n"+
			"  MaxRetries: %d\n"+
			"Scheduler:\n"+
			"  Interval: %s\n"+
			"  DeliveryTimeout: %s\n"+
			"  Workers: %d\n"+
			"EmailProvider:\n"+
			"  Kind: %s\n"+
			"  APIURL: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.RabbitMQMaxRetries,
		c.Interval,
		c.DeliveryTimeout,
		c.Workers,
		c.Kind,
		c.APIURL,
	)
}
