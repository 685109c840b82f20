package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Payment    PaymentConfig    `yaml:"payment"`
	Courier    CourierConfig    `yaml:"courier"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Outbox     OutboxConfig     `yaml:"outbox"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	CORSOrigin  string        `yaml:"cors_origin" env:"CORS_ORIGIN" env-default:"*"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host         string `yaml:"host" env-default:"localhost"`
	Port         int    `yaml:"port" env-default:"5432"`
	User         string `yaml:"user" env-required:"true"`
	Password     string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name         string `yaml:"name" env-required:"true"`
	MaxOpenConns int    `yaml:"max_open_conns" env-default:"20"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// PaymentConfig — платёжный шлюз; секреты только из окружения
type PaymentConfig struct {
	BaseURL       string        `yaml:"base_url" env-default:"https://api.razorpay.com"`
	KeyID         string        `yaml:"key_id" env:"RAZORPAY_KEY_ID"`
	KeySecret     string        `yaml:"-" env:"RAZORPAY_KEY_SECRET" env-required:"true"`
	WebhookSecret string        `yaml:"-" env:"RAZORPAY_WEBHOOK_SECRET" env-required:"true"`
	Currency      string        `yaml:"currency" env-default:"INR"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
}

type CourierConfig struct {
	BaseURL string        `yaml:"base_url" env-required:"true"`
	Token   string        `yaml:"-" env:"COURIER_API_TOKEN" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password   string        `yaml:"-" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" env-default:"0"`
	LockTTL    time.Duration `yaml:"lock_ttl" env-default:"30s"`
	RateLimit  int           `yaml:"rate_limit" env-default:"5"`
	RateWindow time.Duration `yaml:"rate_window" env-default:"1m"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env-default:"marketplace.notifications"`
}

// OutboxConfig управляет воркером отложенных задач
type OutboxConfig struct {
	PollInterval       time.Duration `yaml:"poll_interval" env-default:"2s"`
	BatchSize          int           `yaml:"batch_size" env-default:"20"`
	MaxAttempts        int           `yaml:"max_attempts" env-default:"8"`
	BaseBackoff        time.Duration `yaml:"base_backoff" env-default:"5s"`
	BookingConcurrency int           `yaml:"booking_concurrency" env-default:"4"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	if f := flag.Lookup("config"); f != nil {
		path = f.Value.String()
	} else {
		flag.StringVar(&path, "config", "", "path to config file")
		flag.Parse()
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
