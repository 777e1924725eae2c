package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer   `yaml:"http_server"`
	Storage      `yaml:"storage"`
	Postgres     `yaml:"postgres"`
	Mongo        `yaml:"mongo"`
	Redis        `yaml:"redis"`
	RabbitMQ     `yaml:"rabbitmq"`
	Tokens       `yaml:"tokens"`
	Verification `yaml:"verification"`
	Encoder      `yaml:"encoder"`
}

type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

type Mongo struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"face_verification_db"`
}

// Redis caches public user fields. An empty address disables the cache.
type Redis struct {
	Address  string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	UserTTL  time.Duration `yaml:"user_ttl" env-default:"5m"`
}

// RabbitMQ receives verification.completed events. An empty url disables publishing.
type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-default:"verification.completed"`
}

type Tokens struct {
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"30m"`
	Secret         string        `yaml:"secret" env:"TOKEN_SECRET" env-required:"true"`
}

type Verification struct {
	ModelName      string        `yaml:"model_name" env:"MODEL_NAME" env-default:"Facenet512"`
	Threshold      float64       `yaml:"threshold" env:"DISTANCE_THRESHOLD" env-default:"0.4"`
	DistanceMetric string        `yaml:"distance_metric" env:"DISTANCE_METRIC" env-default:"cosine"`
	UploadDir      string        `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"uploads"`
	MaxFileSize    int64         `yaml:"max_file_size" env:"MAX_FILE_SIZE" env-default:"5242880"`
	EncoderTimeout time.Duration `yaml:"encoder_timeout" env-default:"30s"`
	HistoryLimit   int           `yaml:"history_limit" env-default:"50"`
}

type Encoder struct {
	URL string `yaml:"url" env:"ENCODER_URL" env-default:"http://localhost:8000"`
}

// MustLoad reads the config at configPath or panics.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch cfg.Storage.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return &cfg, nil
}
