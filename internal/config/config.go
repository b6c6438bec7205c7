package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type HTTPServerConfig struct {
	Port            string        `yaml:"port" env:"HTTP_PORT_AUCTION_SERVICE" env-default:"8086"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	TimeoutGraceful time.Duration `yaml:"timeout_graceful_shutdown" env-default:"15s"`
}

type MongoDBConfig struct {
	URI            string        `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	User           string        `yaml:"user" env:"MONGO_USER"`
	Password       string        `yaml:"password" env:"MONGO_PASSWORD"`
	Database       string        `yaml:"database" env:"MONGO_DATABASE" env-default:"auction_service_db"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env-default:"10s"`
	MinPoolSize    uint64        `yaml:"min_pool_size" env-default:"5"`
	MaxPoolSize    uint64        `yaml:"max_pool_size" env-default:"50"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl" env:"REDIS_SNAPSHOT_TTL" env-default:"1h"`
}

type NATSConfig struct {
	URL string `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05.000Z07:00"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Port    string `yaml:"port" env:"METRICS_PORT" env-default:"9106"`
}

type TracingConfig struct {
	Enabled      bool   `yaml:"enabled" env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
}

// AuctionConfig holds the bidding-engine knobs. The anti-sniping and
// commission values act as defaults until an admin stores overrides.
type AuctionConfig struct {
	LockTimeout          time.Duration `yaml:"lock_timeout" env:"AUCTION_LOCK_TIMEOUT" env-default:"2s"`
	TickInterval         time.Duration `yaml:"tick_interval" env:"AUCTION_TICK_INTERVAL" env-default:"1s"`
	SweepInterval        time.Duration `yaml:"sweep_interval" env:"AUCTION_SWEEP_INTERVAL" env-default:"1s"`
	AntiSnipingWindow    time.Duration `yaml:"anti_sniping_window" env:"AUCTION_ANTI_SNIPING_WINDOW" env-default:"2m"`
	AntiSnipingExtension time.Duration `yaml:"anti_sniping_extension" env:"AUCTION_ANTI_SNIPING_EXTENSION" env-default:"2m"`
	CommissionRate       string        `yaml:"commission_rate" env:"AUCTION_COMMISSION_RATE" env-default:"0.05"`
	DefaultDepositAmount string        `yaml:"default_deposit_amount" env:"AUCTION_DEFAULT_DEPOSIT" env-default:"0"`
}

type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	MongoDB    MongoDBConfig    `yaml:"mongo"`
	Redis      RedisConfig      `yaml:"redis"`
	NATS       NATSConfig       `yaml:"nats"`
	Logger     LoggerConfig     `yaml:"logger"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Auction    AuctionConfig    `yaml:"auction"`
	JWTSecret  string           `yaml:"jwt_secret" env:"JWT_SECRET_KEY" env-required:"true"`
}

func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		err := cleanenv.ReadEnv(&cfg)
		if err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		if _, ok := err.(*os.PathError); ok && path != "" {
			log.Printf("Warning: Config file not found at %s, attempting to load from environment variables only.", path)
			errEnv := cleanenv.ReadEnv(&cfg)
			if errEnv != nil {
				return nil, errEnv
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH_AUCTION_SERVICE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
