package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Mongo    *MongoConfig    `mapstructure:"mongo"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Kafka    *KafkaConfig    `mapstructure:"kafka"`
	Store    *StoreConfig    `mapstructure:"store"`
	Chat     *ChatConfig     `mapstructure:"chat"`
	Log      *LogConfig      `mapstructure:"log"`
}

type APIConfig struct {
	Environment        string        `mapstructure:"environment"`
	Port               string        `mapstructure:"port"`
	BaseURL            string        `mapstructure:"base_url"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	JWTTTL             time.Duration `mapstructure:"jwt_ttl"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
}

// LogConfig.Level is the only setting applied without a restart, see Watch.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode,
	)
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// RedisConfig enables cross-instance room fan-out when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

func (c *RedisConfig) Enabled() bool {
	return c != nil && c.Addr != ""
}

// KafkaConfig enables chat.message.created events when Brokers is not empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

func (c *KafkaConfig) Enabled() bool {
	return c != nil && len(c.Brokers) > 0
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type ChatConfig struct {
	EnforceParticipants bool    `mapstructure:"enforce_participants"`
	SendRate            float64 `mapstructure:"send_rate"`
	SendBurst           int     `mapstructure:"send_burst"`
	MaxMessageBytes     int64   `mapstructure:"max_message_bytes"`
	SendBuffer          int     `mapstructure:"send_buffer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "5001")
	v.SetDefault("api.base_url", "localhost:5001")
	v.SetDefault("api.jwt_ttl", 24*time.Hour)
	v.SetDefault("api.allowed_cors_domains", []string{"http://localhost:5173"})
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("mongo.database", "chatapp")
	v.SetDefault("mongo.collection", "chats")
	v.SetDefault("redis.channel", "chat:rooms")
	v.SetDefault("kafka.topic", "chat.message.created")
	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("chat.enforce_participants", true)
	v.SetDefault("chat.send_rate", 5)
	v.SetDefault("chat.send_burst", 10)
	v.SetDefault("chat.max_message_bytes", 8<<20)
	v.SetDefault("chat.send_buffer", 256)
}

// Load reads the yaml file at path and lets APP_* environment variables override it,
// e.g. APP_API_JWT_SIGNING_KEY for api.jwt_signing_key.
func Load(path string) (*AppConfig, error) {
	v, err := read(path)
	if err != nil {
		return nil, err
	}

	return decode(v)
}

// Watch calls apply with the reloaded config every time the file at path changes.
// Changes that fail validation are logged and skipped.
func Watch(path string, apply func(*AppConfig)) error {
	v, err := read(path)
	if err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		conf, err := decode(v)
		if err != nil {
			zap.L().Warn("ignoring invalid config change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		zap.L().Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		apply(conf)
	})
	v.WatchConfig()

	return nil
}

func read(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("app")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	return v, nil
}

func decode(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *AppConfig) validate() error {
	if c.API.JWTSigningKey == "" {
		return fmt.Errorf("api.jwt_signing_key is required")
	}

	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMongo, c.Store.Driver)
	}

	if c.Store.Driver == StoreDriverMongo && c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required when store.driver is %q", StoreDriverMongo)
	}

	return nil
}
