package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/library-loan-service/library/internal/service"
	"github.com/Astemirdum/library-loan-service/pkg/auth"
	"github.com/Astemirdum/library-loan-service/pkg/kafka"
	"github.com/Astemirdum/library-loan-service/pkg/logger"
	"github.com/Astemirdum/library-loan-service/pkg/postgres"
	"github.com/Astemirdum/library-loan-service/pkg/redis"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8060"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE"`
}

type Notify struct {
	From string `envconfig:"NOTIFY_FROM" default:"library@example.com"`
	// breaker settings for the kafka notifier
	BreakerWindow   int           `envconfig:"NOTIFY_BREAKER_WINDOW" default:"20"`
	BreakerTimeout  time.Duration `envconfig:"NOTIFY_BREAKER_TIMEOUT" default:"30s"`
	BreakerFailRate float64       `envconfig:"NOTIFY_BREAKER_FAIL_RATE" default:"0.5"`
	BreakerRecovery int           `envconfig:"NOTIFY_BREAKER_RECOVERY" default:"3"`
}

type Config struct {
	Server   HTTPServer         `yaml:"server"`
	Database postgres.DB        `yaml:"db"`
	Redis    redis.Config       `yaml:"redis"`
	Kafka    kafka.Config       `yaml:"kafka"`
	Auth     auth.Config        `yaml:"auth"`
	Loan     service.LoanPolicy `yaml:"loan"`
	Notify   Notify             `yaml:"notify"`
	Log      logger.Log         `yaml:"log"`
}

type Option func(*Config)

// WithLogLevel sets the level used unless LOG_LEVEL overrides it.
func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

// WithWriteTimeout sets the response write timeout unless HTTP_WRITE overrides it.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	jscfg, _ := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
