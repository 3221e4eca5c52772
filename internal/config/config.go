package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"LISTEN_BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"LISTEN_PORT" env-default:"8080"`
}

type MysqlConfig struct {
	HostName string `yaml:"host" env:"MYSQL_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"MYSQL_PORT" env-default:"3306"`
	UserName string `yaml:"user" env:"MYSQL_USER" env-default:"referral"`
	Password string `yaml:"password" env:"MYSQL_PASSWORD" env-default:""`
	Database string `yaml:"database" env:"MYSQL_DATABASE" env-default:"referral"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
	Host     string `yaml:"host" env:"MONGO_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
	User     string `yaml:"user" env:"MONGO_USER" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"referral"`
}

// NetworkConfig holds the referral-tree parameters. MaxDepth bounds the
// ancestor chain; Rates is the percent paid per generation distance,
// index 0 being distance 1. Both default to the observed production
// schedule.
type NetworkConfig struct {
	MaxDepth   int       `yaml:"max_depth" env:"NETWORK_MAX_DEPTH" env-default:"5"`
	Rates      []float64 `yaml:"rates" env:"NETWORK_RATES" env-default:"10,5,2,1,0.5"`
	CodeLength int       `yaml:"code_length" env:"NETWORK_CODE_LENGTH" env-default:"8"`
	// ShareBaseUrl is the public prefix encoded into referral QR codes.
	ShareBaseUrl string `yaml:"share_base_url" env:"NETWORK_SHARE_BASE_URL" env-default:"http://localhost:8080/r"`
}

type StripeConfig struct {
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET" env-default:""`
	TestMode      bool   `yaml:"test_mode" env:"STRIPE_TEST_MODE" env-default:"false"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
}

type NotifyConfig struct {
	QueueSize int `yaml:"queue_size" env:"NOTIFY_QUEUE_SIZE" env-default:"16"`
}

type Config struct {
	Mysql    MysqlConfig    `yaml:"mysql"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Network  NetworkConfig  `yaml:"network"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Telegram TelegramConfig `yaml:"telegram"`
	Notify   NotifyConfig   `yaml:"notify"`
	Listen   Listen         `yaml:"listen"`
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
