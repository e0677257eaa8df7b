package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string        `yaml:"env" env-default:"local"`
	Storage StorageConfig `yaml:"storage"`
	Tokens  TokensConfig  `yaml:"tokens"`
	HTTP    HTTPConfig    `yaml:"http"`
}

type StorageConfig struct {
	// Type selects the backend: "sqlite" or "mongodb".
	Type  string      `yaml:"type" env-default:"sqlite"`
	Path  string      `yaml:"path"`
	Mongo MongoConfig `yaml:"mongo"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI"`
	Database string `yaml:"database"`
}

type TokensConfig struct {
	// Secret comes only from the environment. There is no fallback:
	// a missing secret is a fatal misconfiguration, not a default.
	Secret     string        `env:"JWT_SECRET" env-required:"true"`
	AccessTTL  time.Duration `yaml:"access_ttl" env-default:"15m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env-default:"168h"`
}

type HTTPConfig struct {
	Port    int           `yaml:"port" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

func LoadConfig(path string) *Config {
	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file not found: " + path)
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}
