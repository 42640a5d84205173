package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Backend struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"backend"`
	IAP struct {
		Platform             string `yaml:"platform"`
		ExecutionEnvironment string `yaml:"execution_environment"`
		SimulatorMode        string `yaml:"simulator_mode"`
		SimulatorLatencyMS   int    `yaml:"simulator_latency_ms"`
	} `yaml:"iap"`
	Auth struct {
		SigningKey string `yaml:"signing_key"`
	} `yaml:"auth"`
}

func LoadConfig() Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		log.Fatalf("Failed to unmarshal config data: %v", err)
	}
	return cfg
}
