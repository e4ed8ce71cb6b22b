package config

import (
	"algoexec/pkg/s3client"
	"algoexec/pkg/types"
	"algoexec/pkg/utils"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Api             *ApiConfig                 `yaml:"api"`
	Notifications   *NotificationConfig        `yaml:"notifications"`
	Persistence     *PersistenceConfig         `yaml:"persistence"`
	ExchangeConfigs map[string]*ExchangeConfig `yaml:"exchange"`
}

type ApiConfig struct {
	Listen string `yaml:"listen"` // e.g. ":8080"
}

type NotificationConfig struct {
	CallbackUrl string `yaml:"callbackUrl"` // default observer when an order has no connection of its own
	TokenEnv    string `yaml:"tokenEnv"`    // env var holding the bearer token
	Disabled    bool   `yaml:"disabled"`

	// URL prefixes an order's own connection may call back; empty allows none
	AllowedCallbackUrls []string `yaml:"allowedCallbackUrls"`
}

type PersistenceDriver string

const (
	PersistenceMemory = PersistenceDriver("memory")
	PersistenceRedis  = PersistenceDriver("redis")
)

type PersistenceConfig struct {
	Driver    PersistenceDriver `yaml:"driver"`
	RedisAddr string            `yaml:"redisAddr"`
	RedisDB   int               `yaml:"redisDb"`
	KeyPrefix string            `yaml:"keyPrefix"`
	TtlHours  int               `yaml:"ttlHours"` // 0 keeps state forever

	// final snapshots of stopped instances are copied to this bucket when set
	ArchiveBucket string `yaml:"archiveBucket"`
}

type ExchangeConfig struct {
	ExchangeName types.ExchangeName `yaml:"exchange"`
	EnvPrefix    string             `yaml:"envPrefix"`
	Futures      bool               `yaml:"futures"`
	IsCross      bool               `yaml:"isCross"`
	Paper        *PaperConfig       `yaml:"paper"` // dummy exchange only
}

type PaperConfig struct {
	Symbols  []string `yaml:"symbols"`
	TickSize float64  `yaml:"tickSize"`
	StepSize float64  `yaml:"stepSize"`
}

var yamlFiles = map[types.EnvName]string{
	types.EnvLocal: "algoexec.yaml",
	types.EnvDev:   "algoexec.dev.yaml",
	types.EnvProd:  "algoexec.prod.yaml",
}

// LoadConfig reads the environment's YAML file from disk, or from S3 when yamlMode is S3.
func LoadConfig(envName types.EnvName, yamlMode types.YamlMode) (*Config, error) {
	fileName := yamlFiles[envName]

	var data []byte
	var err error
	switch yamlMode {
	case types.YamlModeS3:
		var client *s3client.Client
		client, err = s3client.New(utils.LoadEnv("AWS_ACCESS_KEY"), utils.LoadEnv("AWS_SECRET_KEY"), utils.LoadEnvWithDefault("AWS_REGION", ""))
		if err != nil {
			return nil, err
		}
		data, err = client.GetObject(context.Background(), utils.LoadEnv("CONFIG_BUCKET"), fileName)
	default:
		data, err = os.ReadFile(fileName)
	}
	if err != nil {
		return nil, fmt.Errorf("fail to load config file '%s': %w", fileName, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("fail to decode config: %w", err)
	}
	if config.Api == nil {
		config.Api = &ApiConfig{}
	}
	if config.Api.Listen == "" {
		config.Api.Listen = ":8080"
	}
	if config.Notifications == nil {
		config.Notifications = &NotificationConfig{}
	}
	if config.Persistence == nil {
		config.Persistence = &PersistenceConfig{}
	}
	if config.Persistence.Driver == "" {
		config.Persistence.Driver = PersistenceMemory
	}
	if config.Persistence.KeyPrefix == "" {
		config.Persistence.KeyPrefix = "algoexec"
	}
	for id, exchgConfig := range config.ExchangeConfigs {
		if exchgConfig == nil {
			return nil, fmt.Errorf("empty exchange config: %s", id)
		}
	}
	return &config, nil
}
