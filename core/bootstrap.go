package core

import (
	"algoexec/config"
	"algoexec/pkg/host"
	"algoexec/pkg/notify"
	"algoexec/pkg/s3client"
	"algoexec/pkg/store"
	"algoexec/pkg/utils"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

func Bootstrap(ctx context.Context, config config.Config) error {
	log.Info("🦾 Bootstrapping...")

	// register exchanges
	for exchgId, exchgConfig := range config.ExchangeConfigs {
		if err := RegisterExchange(exchgId, exchgConfig); err != nil {
			return fmt.Errorf("failed to register exchange %v: %w", exchgId, err)
		}
		log.Infof("exchange '%v' registered", exchgId)
	}

	// state store
	st, err := newStore(config)
	if err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}
	Store = st
	log.Infof("store '%v' ready", config.Persistence.Driver)

	// host: owns every running instance
	Host = host.New(ctx, Exchanges, Store, notify.New(config.Notifications), nil)
	if err := Host.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover instances: %w", err)
	}
	return nil
}

func newStore(config config.Config) (store.Store, error) {
	st, err := store.New(config.Persistence)
	if err != nil {
		return nil, err
	}
	if config.Persistence.ArchiveBucket == "" {
		return st, nil
	}
	client, err := s3client.New(utils.LoadEnv("AWS_ACCESS_KEY"), utils.LoadEnv("AWS_SECRET_KEY"), utils.LoadEnvWithDefault("AWS_REGION", ""))
	if err != nil {
		return nil, err
	}
	return store.NewArchivingStore(st, client, config.Persistence.ArchiveBucket, config.Persistence.KeyPrefix), nil
}
