package core

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Run blocks until ctx is cancelled, then stops every instance and releases the store.
func Run(ctx context.Context) error {
	log.Info("🦿 Running...")

	<-ctx.Done()
	log.Info("💤 shutting down...")
	Host.Shutdown()
	if err := Store.Close(); err != nil {
		log.Errorf("fail to close store: %v", err)
	}
	log.Info("😴 shutdown gracefully")
	return nil
}
