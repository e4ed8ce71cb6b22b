package main

import (
	"algoexec/config"
	"algoexec/core"
	"algoexec/pkg/types"
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

func main() {
	configureLog(config.Env.EnvName)

	// init context for graceful shutdown
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// load config
	config, err := config.LoadConfig(config.Env.EnvName, config.Env.YamlMode)
	if err != nil {
		log.Fatalf("fail to load config: %v", err)
	}

	// 📊 core: algoexec module
	if err := core.Bootstrap(rootCtx, *config); err != nil {
		log.Panicf("fail to bootstrap app: %v", err)
	}
	doneC := make(chan struct{})
	go func() {
		defer close(doneC)
		if err := core.Run(rootCtx); err != nil {
			log.Errorf("Runtime error: %v", err)
		}
	}()

	// 🌩️ fiber: rest API module
	fApp := core.SetupFiberApp(core.Host)
	setupSignalHandler(func() {
		core.ShutdownFiberApp(fApp)
		cancel()
	})
	if err := fApp.Listen(config.Api.Listen); err != nil {
		log.Panic(err)
	}

	cancel()
	<-doneC
}

func configureLog(envName types.EnvName) {
	log.SetLevel(log.InfoLevel)
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if envName == types.EnvLocal || envName == types.EnvDev {
		log.SetLevel(log.DebugLevel)
	}
}

func setupSignalHandler(shutdown func()) {
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigC
		log.Info("🚩 received shutdown signal")
		shutdown()
	}()
}
