package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dougsko/audiohal/pkg/config"
	"github.com/dougsko/audiohal/pkg/engine"
	"github.com/dougsko/audiohal/pkg/logging"
)

var (
	configPath = flag.String("config", "", "Configuration file path")
	version    = flag.Bool("version", false, "Show version information")
)

const Build = "development"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("audiohald version %s (%s)\n", engine.Version, Build)
		os.Exit(0)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logging.InitGlobalLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseGlobalLogger()

	logging.Info("main", fmt.Sprintf("audiohald version %s starting...", engine.Version))
	logging.Info("main", "configuration", logging.Fields{
		"card":    cfg.UCM.Card,
		"backend": cfg.UCM.Backend,
		"journal": cfg.UCM.Journal,
		"socket":  cfg.API.UnixSocket,
	})

	daemon := NewDaemon(cfg, logging.GetGlobalLogger())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := daemon.Start(); err != nil {
		logging.Error("main", fmt.Sprintf("Failed to start daemon: %v", err))
		os.Exit(1)
	}

	logging.Info("main", "audiohald started successfully")

	<-sigChan
	logging.Info("main", "Shutting down...")

	if err := daemon.Stop(); err != nil {
		logging.Error("main", fmt.Sprintf("Error during shutdown: %v", err))
	}

	logging.Info("main", "audiohald stopped")
}
