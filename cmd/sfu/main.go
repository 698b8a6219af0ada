package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lumenrelay/sfu-core/internal/config"
	"github.com/lumenrelay/sfu-core/internal/sfu"
	"github.com/lumenrelay/sfu-core/internal/utils"
)

func main() {
	cfg := config.LoadConfig()

	if err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("starting SFU signaling core")

	sfuServer, err := sfu.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create SFU server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := sfuServer.Start(); err != nil {
			logger.Error("signaling server stopped", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("received shutdown signal")

	if err := sfuServer.Stop(); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("SFU server stopped")
}
