package main

import (
	"document-review/internal/app"
	"document-review/internal/config"
	"document-review/pkg/logger"
	"log"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.InitLogger(cfg.Env); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := app.Run(cfg); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
