package main

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Sonic-Vault/scout-api/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	return app.NewRunner().Run(os.Args[1:])
}
