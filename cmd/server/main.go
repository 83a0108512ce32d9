package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/vaultify/internal/logging"
	"github.com/dmitrijs2005/vaultify/internal/server"
	"github.com/dmitrijs2005/vaultify/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
