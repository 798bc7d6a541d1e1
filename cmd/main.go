// Command directory-service runs the directory/review API server.
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openveg/directory-service/config"
	"github.com/openveg/directory-service/internal/app"
)

func main() {
	cfg := config.Load()

	application, err := app.InitializeApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	application.Start(cfg)

	server := app.NewServer(application.Router, cfg.Server.Port)
	if err := server.Run(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
