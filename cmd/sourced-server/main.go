// Package main runs the Sourced backend API as a plain HTTP server for
// local development. Configuration comes from the environment, with an
// optional .env file.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/sourcedapp/sourced-backend/internal/bootstrap"
	"github.com/sourcedapp/sourced-backend/internal/logging"
)

func main() {
	initStart := time.Now()

	// Missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}
	logging.Init()

	clients := bootstrap.InitAWS()
	srv := bootstrap.BuildServer(context.Background(), clients)

	addr := logging.EnvOrDefault("SOURCED_LISTEN_ADDR", ":8080")

	logging.NewStartupLogger("sourced-server").
		S3Bucket("media", os.Getenv("SOURCED_MEDIA_BUCKET")).
		Config("listenAddr", addr).
		Feature("catalogs", srv.Catalog != nil).
		Feature("feed", srv.Feed != nil).
		InitDuration(time.Since(initStart)).
		Log()

	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}
