// Package main is the Lambda entry point for the Sourced backend API.
//
// It wraps the shared handler tree behind API Gateway via the HTTP adapter,
// with S3 for media storage, Postgres for catalogs and the feed, and the
// OpenAI moderation gate in front of every ingest path.
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/sourcedapp/sourced-backend/internal/bootstrap"
	"github.com/sourcedapp/sourced-backend/internal/logging"
)

func main() {
	initStart := time.Now()
	logging.Init()

	clients := bootstrap.InitAWS()
	srv := bootstrap.BuildServer(context.Background(), clients)

	logging.NewStartupLogger("api-lambda").
		S3Bucket("media", os.Getenv("SOURCED_MEDIA_BUCKET")).
		Feature("search", srv.Pipeline != nil).
		Feature("catalogs", srv.Catalog != nil).
		Feature("feed", srv.Feed != nil).
		Feature("originVerify", srv.OriginVerifySecret != "").
		InitDuration(time.Since(initStart)).
		Log()

	adapter := httpadapter.NewV2(srv.Routes())
	lambda.Start(adapter.ProxyWithContext)
}
