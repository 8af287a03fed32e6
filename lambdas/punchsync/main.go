package main

import (
	"context"

	"axiapac.com/punchsync/app"
	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/infrastructure/filesystem"
	"axiapac.com/punchsync/infrastructure/logging"
	"github.com/aws/aws-lambda-go/lambda"
	gologging "github.com/op/go-logging"
)

var log = gologging.MustGetLogger("lambda")

func openBucket(ctx context.Context, name string) (Bucket, error) {
	return filesystem.NewBucket(ctx, name)
}

func main() {
	ctx := context.Background()

	cfg, err := config.InitConfig(ctx, config.DefaultConfigFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logging.InitLogger(cfg.LogLevel); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("start: %v", err)
	}
	defer a.Close()

	h := &Handler{
		runner:   a.Runner,
		queue:    a.Queue,
		importer: a.Importer,
		ingest:   cfg.Ingest,
		open:     openBucket,
	}
	lambda.Start(h.Handle)
}
