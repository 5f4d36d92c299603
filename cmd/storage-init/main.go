package main

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"kanban-board/config"
	"kanban-board/storage"
)

func main() {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		log.Fatal(err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	g, ctx := errgroup.WithContext(context.Background())

	if cfg.StorageConnectionString != "" && cfg.CardsTable != "" {
		g.Go(func() error {
			tables, err := storage.NewTables(cfg.StorageConnectionString, cfg.CardsTable, cfg.CardsPartition)
			if err != nil {
				return err
			}
			log.WithField("table", cfg.CardsTable).Debug("ensuring table")
			return tables.EnsureTable(ctx)
		})
	}

	if cfg.StorageConnectionString != "" && cfg.ChangesQueue != "" {
		g.Go(func() error {
			feed, err := storage.NewFeed(nil, cfg.StorageConnectionString, cfg.ChangesQueue, nil)
			if err != nil {
				return err
			}
			log.WithField("queue", cfg.ChangesQueue).Debug("ensuring queue")
			return feed.EnsureQueue(ctx)
		})
	}

	if cfg.DynamoTable != "" {
		g.Go(func() error {
			var opts []func(*awsconfig.LoadOptions) error
			if cfg.AWSRegion != "" {
				opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
			}
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
			if err != nil {
				return err
			}
			dynamo := storage.NewDynamo(&awsCfg, cfg.DynamoTable)
			if err := dynamo.Connect(); err != nil {
				return err
			}
			log.WithField("table", cfg.DynamoTable).Debug("ensuring DynamoDB table")
			return dynamo.EnsureTable(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("storage init: %v", err)
	}
	log.Info("storage init complete")
}
