// Package cmd defines and implements the CLI commands for the confcrawler
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	systemclock "github.com/confatlas/confcrawler/internal/clock/system"
	"github.com/confatlas/confcrawler/internal/config"
	"github.com/confatlas/confcrawler/internal/crawler"
	"github.com/confatlas/confcrawler/internal/fetcher/headless"
	"github.com/confatlas/confcrawler/internal/fetcher/static"
	"github.com/confatlas/confcrawler/internal/logging"
	"github.com/confatlas/confcrawler/internal/publisher"
	pubsubpublisher "github.com/confatlas/confcrawler/internal/publisher/pubsub"
	"github.com/confatlas/confcrawler/internal/service"
	"github.com/confatlas/confcrawler/internal/storage"
	"github.com/confatlas/confcrawler/internal/storage/gcs"
	"github.com/confatlas/confcrawler/internal/store"
	storememory "github.com/confatlas/confcrawler/internal/store/memory"
	"github.com/confatlas/confcrawler/internal/store/postgres"
)

var cfgFile string

// appKeyType is the context key for the shared application instance.
type appKeyType struct{}

// app holds the wired collaborators every command needs.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	svc     *service.Service
	logs    store.CrawlLogStore
	crawler *crawler.ConferenceCrawler
	closers []func(context.Context)
}

// close releases every acquired resource in reverse order.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	_ = a.logger.Sync()
}

// newApp wires config, logging, stores, the crawler, and the orchestration
// service. It is a variable so tests can swap in a fake.
var newApp = buildApp

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	stores, err := a.buildStores(ctx)
	if err != nil {
		return nil, err
	}
	blobs, err := a.buildBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	events, err := a.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}

	fetcher := a.buildFetcher()
	gate := crawler.NewRobotsGate(
		time.Duration(cfg.Crawler.RobotsTimeoutSeconds)*time.Second, logger)

	a.crawler = crawler.New(gate, fetcher, crawler.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		FetchTimeout:  cfg.FetchTimeout(),
		PostLoadWait:  cfg.PostLoadWait(),
		MaxCrawlDelay: cfg.MaxCrawlDelay(),
	}, logger)
	a.closers = append(a.closers, func(ctx context.Context) {
		if err := a.crawler.Close(ctx); err != nil {
			logger.Warn("fetcher close failed", zap.Error(err))
		}
	})

	svc, err := service.New(a.crawler, stores, blobs, events, systemclock.New(), service.Config{
		ChildRows:       service.ChildRowPolicy(cfg.Crawler.ChildRowPolicy),
		EventTopic:      cfg.PubSub.TopicName,
		StaleAfter:      cfg.StaleAfter(),
		BatchLimit:      cfg.Schedule.BatchLimit,
		InterCrawlDelay: cfg.InterCrawlDelay(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init service: %w", err)
	}
	a.svc = svc
	return a, nil
}

// buildStores connects Postgres when a DSN is configured and falls back to
// the in-memory store for local development.
func (a *app) buildStores(ctx context.Context) (service.Stores, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("db.dsn not set, using in-memory store")
		mem := storememory.New()
		a.logs = mem
		return service.Stores{Conferences: mem, Speakers: mem, Exhibitors: mem, CrawlLogs: mem}, nil
	}

	pg, err := postgres.New(ctx, postgres.Config{
		DSN:             a.cfg.DB.DSN,
		MaxConns:        int32(a.cfg.DB.MaxConns),
		MinConns:        int32(a.cfg.DB.MinConns),
		MaxConnLifetime: time.Duration(a.cfg.DB.ConnLifetimeMinute) * time.Minute,
	})
	if err != nil {
		return service.Stores{}, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) { pg.Close() })
	a.logs = pg
	return service.Stores{Conferences: pg, Speakers: pg, Exhibitors: pg, CrawlLogs: pg}, nil
}

func (a *app) buildBlobStore(ctx context.Context) (storage.BlobStore, error) {
	if a.cfg.Storage.GCSBucket == "" {
		return nil, nil
	}
	client, err := gcstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) {
		if err := client.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	})
	return gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
}

func (a *app) buildPublisher(ctx context.Context) (publisher.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" {
		return nil, nil
	}
	client, err := gpubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) {
		if err := client.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	})
	return pubsubpublisher.New(client)
}

func (a *app) buildFetcher() crawler.PageFetcher {
	if a.cfg.Fetcher.Mode == "static" {
		return static.New(static.Config{
			UserAgent:      a.cfg.Crawler.UserAgent,
			RequestTimeout: a.cfg.FetchTimeout(),
		}, a.logger)
	}
	return headless.New(headless.Config{
		UserAgent:  a.cfg.Crawler.UserAgent,
		NavTimeout: a.cfg.FetchTimeout(),
	}, a.logger)
}

func resolveApp(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKeyType{}).(*app)
	if !ok || a == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return a, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confcrawler",
		Short: "Conference website crawler and structured-data extractor",
		Long: `confcrawler fetches conference websites, extracts structured facts
(name, dates, location, speakers, exhibitors, pricing, contact) from the
rendered HTML, and persists them with full crawl provenance.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKeyType{}, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKeyType{}).(*app); ok && a != nil {
				a.close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScheduleCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
