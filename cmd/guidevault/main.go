package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/guidevault/guidevault/internal/cache"
	"github.com/guidevault/guidevault/internal/config"
	"github.com/guidevault/guidevault/internal/fetcher"
	"github.com/guidevault/guidevault/internal/server"
	"github.com/guidevault/guidevault/internal/service"
	"github.com/guidevault/guidevault/internal/store"
	"github.com/guidevault/guidevault/internal/vod"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env DATABASE_URL")
	ingestOnce := flag.Bool("ingest", false, "Run one ingest batch and exit instead of serving")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Run migrations.
	absMigrations, err := filepath.Abs("migrations")
	if err != nil {
		absMigrations = "migrations"
	}
	if _, err := os.Stat(absMigrations); err != nil {
		if exe, e := os.Executable(); e == nil {
			absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	// Wait for the database to accept connections before migrating; the
	// container usually races ahead of Postgres on first boot.
	if err := store.WaitForDatabase(ctx, cfg.DatabaseURL, 30, time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "db wait: %v\n", err)
		os.Exit(1)
	}

	migrationsPath := "file://" + absMigrations
	if err := store.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	var appStore store.Store = pg
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}

		appStore = store.NewCachedStore(pg, rds)
		fmt.Fprintln(os.Stderr, "redis connected (caching and vod queue enabled)")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	ftch := fetcher.New(fetcher.Options{
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.Timeout,
		RemotePrefix: cfg.RemotePrefix,
		LocalDir:     cfg.LocalDir,
		USAPath:      cfg.USAPath,
	})
	ingestor := service.NewIngestor(appStore, ftch, cfg.ListURL, cfg.FetchDelay, func(done, total int) {
		log.Printf("ingest: %d/%d feeds", done, total)
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *ingestOnce {
		report, err := ingestor.Run(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
			os.Exit(1)
		}
		log.Printf("ingest done: %d/%d feeds, %d channels, %d programs, %d failures",
			report.Processed, report.Total, report.Channels, report.Programs, len(report.Failures))
		for _, f := range report.Failures {
			log.Printf("ingest skip: %s", f)
		}
		return
	}

	// Start the background VOD publish worker if Redis is available.
	if rds != nil {
		go runVodWorker(ctx, rds, vod.LogPublisher{})
	}

	srv := server.New(appStore, cfg, ingestor, rds)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// runVodWorker continuously dequeues VOD publish jobs from Redis and hands
// them to the publisher. It stops when ctx is cancelled (graceful shutdown).
func runVodWorker(ctx context.Context, rds *cache.Redis, pub vod.Publisher) {
	log.Println("vod worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("vod worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, rds, cache.VodQueue, 5*time.Second)
		if err != nil {
			log.Printf("vod worker: dequeue error: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}

		log.Printf("vod worker: processing job archived_id=%d action=%s", job.ArchivedID, job.Action)

		switch job.Action {
		case cache.VodActionUpload:
			err = pub.Upload(ctx, job.ArchivedID)
		case cache.VodActionDelete:
			err = pub.Delete(ctx, job.ArchivedID)
		default:
			log.Printf("vod worker: unknown action %q", job.Action)
			continue
		}
		if err != nil {
			log.Printf("vod worker: %s archived_id=%d: %v", job.Action, job.ArchivedID, err)
		}
	}
}
