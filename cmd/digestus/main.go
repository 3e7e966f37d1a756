package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/dropDatabas3/digestus/internal/cache"
	"github.com/dropDatabas3/digestus/internal/config"
	"github.com/dropDatabas3/digestus/internal/email"
	httpserver "github.com/dropDatabas3/digestus/internal/http"
	"github.com/dropDatabas3/digestus/internal/http/router"
	"github.com/dropDatabas3/digestus/internal/metrics"
	"github.com/dropDatabas3/digestus/internal/observability/logger"
	"github.com/dropDatabas3/digestus/internal/queue"
	"github.com/dropDatabas3/digestus/internal/rate"
	"github.com/dropDatabas3/digestus/internal/scheduler"
	"github.com/dropDatabas3/digestus/internal/security/apikey"
	"github.com/dropDatabas3/digestus/internal/store/core"
	"github.com/dropDatabas3/digestus/internal/store/memory"
	"github.com/dropDatabas3/digestus/internal/store/pg"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path al YAML de configuración (opcional)")
	flag.Parse()

	// .env es opcional (dev)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// logger todavía no inicializado
		panic("config load: " + err.Error())
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       getenv("LOG_LEVEL", "info"),
		ServiceName: "digestus",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	log.Info("starting digestus",
		logger.String("env", cfg.App.Env),
		logger.String("addr", cfg.Server.Addr),
		logger.String("storage", cfg.Storage.Driver),
	)

	if err := metrics.Register(nil); err != nil {
		log.Fatal("metrics register failed", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Store ───
	var st core.Store
	switch cfg.Storage.Driver {
	case "postgres":
		pgStore, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MinIdleConns:    cfg.Storage.Postgres.MinIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			log.Fatal("postgres store init failed", logger.Err(err))
		}
		st = pgStore
	default:
		log.Warn("using in-memory store, data will not survive restarts")
		st = memory.New()
	}
	defer st.Close()

	// ─── Cache ───
	memTTL, _ := time.ParseDuration(cfg.Cache.Memory.DefaultTTL)
	cacheClient := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		RedisAddr:  cfg.Cache.Redis.Addr,
		RedisDB:    cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: memTTL,
	})
	defer cacheClient.Close()

	// ─── Queue ───
	ns, err := queue.StartEmbeddedNATS(cfg.Queue.DataDir)
	if err != nil {
		log.Fatal("embedded nats start failed", logger.Err(err))
	}
	nc, err := queue.ConnectInProcess(ns)
	if err != nil {
		log.Fatal("nats connect failed", logger.Err(err))
	}
	defer func() { _ = queue.Shutdown(nc, ns) }()

	js, err := jetstream.New(nc)
	if err != nil {
		log.Fatal("jetstream init failed", logger.Err(err))
	}
	q, err := queue.SetupStream(ctx, js)
	if err != nil {
		log.Fatal("stream setup failed", logger.Err(err))
	}

	// ─── Worker ───
	mail := email.NewService(email.FromConfig(cfg.SMTP))
	worker := queue.NewWorker(q, st, mail, queue.WorkerConfig{
		MaxDeliver: cfg.Queue.MaxDeliver,
		RetryDelay: cfg.Queue.RetryDelay,
	})
	if err := worker.Start(ctx); err != nil {
		log.Fatal("worker start failed", logger.Err(err))
	}
	defer worker.Stop()

	// ─── Scheduler ───
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(st, q, cacheClient, scheduler.Config{
			Tick:              cfg.Scheduler.Tick,
			ManagerDigestLead: cfg.Scheduler.ManagerDigestLead,
		})
		go func() {
			if err := sched.Run(logger.ToContext(ctx, log)); err != nil && ctx.Err() == nil {
				log.Error("scheduler stopped unexpectedly", logger.Err(err))
			}
		}()
	} else {
		log.Warn("scheduler disabled, reminders and digests only via manual triggers")
	}

	// ─── HTTP ───
	var inboundLimiter rate.Limiter
	if cfg.Rate.Enabled {
		window, _ := time.ParseDuration(cfg.Rate.Inbound.Window)
		if cfg.Cache.Kind == "redis" {
			rc := cache.RedisRaw(cacheClient)
			if rc != nil {
				inboundLimiter = rate.NewRedisLimiter(rc, "rl:inbound:", cfg.Rate.Inbound.Limit, window)
			}
		}
		if inboundLimiter == nil {
			inboundLimiter = rate.NewMemoryLimiter(cfg.Rate.Inbound.Limit, window)
		}
	}

	handler := router.New(router.Deps{
		Store:          st,
		Queue:          q,
		AdminKey:       apikey.NewVerifier(cfg.Admin.APIKey, cfg.Admin.APIKeyHash),
		InboundLimiter: inboundLimiter,
		Version:        version,
	})

	srv := httpserver.NewServer(cfg.Server.Addr, handler)
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", logger.Err(err))
		}
	}

	if err := httpserver.Shutdown(srv, 10*time.Second); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}
	log.Info("bye")
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
