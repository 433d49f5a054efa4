package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres stdlib driver, used for migrations.
	goredislib "github.com/redis/go-redis/v9"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/core/client"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/core/client/store/clientdb"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/data/dbschema"
	db "github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/data/dbsql/pgx"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/data/lock/redislock"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/handlers"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/logger"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/trace"
)

var build = "develop"

func main() {
	log := logger.New("Rinha")

	if err := run(log); err != nil {
		log.Error("startup", "ERROR", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx := context.Background()

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Env string `conf:"default:DEV"`
		Web struct {
			Port            int           `conf:"default:8080"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
		}
		DB struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,mask"`
			Host       string `conf:"default:postgres:5432"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		Redis struct {
			// The distributed per-client lock is only worth paying for
			// when more than one service instance shares the database.
			Enabled bool   `conf:"default:false"`
			Host    string `conf:"default:redis:6379"`
		}
		Trace struct {
			Endpoint       string  `conf:"default:otel-collector:4317"`
			SampleFraction float64 `conf:"default:0.05"`
			Discard        bool    `conf:"default:true"`
		}
	}{
		Version: conf.Version{
			Build: build,
		},
	}

	const prefix = "RINHA"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Info("starting service", "version", build)
	defer log.Info("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Info("startup", "config", out)

	// =========================================================================
	// Tracing Support

	provider, err := trace.NewProvider(ctx, trace.Config{
		Env:            cfg.Env,
		Endpoint:       cfg.Trace.Endpoint,
		Service:        "rinha",
		SampleFraction: cfg.Trace.SampleFraction,
		DiscardTraces:  cfg.Trace.Discard,
	})
	if err != nil {
		return fmt.Errorf("creating trace provider: %w", err)
	}
	defer provider.Shutdown(context.Background())

	tracer := provider.Tracer("rinha")

	// =========================================================================
	// Database Support

	log.Info("startup", "status", "initializing database support", "host", cfg.DB.Host)

	dbCfg := db.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	}
	database, err := db.Open(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Info("shutdown", "status", "stopping database support", "host", cfg.DB.Host)
		database.Close()
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.StatusCheck(ctxWithTimeout, database); err != nil {
		return fmt.Errorf("database not health: %w", err)
	}

	stdDB, err := sql.Open("pgx", db.ConnString(dbCfg))
	if err != nil {
		return fmt.Errorf("failed to open DB for migration: %w", err)
	}

	if err := dbschema.Migrate(stdDB); err != nil {
		stdDB.Close()
		return fmt.Errorf("migrating error: %w", err)
	}
	stdDB.Close()

	// =========================================================================
	// Distributed Lock Support

	var coreOpts []client.Option
	if cfg.Redis.Enabled {
		log.Info("startup", "status", "initializing redis lock support", "host", cfg.Redis.Host)

		rdb := goredislib.NewClient(&goredislib.Options{Addr: cfg.Redis.Host})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis not health: %w", err)
		}

		coreOpts = append(coreOpts, client.WithLocker(redislock.New(log, rdb)))
	}

	// =========================================================================
	// Start API Service

	log.Info("startup", "status", "initializing RINHA API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	core := client.NewCore(clientdb.NewStore(log, database), coreOpts...)
	srv := handlers.NewServer(log, core)
	mux := handlers.APIMux(srv, tracer)

	api := http.Server{
		Addr:     fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:  mux,
		ErrorLog: slog.NewLogLogger(log.Handler(), slog.LevelInfo),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
