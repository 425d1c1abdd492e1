package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"google.golang.org/grpc"

	"ongon.org/internal/auth"
	"ongon.org/internal/bootstrap"
	"ongon.org/internal/cache"
	"ongon.org/internal/config"
	"ongon.org/internal/grpcapi"
	"ongon.org/internal/httpapi"
	"ongon.org/internal/migrate"
	"ongon.org/internal/obs"
	"ongon.org/internal/store/pg"
	"ongon.org/internal/welfare"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	cfg := config.MustLoad()

	log := obs.NewLogger(cfg.Env, os.Stdout)
	obs.SetLogger(log)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", obs.Err(err))
		os.Exit(1)
	}
	log.Info("stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := pg.Open(cfg.Postgres)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := prepareSchema(ctx, cfg.Migrations, store, log); err != nil {
		return err
	}

	probe := httpapi.ReadyProbe{DB: store.DB()}
	opts := []welfare.Option{welfare.WithTx(store)}
	if cfg.Redis.Enabled {
		catalog, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer catalog.Close()
		probe.Cache = catalog
		opts = append(opts, welfare.WithCatalogCache(catalog))
		log.Info("catalog cache enabled", slog.String("addr", cfg.Redis.Addr))
	}

	signer, err := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.Issuer, nil)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(store, signer,
		auth.WithTx(store),
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
	)
	if err != nil {
		return err
	}
	svc, err := welfare.New(store, authSvc, opts...)
	if err != nil {
		return err
	}
	api, err := httpapi.New(probe, version, svc, authSvc,
		httpapi.WithServerConfig(cfg.HTTPServer),
		httpapi.WithPagination(cfg.Pagination),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPServer.Address,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTPServer.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTPServer.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTPServer.WriteTimeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("http listening", slog.String("addr", srv.Addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *grpc.Server
	if addr := cfg.GRPC.Address; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		grpcSrv = grpcapi.NewServer(probe)
		go func() {
			log.Info("grpc listening", slog.String("addr", addr))
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	return srv.Shutdown(shutdownCtx)
}

// prepareSchema applies pending migrations and seeds the default catalog
// when enabled.
func prepareSchema(ctx context.Context, cfg config.Migrations, store *pg.Store, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if cfg.AutoMigrate {
		applied, err := migrate.NewManager(store.DB()).Up(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", slog.Int("count", len(applied)))
	}
	if cfg.AutoSeed {
		seeder, err := bootstrap.NewSeeder(store, store)
		if err != nil {
			return err
		}
		report, err := seeder.Run(ctx)
		if err != nil {
			return err
		}
		log.Info("catalog seeded", slog.Int("inserted", report.Total()))
	}
	return nil
}
