package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/internal/discovery/etcd"
	"pdfrag/backend/go/internal/rag_service/api"
	"pdfrag/backend/go/internal/rag_service/app"
	pkggrpc "pdfrag/backend/go/pkg/grpc"
	pkghttp "pdfrag/backend/go/pkg/http"
	"pdfrag/backend/go/pkg/httpmiddleware"
	"pdfrag/backend/go/pkg/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, configPath)
	stop()
	if err != nil {
		log.Printf("rag_service: %v", err)
		os.Exit(1)
	}
}

// run owns every resource of the service, so its deferred cleanup completes
// before main decides the exit code.
func run(ctx context.Context, configPath string) error {
	// 1. Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// 2. Initialize logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("rag_service", "", "")
	appLogger.With("config", configPath).Info("Starting RAG Service...")

	// 3. Wire stores, models, pipelines and the indexing queue
	rag, err := app.New(ctx, cfg, appLogger, app.Options{})
	if err != nil {
		app.LogError(appLogger, err, "failed to initialize RAG components")
		return err
	}
	defer func() {
		if err := rag.Close(); err != nil {
			app.LogError(appLogger, err, "failed to release resources")
		}
	}()
	if err := rag.Start(ctx); err != nil {
		app.LogError(appLogger, err, "failed to start indexing queue")
		return err
	}

	// 4. HTTP server
	httpServer, err := pkghttp.NewServer(cfg,
		pkghttp.WithMiddleware(httpmiddleware.RequestLogger(appLogger)),
		pkghttp.WithReadHeaderTimeout(10*time.Second),
	)
	if err != nil {
		app.LogError(appLogger, err, "failed to create HTTP server")
		return err
	}
	engine := httpServer.Engine()
	engine.MaxMultipartMemory = int64(cfg.Server.MaxUploadSizeMB) << 20
	api.RegisterRoutes(engine,
		api.NewAPI(rag.Service, rag.Health, appLogger),
		cfg.Auth.APIKey,
		config.Duration(cfg.Server.RequestTimeout, 120*time.Second),
	)

	// 5. gRPC server, used for the standard health protocol
	grpcServer, err := pkggrpc.NewServer(cfg)
	if err != nil {
		app.LogError(appLogger, err, "failed to create gRPC server")
		return err
	}

	// 6. Optional service registration, before any listener starts so a
	// failure here leaves nothing running.
	if etcdCfg := cfg.Databases.Etcd; len(etcdCfg.Endpoints) > 0 {
		discovery, err := etcd.NewServiceDiscovery(&etcdCfg, appLogger)
		if err != nil {
			app.LogError(appLogger, err, "failed to connect to etcd")
			return err
		}
		defer discovery.Close()
		regCtx, cancelReg := context.WithCancel(ctx)
		defer cancelReg()

		advertise := etcdCfg.Advertise
		if advertise == "" {
			advertise = httpServer.Addr()
		}
		if err := discovery.Register(regCtx, etcdCfg.ServiceName, advertise, etcdCfg.TTL); err != nil {
			app.LogError(appLogger, err, "failed to register service")
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.ListenAndServe)
	g.Go(grpcServer.ListenAndServe)
	g.Go(func() error {
		rag.Health.Watch(gctx, config.Duration(cfg.Health.RefreshInterval, 30*time.Second), func(healthy bool) {
			grpcServer.SetServing("", healthy)
		})
		return nil
	})

	// 7. Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		app.LogError(appLogger, err, "server stopped with error")
		return err
	}
	appLogger.Info("Servers gracefully stopped")
	return nil
}
