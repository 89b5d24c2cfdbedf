package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/striped-zebra-dev/oagw/config"
	"github.com/striped-zebra-dev/oagw/internal/api"
	"github.com/striped-zebra-dev/oagw/internal/controlplane"
	"github.com/striped-zebra-dev/oagw/internal/credential"
	"github.com/striped-zebra-dev/oagw/internal/dataplane"
	"github.com/striped-zebra-dev/oagw/internal/logging"
	"github.com/striped-zebra-dev/oagw/internal/metrics"
	"github.com/striped-zebra-dev/oagw/internal/repo"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("OAGW %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *validateOnly {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	defer logging.Sync()
	if logCloser != nil {
		defer logCloser.Close()
	}

	logging.Info("starting oagw",
		zap.String("version", version),
		zap.String("listen", cfg.Listen),
	)

	resolver, cleanup, err := buildCredentialResolver(cfg.Credentials)
	if err != nil {
		logging.Error("failed to build credential resolver", zap.Error(err))
		os.Exit(1)
	}
	defer cleanup()

	cp := controlplane.NewService(
		repo.NewInMemoryUpstreamRepo(),
		repo.NewInMemoryRouteRepo(),
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	dp := dataplane.NewService(cp, resolver, dataplane.Config{
		Transport: dataplane.TransportConfig{
			ConnectTimeout:        cfg.Proxy.ConnectTimeout,
			ResponseHeaderTimeout: cfg.Proxy.RequestHeaderTimeout,
		},
		Metrics: m,
	})
	defer dp.Close()

	server := api.NewServer(api.Config{
		Listen:       cfg.Listen,
		MaxBodyBytes: cfg.Proxy.MaxBodyBytes,
		Metrics:      m,
		Introspection: func() any {
			return cfg.Redacted()
		},
	}, cp, dp)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logging.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logging.Info("shutdown complete")
}

// buildCredentialResolver chains the configured credential sources:
// static entries, then the watched file store, then the environment.
func buildCredentialResolver(cfg config.CredentialsConfig) (credential.Resolver, func(), error) {
	var resolvers []credential.Resolver
	cleanup := func() {}

	if len(cfg.Static) > 0 {
		resolvers = append(resolvers, credential.NewStaticResolver(cfg.Static))
	}
	if cfg.File != "" {
		fileResolver, err := credential.NewFileResolver(cfg.File)
		if err != nil {
			return nil, cleanup, err
		}
		resolvers = append(resolvers, fileResolver)
		cleanup = func() { fileResolver.Close() }
	}
	if cfg.Env {
		resolvers = append(resolvers, credential.NewEnvResolver())
	}

	if len(resolvers) == 0 {
		// No sources configured: resolve nothing rather than fail startup.
		return credential.NewStaticResolver(nil), cleanup, nil
	}
	return credential.NewMulti(resolvers...), cleanup, nil
}
