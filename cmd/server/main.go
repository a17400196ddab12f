package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"

	"gtrc-svr/internal/config"
	"gtrc-svr/internal/grpcclient"
	"gtrc-svr/internal/link"
	"gtrc-svr/internal/observability"
	"gtrc-svr/internal/server"
	"gtrc-svr/internal/store"
	"gtrc-svr/internal/transport"
	"gtrc-svr/internal/utilities"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "archivo de configuración .hcl o .toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("config failed", "error", errors.ErrorStack(err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("gtrc-svr stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, closeSinks, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	go func() {
		if err := observability.StartMetricsServer(cfg.MetricsPort); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	var health *observability.HealthServer
	if cfg.HealthGRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.HealthGRPCPort)
		if err != nil {
			return errors.Annotatef(err, "health listen :%s", cfg.HealthGRPCPort)
		}
		health = observability.NewHealthServer()
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Error("health server failed", "error", err)
			}
		}()
		defer health.Stop()
	}

	var opts server.Options
	if cfg.RawLogDir != "" {
		raw, err := utilities.NewRawLog(cfg.RawLogDir, "serial")
		if err != nil {
			return err
		}
		defer raw.Close()
		opts.Recorder = raw
	}

	conn, err := transport.Open(cfg.Transport())
	if err != nil {
		logger.Error("transport open failed", "port", cfg.SerialPort, "error", err)
		return err
	}
	logger.Info("Starting gtrc-svr...", "port", cfg.SerialPort, "baud", cfg.BaudRate)

	sdnotify(logger, daemon.SdNotifyReady)
	defer sdnotify(logger, daemon.SdNotifyStopping)

	loop := server.NewLoop(conn, sink, logger, opts)
	return health.Track(func() error { return loop.Run(ctx) })
}

// buildSinks arma el sink principal (redis o memoria) más los opcionales.
func buildSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Sink, func(), error) {
	var (
		sinks   []store.Sink
		closers []func() error
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	switch cfg.Store {
	case config.StoreMemory:
		sinks = append(sinks, store.NewMemory())
	default:
		rs, err := store.NewRedisSink(ctx, store.RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			logger.Error("Redis init failed", "error", err)
			return nil, nil, err
		}
		sinks = append(sinks, rs)
		closers = append(closers, rs.Close)
	}

	if cfg.MQTTBroker != "" {
		ms, err := store.NewMQTTSink(store.MQTTOptions{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, ms)
		closers = append(closers, ms.Close)
	}

	if cfg.ProxyAddr != "" {
		fw := link.New(cfg.ProxyAddr, logger)
		fw.Start(ctx)
		sinks = append(sinks, fw)
	} else {
		logger.Info("link: disabled (no proxy address configured)")
	}

	if cfg.GRPCServer != "" {
		gc, err := grpcclient.NewGRPCClient(cfg.GRPCServer, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, gc)
		closers = append(closers, gc.Close)
	}

	for _, s := range sinks {
		logger.Info("sink enabled", "sink", s.Name())
	}
	return store.NewFanout(sinks...), closeAll, nil
}

func sdnotify(logger *slog.Logger, s string) {
	if _, err := daemon.SdNotify(false, s); err != nil {
		logger.Warn("sdnotify failed", "state", s, "error", err)
	}
}
