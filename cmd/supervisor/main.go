// Package main implements the Supervisor process entry point (§6): a
// standalone binary that reads a DU/CE configuration document, deploys the
// DUs it names against a NATS bus, and runs until told to stop.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/iascore/alarmcore/bus"
	"github.com/iascore/alarmcore/config"
	"github.com/iascore/alarmcore/du"
	"github.com/iascore/alarmcore/identifier"
	"github.com/iascore/alarmcore/metrics"
	"github.com/iascore/alarmcore/supervisor"
	"github.com/iascore/alarmcore/tf"
)

const (
	Version = "0.1.0"
	appName = "alarmcore-supervisor"

	inboundSubject   = "ias.values.in"
	outboundSubject  = "ias.values.out"
	heartbeatSubject = "ias.heartbeat"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("supervisor exited with error", "err", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if cliCfg.ShowHelp {
		return nil
	}
	if cliCfg.ConfigPath == "" {
		return fmt.Errorf("missing required configuration document: -j/--jcdb or JCDB")
	}

	logger := setupLogger(cliCfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting supervisor", "version", Version, "id", cliCfg.SupervisorID, "jcdb", cliCfg.ConfigPath)

	reader, err := config.NewFileReader(cliCfg.ConfigPath, tf.NewDefaultRegistry())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	supID, err := identifier.New(cliCfg.SupervisorID, identifier.Supervisor, nil)
	if err != nil {
		return fmt.Errorf("build supervisor identifier: %w", err)
	}

	supInfo, err := reader.Supervisor()
	if err != nil {
		return fmt.Errorf("resolve supervisor configuration: %w", err)
	}
	brokers := cliCfg.Brokers
	if supInfo.BusURL != "" {
		brokers = supInfo.BusURL
	}

	conn, err := bus.Connect(brokers, logger)
	if err != nil {
		return fmt.Errorf("connect to bus: %w", err)
	}
	defer conn.Close()

	metricsRegistry := metrics.New()

	busPublisher := bus.NewPublisher(conn, outboundSubject, logger)
	busSubscriber := bus.NewSubscriber(conn, inboundSubject, logger)
	heartbeat := bus.NewHeartbeatLoop(bus.NewHeartbeatPublisher(conn, heartbeatSubject, logger), cliCfg.SupervisorID)

	sup, err := supervisor.New(supID, reader, busPublisher, busSubscriber, heartbeat, logger,
		supervisor.WithDUFactory(duFactory(metricsRegistry)),
		supervisor.WithHeartbeatInterval(supInfo.HeartbeatFrequency))
	if err != nil {
		return fmt.Errorf("construct supervisor: %w", err)
	}

	if err := sup.Setup(); err != nil {
		return fmt.Errorf("resolve and build DUs: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("start supervisor: %w", err)
	}
	logger.Info("supervisor started", "id", cliCfg.SupervisorID)

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping supervisor")
	sup.Cleanup()

	return nil
}

// duFactory wires a metrics.PrometheusStatsSink into every DU it builds,
// keyed by the DU's own running id.
func duFactory(registry *metrics.Registry) supervisor.DUFactory {
	return func(id *identifier.Identifier, resolved config.ResolvedDU, publisher du.Publisher, subscriber du.Subscriber, logger *slog.Logger) (*du.DU, error) {
		stats := metrics.NewPrometheusStatsSink(registry, id.RunningID())
		return du.New(id, resolved.Definition, resolved.AutoSendPeriod, resolved.Tolerance, publisher, subscriber, stats, resolved.ThrottleMinInterval, logger)
	}
}
