package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration (§6: positional supervisor id,
// -h/--help, -j/--jcdb, -x/--logLevel, plus env-var settings). BROKERS is
// used only when the configuration document names no bus URL; the timing
// variables are parsed and validated but not applied, since each DU takes
// its timing from the configuration document.
type CLIConfig struct {
	SupervisorID string
	ConfigPath   string
	LogLevel     string
	ShowHelp     bool

	AutoSendPeriod      time.Duration
	Tolerance           time.Duration
	ThrottleMinInterval time.Duration
	Brokers             string
	StatsPeriodMin      time.Duration
}

func parseFlags(args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigPath, "jcdb", "", "Path to the DU/CE configuration document (env: JCDB)")
	fs.StringVar(&cfg.ConfigPath, "j", "", "Path to the DU/CE configuration document (env: JCDB)")
	fs.StringVar(&cfg.LogLevel, "logLevel",
		getEnv("LOG_LEVEL", "INFO"),
		"Log level: TRACE, DEBUG, INFO, WARN, ERROR")
	fs.StringVar(&cfg.LogLevel, "x",
		getEnv("LOG_LEVEL", "INFO"),
		"Log level: TRACE, DEBUG, INFO, WARN, ERROR")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	fs.Usage = func() { printHelp(fs) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ShowHelp {
		printHelp(fs)
		return cfg, nil
	}

	if cfg.ConfigPath == "" {
		cfg.ConfigPath = os.Getenv("JCDB")
	}

	rest := fs.Args()
	if len(rest) < 1 {
		return nil, fmt.Errorf("missing required positional argument: supervisor id")
	}
	cfg.SupervisorID = rest[0]

	var err error
	if cfg.AutoSendPeriod, err = getEnvDuration("AUTO_SEND_PERIOD", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Tolerance, err = getEnvDuration("TOLERANCE", 5*time.Second); err != nil {
		return nil, err
	}
	if ms, err := getEnvInt("THROTTLING_MIN_INTERVAL_MS", 250); err != nil {
		return nil, err
	} else {
		cfg.ThrottleMinInterval = time.Duration(ms) * time.Millisecond
	}
	cfg.Brokers = getEnv("BROKERS", "nats://localhost:4222")
	if cfg.StatsPeriodMin, err = getEnvDuration("STATS_PERIOD_MIN", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func printHelp(fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Integrated Alarm System Supervisor

Usage: %s [options] <supervisor-id>

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Environment variables:
  JCDB                         path to the configuration document
  AUTO_SEND_PERIOD             DU auto-refresh period (default 30s)
  TOLERANCE                    DU validity tolerance beyond the refresh period (default 5s)
  THROTTLING_MIN_INTERVAL_MS   minimum interval between coalesced DU updates (default 250)
  BROKERS                      bus URL (default nats://localhost:4222)
  STATS_PERIOD_MIN             statistics flush period (default 1m)

AUTO_SEND_PERIOD, TOLERANCE, THROTTLING_MIN_INTERVAL_MS and STATS_PERIOD_MIN
are validated at startup but not applied: DU timing comes from the
configuration document. BROKERS applies when the document names no bus URL.

Version: %s
`, Version)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
