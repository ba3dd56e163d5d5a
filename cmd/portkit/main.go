// portkit - free-port discovery, probing, and waiting for test harnesses
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nebari-dev/portkit/pkg/logger"
	"github.com/nebari-dev/portkit/pkg/port"
	"github.com/spf13/cobra"
)

var (
	// Version information (set during build)
	Version   = "dev"
	BuildTime = "unknown"
)

// Config holds application configuration
type Config struct {
	// Target
	Host     string
	Port     int
	Protocol string

	// Waiting
	MaxWait  time.Duration
	Interval time.Duration // legacy: per-try sleep, combined with Retries
	Retries  int           // legacy: retry count, combined with Interval

	// Logging
	LogLevel   string
	LogFormat  string
	ShowCaller bool
}

func main() {
	cfg := &Config{}

	rootCmd := &cobra.Command{
		Use:     "portkit",
		Short:   "Allocate, probe, and wait on local network ports",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Long: `Port utilities for test harnesses that spin up ephemeral servers:
find a free port, check whether a port is in use, or wait with exponential
backoff until a server comes up on a port.

A discovered port is a hint, not a reservation - bind it immediately.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.Host, "host", port.DefaultHost,
		"Host to probe or scan")
	rootCmd.PersistentFlags().StringVar(&cfg.Protocol, "proto", "tcp",
		"Protocol (tcp, udp)")

	// Logging flags
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", "pretty",
		"Log format (json, pretty)")
	rootCmd.PersistentFlags().BoolVar(&cfg.ShowCaller, "log-caller", false,
		"Show file:line in logs")

	findCmd := &cobra.Command{
		Use:   "find",
		Short: "Find a free port and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cfg)
		},
	}
	findCmd.Flags().IntVar(&cfg.Port, "port", 0,
		"Lower bound for the scan (0 = randomized start in the dynamic range)")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a port is in use (exit 0 = free, 3 = in use)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cfg)
		},
	}
	checkCmd.Flags().IntVar(&cfg.Port, "port", 0, "Port to check (required)")
	checkCmd.MarkFlagRequired("port")

	waitCmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until a port is in use (exit 0 = up, 1 = budget exhausted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWait(cfg)
		},
	}
	waitCmd.Flags().IntVar(&cfg.Port, "port", 0, "Port to wait on (required)")
	waitCmd.Flags().DurationVar(&cfg.MaxWait, "max-wait", port.DefaultMaxWait,
		"Wait budget (negative = wait forever)")
	waitCmd.Flags().DurationVar(&cfg.Interval, "interval", 0,
		"Legacy: per-try sleep interval, multiplied with --retries into the budget")
	waitCmd.Flags().IntVar(&cfg.Retries, "retries", 0,
		"Legacy: retry count, multiplied with --interval into the budget")
	waitCmd.MarkFlagRequired("port")

	rootCmd.AddCommand(findCmd, checkCmd, waitCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:      logger.Level(cfg.LogLevel),
		Format:     logger.Format(cfg.LogFormat),
		ShowCaller: cfg.ShowCaller,
	})
}

func runFind(cfg *Config) error {
	log := newLogger(cfg)

	p, err := port.FindFree(port.FindConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Protocol: port.Protocol(cfg.Protocol),
	})
	log.ScanResult(cfg.Host, cfg.Protocol, p, err)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("scan range exhausted: %w", err)
		}
		return err
	}

	fmt.Println(p)
	return nil
}

func runCheck(cfg *Config) error {
	log := newLogger(cfg)

	start := time.Now()
	used, err := port.InUse(port.Endpoint{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Protocol: port.Protocol(cfg.Protocol),
	})
	if err != nil {
		return err
	}
	log.Probe(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), cfg.Protocol, used, time.Since(start))

	if used {
		fmt.Println("in use")
		os.Exit(3)
	}
	fmt.Println("free")
	return nil
}

func runWait(cfg *Config) error {
	log := newLogger(cfg)

	maxWait := cfg.MaxWait
	if cfg.Retries > 0 {
		// Legacy shape: the interval/retries pair only sets the budget.
		maxWait = cfg.Interval * time.Duration(cfg.Retries)
	}

	waiter := port.NewWaiter(port.WaitConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		MaxWait:  maxWait,
		Protocol: port.Protocol(cfg.Protocol),
	}, log)

	up, err := waiter.Wait()
	if err != nil {
		return err
	}
	if !up {
		return fmt.Errorf("port %d did not come up within %s", cfg.Port, maxWait)
	}
	return nil
}
