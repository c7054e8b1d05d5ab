// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/simplon-foundation/simplon/lib/config"
	"github.com/simplon-foundation/simplon/lib/control"
)

// DetectorFlags holds the shared flags for reaching a detector. Values
// set on the command line override the configuration file.
//
// Usage pattern:
//
//	var detector cli.DetectorFlags
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet {
//	        fs := pflag.NewFlagSet("get", pflag.ContinueOnError)
//	        detector.AddFlags(fs)
//	        return fs
//	    },
//	    Run: func(args []string) error {
//	        client, logger, err := detector.Connect()
//	        ...
//	        defer client.Close()
//	    },
//	}
type DetectorFlags struct {
	ConfigFile string
	Host       string
	Port       int
	APIVersion string
	Timeout    time.Duration
}

// AddFlags registers --config, --host, --port, --api-version and
// --timeout on flagSet.
func (d *DetectorFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&d.ConfigFile, "config", "", "path to simplon.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&d.Host, "host", "", "detector control server host (overrides config)")
	flagSet.IntVar(&d.Port, "port", 0, "detector control server port (overrides config)")
	flagSet.StringVar(&d.APIVersion, "api-version", "", "REST API version (overrides config)")
	flagSet.DurationVar(&d.Timeout, "timeout", 0, "per-request receive timeout (overrides config)")
}

// Config resolves the configuration: the --config file, else the file
// named by SIMPLON_CONFIG, else the defaults, with flag overrides
// applied and the result validated.
func (d *DetectorFlags) Config() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case d.ConfigFile != "":
		cfg, err = config.LoadFile(d.ConfigFile)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if d.Host != "" {
		cfg.Detector.Host = d.Host
	}
	if d.Port != 0 {
		cfg.Detector.Port = d.Port
	}
	if d.APIVersion != "" {
		cfg.Detector.APIVersion = d.APIVersion
	}
	if d.Timeout != 0 {
		cfg.Detector.RequestTimeout = config.Duration(d.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		if cfg.Detector.Host == "" {
			return nil, fmt.Errorf("%w\n\nSet detector.host in the config file or pass --host.", err)
		}
		return nil, err
	}
	return cfg, nil
}

// Connect resolves the configuration and creates the control client
// and logger. The caller must Close the client.
func (d *DetectorFlags) Connect() (*control.Client, *slog.Logger, error) {
	cfg, err := d.Config()
	if err != nil {
		return nil, nil, err
	}
	logger := NewLogger(cfg.Logging)
	client, err := control.New(ClientOptions(cfg.Detector, logger))
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("detector client ready",
		"address", client.Address(),
		"api_version", cfg.Detector.APIVersion,
		"pool_size", cfg.Detector.PoolSize,
	)
	return client, logger, nil
}

// ClientOptions converts the detector configuration to client options.
func ClientOptions(detector config.DetectorConfig, logger *slog.Logger) control.Options {
	return control.Options{
		Host:           detector.Host,
		Port:           detector.Port,
		APIVersion:     detector.APIVersion,
		PoolSize:       detector.PoolSize,
		ConnectTimeout: detector.ConnectTimeout.Std(),
		RequestTimeout: detector.RequestTimeout.Std(),
		PollInterval:   detector.PollInterval.Std(),
		AcceptGzip:     detector.AcceptGzip,
		Logger:         logger,
	}
}
