/*
Copyright 2025 Yousaf Gill. All rights reserved.
Use of this source code is governed by the MIT license
that can be found in the LICENSE file.

udpcopier transfers files over UDP using fixed-size datagrams, shuffled
redundant sends and per-packet acknowledgments. A file is confirmed once
the receiver reports a CRC32C checksum equal to the sender's.

The program operates in two modes:

1. Server Mode: Reassembles files from incoming packets and writes them to
an output directory

2. Send Mode: Sends every file named in a file list to a server, one after
another, with concurrent workers, or interleaved in one combined schedule
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"

	"udpcopier/internal/client"
	"udpcopier/internal/config"
	"udpcopier/internal/logging"
	"udpcopier/internal/server"
)

func main() {
	app := &cli.App{
		Name:                 "udpcopier",
		Usage:                "copy files over UDP with checksum confirmation",
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML configuration file",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "directory for session log files, empty for console only",
				Value: config.DefaultLogDir,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serverCmd,
			sendCmd,
		},
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logging.LogError(err, app.Name)
		stop()
		os.Exit(1)
	}
}

var serverCmd = &cli.Command{
	Name:  "server",
	Usage: "receive files",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Usage: "address to bind",
			Value: config.DefaultListenAddr,
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "directory for received files",
			Value: config.DefaultOutputDir,
		},
		&cli.DurationFlag{
			Name:  "poll-timeout",
			Usage: "bound on each wait for a datagram",
			Value: config.DefaultPollTimeout,
		},
		&cli.DurationFlag{
			Name:  "idle-timeout",
			Usage: "drop incomplete files idle for longer than this, 0 keeps them",
			Value: config.DefaultIdleTimeout,
		},
		&cli.BoolFlag{
			Name:  "compress",
			Usage: "gzip received files",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "reject packets numbered at or above their declared total",
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg, err := load(cctx, true)
		if err != nil {
			return err
		}

		if cctx.IsSet("listen") {
			cfg.ListenAddress = cctx.String("listen")
		}
		if cctx.IsSet("output") {
			cfg.OutputDir = cctx.String("output")
		}
		if cctx.IsSet("poll-timeout") {
			cfg.PollTimeout = cctx.Duration("poll-timeout")
		}
		if cctx.IsSet("idle-timeout") {
			cfg.IdleTimeout = cctx.Duration("idle-timeout")
		}
		if cctx.IsSet("compress") {
			cfg.CompressOutput = cctx.Bool("compress")
		}
		if cctx.IsSet("strict") {
			cfg.StrictCompletion = cctx.Bool("strict")
		}

		if err := prepare(cfg); err != nil {
			return err
		}
		return server.Run(cctx.Context, cfg)
	},
}

var sendCmd = &cli.Command{
	Name:      "send",
	Usage:     "send the files named in a file list",
	ArgsUsage: "<file-list>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "server",
			Usage: "server host",
			Value: config.DefaultServerHost,
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "server port",
			Value: config.DefaultPort,
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "sequential, concurrent or interleaved",
			Value: config.ModeConcurrent,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "files in flight at once in concurrent mode",
			Value: config.DefaultWorkers,
		},
		&cli.BoolFlag{
			Name:  "shared-socket",
			Usage: "let concurrent workers share one socket",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "wait for each acknowledgment",
			Value: config.DefaultTimeout,
		},
		&cli.IntFlag{
			Name:  "retries",
			Usage: "consecutive misses tolerated before a file fails",
			Value: config.DefaultMaxMisses,
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "report batch progress",
			Value: true,
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg, err := load(cctx, false)
		if err != nil {
			return err
		}

		if cctx.IsSet("server") || cctx.IsSet("port") {
			host, port, err := net.SplitHostPort(cfg.ServerAddress)
			if err != nil {
				host, port = config.DefaultServerHost, strconv.Itoa(config.DefaultPort)
			}
			if cctx.IsSet("server") {
				host = cctx.String("server")
			}
			if cctx.IsSet("port") {
				port = strconv.Itoa(cctx.Int("port"))
			}
			cfg.ServerAddress = net.JoinHostPort(host, port)
		}
		if cctx.IsSet("mode") {
			cfg.Mode = cctx.String("mode")
		}
		if cctx.IsSet("workers") {
			cfg.Workers = cctx.Int("workers")
		}
		if cctx.IsSet("shared-socket") {
			cfg.SharedSocket = cctx.Bool("shared-socket")
		}
		if cctx.IsSet("timeout") {
			cfg.Timeout = cctx.Duration("timeout")
		}
		if cctx.IsSet("retries") {
			cfg.MaxMisses = cctx.Int("retries")
		}
		if cctx.IsSet("progress") {
			cfg.ShowProgress = cctx.Bool("progress")
		}
		if cctx.Args().Present() {
			cfg.FileList = cctx.Args().First()
		}

		if err := prepare(cfg); err != nil {
			return err
		}
		return client.Run(cctx.Context, cfg)
	},
}

// load builds the config from defaults, the optional config file, the
// environment and the global flags
func load(cctx *cli.Context, isServer bool) (*config.Config, error) {
	cfg := config.Defaults()
	if err := config.LoadFile(cctx.String("config"), cfg); err != nil {
		return nil, err
	}

	cfg.IsServer = isServer
	if cctx.IsSet("log-dir") {
		cfg.LogDir = cctx.String("log-dir")
	}
	if cctx.IsSet("verbose") {
		cfg.Verbose = cctx.Bool("verbose")
	}
	return cfg, nil
}

// prepare validates the final config and sets up logging
func prepare(cfg *config.Config) error {
	if err := cfg.ExpandPaths(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if err := logging.SetupLogger(cfg.LogDir, cfg.Verbose); err != nil {
		return err
	}

	logging.LogConfig(cfg)
	slog.Debug("Effective configuration", "config", cfg.String())
	return nil
}
