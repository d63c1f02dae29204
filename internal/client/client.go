package client

import (
	"context"
	"log/slog"
	"net"
	"time"

	"udpcopier/internal/config"
	"udpcopier/internal/errors"
	"udpcopier/internal/filesystem"
	"udpcopier/internal/logging"
	"udpcopier/internal/network"
	"udpcopier/internal/progress"
)

// Run sends every file named in cfg.FileList to the server. Individual file
// failures are logged and never abort the batch; an error is returned only when
// the batch cannot start.
func Run(ctx context.Context, cfg *config.Config) error {
	slog.Info("Starting client", "server", cfg.ServerAddress, "mode", cfg.Mode)

	paths, err := filesystem.ReadFileList(cfg.FileList)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		slog.Warn("File list is empty, nothing to send", "file_list", cfg.FileList)
		return nil
	}

	if _, err := net.ResolveUDPAddr("udp", cfg.ServerAddress); err != nil {
		return errors.NewNetworkError("resolve", cfg.ServerAddress, err)
	}

	if ip, err := network.ResolveLocalIP(); err != nil {
		slog.Warn("Could not resolve local address", "error", err)
	} else {
		slog.Info("Local address resolved", "ip", ip.String())
	}

	stats := progress.NewStats(len(paths))
	sender := &Sender{
		Dial:    newDialer(cfg),
		Workers: cfg.Workers,
		Options: Options{
			Timeout:   cfg.Timeout,
			MaxMisses: cfg.MaxMisses,
			Stats:     stats,
		},
	}

	if cfg.SharedSocket {
		shared, err := network.Dial(cfg.ServerAddress)
		if err != nil {
			return err
		}
		defer shared.Close()

		slog.Warn("Workers share one socket; responses are not matched to the worker that sent the request")
		sender.Dial = func() (Transport, func(), error) {
			return shared, func() {}, nil
		}
	}

	if cfg.ShowProgress {
		reporter := progress.NewReporter(stats, cfg.ProgressEvery, false)
		reporter.Start()
		defer reporter.Stop()
	}

	start := time.Now()
	var results []Result
	switch cfg.Mode {
	case config.ModeSequential:
		results = sender.SendSequential(ctx, paths)
	case config.ModeInterleaved:
		results = sender.SendInterleaved(ctx, paths)
	default:
		results = sender.SendConcurrent(ctx, paths)
	}

	succeeded, failed := Report(results)
	logging.LogBatchSummary(cfg.Mode, succeeded, failed, time.Since(start))
	return nil
}

// newDialer opens a fresh endpoint on an ephemeral port for every caller
func newDialer(cfg *config.Config) Dialer {
	return func() (Transport, func(), error) {
		ep, err := network.Dial(cfg.ServerAddress)
		if err != nil {
			return nil, nil, err
		}
		return ep, func() { ep.Close() }, nil
	}
}

// Report logs one line per file and returns the success and failure counts
func Report(results []Result) (succeeded, failed int) {
	for _, res := range results {
		if res.OK() {
			succeeded++
			logging.LogTransferComplete(res.Path, res.Packets, res.Sends, res.RTT, res.Quality, res.Duration)
			continue
		}
		failed++
		logging.LogTransferFailed(res.Path, res.Sends, res.Misses, res.Err)
	}
	return succeeded, failed
}
