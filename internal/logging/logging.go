package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"udpcopier/internal/config"
	"udpcopier/internal/errors"
)

// SetupLogger initializes structured logging with console output and, when
// logDir is not empty, a per-session log file inside it.
func SetupLogger(logDir string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if logDir != "" {
		if err := os.MkdirAll(logDir, config.LogDirPerms); err != nil {
			return errors.NewFileSystemError("mkdir", logDir, err)
		}

		// Create log file with timestamp
		logFileName := filepath.Join(logDir,
			"udpcopier_"+time.Now().Format("20060102_150405")+".log")

		logFile, err := os.Create(logFileName)
		if err != nil {
			// Continue with console logging only
			slog.Warn("Failed to create log file, using console only", "error", err)
		} else {
			out = io.MultiWriter(os.Stdout, logFile)
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}

	// Use text handler for better console readability
	slog.SetDefault(slog.New(slog.NewTextHandler(out, opts)))

	slog.Debug("Logging initialized", "session_id", time.Now().Format("20060102_150405"))
	return nil
}

// LogConfig logs the current configuration
func LogConfig(cfg *config.Config) {
	if cfg.IsServer {
		slog.Info("Server configuration",
			"listen_address", cfg.ListenAddress,
			"output_dir", cfg.OutputDir,
			"poll_timeout", cfg.PollTimeout,
			"idle_timeout", cfg.IdleTimeout,
			"compress_output", cfg.CompressOutput,
			"strict_completion", cfg.StrictCompletion)
		return
	}

	slog.Info("Client configuration",
		"server_address", cfg.ServerAddress,
		"file_list", cfg.FileList,
		"mode", cfg.Mode,
		"workers", cfg.Workers,
		"shared_socket", cfg.SharedSocket,
		"timeout", cfg.Timeout,
		"max_misses", cfg.MaxMisses)
}

// LogError logs an error with appropriate context
func LogError(err error, context string) {
	switch e := err.(type) {
	case *errors.NetworkError:
		slog.Error("Network error",
			"context", context,
			"operation", e.Op,
			"address", e.Addr,
			"error", e.Err,
			"error_type", "network")
	case *errors.FileSystemError:
		slog.Error("File system error",
			"context", context,
			"operation", e.Op,
			"path", e.Path,
			"error", e.Err,
			"error_type", "filesystem")
	case *errors.ProtocolError:
		slog.Error("Protocol error",
			"context", context,
			"operation", e.Op,
			"message", e.Message,
			"error_type", "protocol")
	case *errors.ValidationError:
		slog.Error("Validation error",
			"context", context,
			"field", e.Field,
			"message", e.Message,
			"error_type", "validation")
	case *errors.TransferError:
		slog.Error("Transfer error",
			"context", context,
			"path", e.Path,
			"file_id", e.FileID,
			"error", e.Err,
			"error_type", "transfer")
	default:
		slog.Error("Unhandled error",
			"context", context,
			"error", err,
			"error_type", "unknown")
	}
}

// LogSessionStart logs the start of a single file transfer
func LogSessionStart(path, fileID string, packets, scheduled int) {
	slog.Info("Transfer session started",
		"path", path,
		"file_id", fileID,
		"packets", packets,
		"scheduled_sends", scheduled,
		"duplicates", scheduled-packets)
}

// LogTransferComplete logs successful transfer completion
func LogTransferComplete(path string, packets, sends int, rtt time.Duration, quality string, duration time.Duration) {
	slog.Info("Transfer completed successfully",
		"path", path,
		"packets", packets,
		"sends", sends,
		"smoothed_rtt_ms", rtt.Milliseconds(),
		"link_quality", quality,
		"duration_ms", duration.Milliseconds())
}

// LogTransferFailed logs a transfer that ended without a verified completion
func LogTransferFailed(path string, sends, misses int, err error) {
	slog.Error("Transfer failed",
		"path", path,
		"sends", sends,
		"misses", misses,
		"error", err)
}

// LogBatchProgress logs the state of a multi-file batch
func LogBatchProgress(done, failed, total int64, elapsed time.Duration) {
	slog.Info("Batch progress",
		"completed", done,
		"failed", failed,
		"remaining", total-done-failed,
		"elapsed_seconds", int(elapsed.Seconds()))
}

// LogBatchSummary logs the end of a batch
func LogBatchSummary(mode string, succeeded, failed int, duration time.Duration) {
	status := "SUCCESS"
	if failed > 0 {
		status = "PARTIAL"
		if succeeded == 0 {
			status = "FAILED"
		}
	}

	slog.Info("Batch finished",
		"status", status,
		"mode", mode,
		"succeeded", succeeded,
		"failed", failed,
		"duration_ms", duration.Milliseconds())
}
