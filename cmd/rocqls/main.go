// Command rocqls is the rocqls Language Server: a stdio JSON-RPC front
// end wiring internal/transport's framer to the lsp package's Request
// and Document Coordinator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rocqls/rocqls/internal/config"
	"github.com/rocqls/rocqls/internal/prover"
	"github.com/rocqls/rocqls/internal/transport"
	"github.com/rocqls/rocqls/internal/trace"
	"github.com/rocqls/rocqls/lsp"
)

const version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "rocqls:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("rocqls", flag.ContinueOnError)
	logLevel := fs.String("log-level", "info", "log level: debug, trace, info, warn, error")
	logFile := fs.String("log-file", "", "write logs to this file instead of stderr")
	moduleRoot := fs.String("module-root", "", "workspace root to record in the config (not used for workspace discovery)")
	showVersion := fs.Bool("version", false, "print version and exit")
	_ = fs.Bool("stdio", true, "communicate over stdio (accepted for editor compatibility, always on)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println("rocqls", version)
		return nil
	}

	logger, closeLog, err := setupLogger(*logLevel, *logFile)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer closeLog()

	cfg := config.Default()
	if *moduleRoot != "" {
		cfg.ModuleRoot = *moduleRoot
	}

	p := prover.NewFake()
	server := lsp.NewServer(p, cfg, logger)

	bgCtx := context.Background()
	stream := transport.NewStream(transport.StdIO{Reader: os.Stdin, Writer: os.Stdout})
	conn := transport.Connect(bgCtx, stream, server)
	server.Attach(conn)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	runCtx, cancelRun := context.WithCancel(bgCtx)
	doneCh := make(chan struct{})

	logger.Info("rocqls starting", slog.String("version", version))
	go func() {
		server.Run(runCtx)
		close(doneCh)
	}()

	select {
	case <-conn.DisconnectNotify():
		cancelRun()
	case <-sigCh:
		logger.Info("shutting down on signal")
		cancelRun()
		_ = conn.Close()
		_ = os.Stdin.Close()
	}

	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		logger.Warn("timed out waiting for scheduler to drain")
	}

	if err := conn.Err(); !isCleanShutdown(err) {
		logger.Warn("connection closed with error", slog.Any("error", err))
	}
	logger.Info("rocqls exited")
	return nil
}

// setupLogger builds the structured logger every component of the
// coordinator logs through, writing JSON records to logFile if given,
// otherwise to stderr (stdout is reserved for the LSP wire protocol).
func setupLogger(level, logFile string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLevel(level),
	})
	return slog.New(handler), closeFn, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return trace.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// isCleanShutdown reports whether err is an expected consequence of the
// client closing the connection, rather than a real transport failure.
func isCleanShutdown(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "EPIPE")
}
