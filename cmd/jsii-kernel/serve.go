package main

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/jsii-kernel/config"
	"github.com/wippyai/jsii-kernel/runtime"
	"github.com/wippyai/jsii-kernel/wire"
)

var (
	serveEncoding string
	serveTrace    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the kernel protocol on stdin/stdout",
	Long: `Serve reads requests from stdin and writes responses to stdout, one at a
time, until stdin is closed or the process is interrupted.

The trace goes to stderr. It is on by default when stderr is a terminal;
--trace, the config file or JSII_DEBUG override that.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveEncoding, "encoding", "e", config.EncodingJSON, "Channel encoding: json or cbor")
	serveCmd.Flags().BoolVarP(&serveTrace, "trace", "t", false, "Trace every operation to stderr")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("encoding") {
		cfg.Encoding = serveEncoding
	}
	if cmd.Flags().Changed("trace") {
		on := serveTrace
		cfg.Trace.Enabled = &on
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tty := term.IsTerminal(int(os.Stderr.Fd()))
	rt, err := newRuntime(ctx, cfg, runtime.OptionsFrom(cfg, logger, tty))
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.Background()) }()

	framer := newFramer(cfg.Encoding, cmd.InOrStdin(), cmd.OutOrStdout())
	logger.Debug("serving", zap.String("encoding", cfg.Encoding), zap.Int("modules", len(cfg.Modules)))

	// A blocked read cannot observe ctx, so an interrupt returns without
	// waiting for the server goroutine.
	done := make(chan error, 1)
	go func() { done <- rt.Server().Serve(ctx, framer) }()

	select {
	case err := <-done:
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("interrupted")
		return nil
	}
}

func newFramer(encoding string, r io.Reader, w io.Writer) wire.Framer {
	if encoding == config.EncodingCBOR {
		return wire.NewCBORFramer(r, w)
	}
	return wire.NewJSONFramer(r, w)
}
