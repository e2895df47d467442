package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/jsii-kernel/config"
	"github.com/wippyai/jsii-kernel/engine"
	"github.com/wippyai/jsii-kernel/linker"
	"github.com/wippyai/jsii-kernel/runtime"
	"github.com/wippyai/jsii-kernel/testbed/calc"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jsii-kernel",
	Short: "Object bridging kernel for foreign-language clients",
	Long: `jsii-kernel hosts Go and WebAssembly modules and lets a client in another
language create objects, call methods and read properties through a
request/response protocol on stdin/stdout.

Objects never leave the kernel: clients hold opaque handles.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol, so every log line goes to stderr.
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		engine.SetLogger(logger.Named("engine"))
		linker.SetLogger(logger.Named("linker"))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kernel version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "jsii-kernel "+runtime.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.FromEnv(), nil
	}
	return config.Load(configPath)
}

// newRuntime builds a runtime from opts with the demo module available as
// "go:calc", then preloads the configured modules.
func newRuntime(ctx context.Context, cfg *config.Config, opts runtime.Options) (*runtime.Runtime, error) {
	rt := runtime.New(ctx, opts)
	rt.RegisterModule(calc.Name, calc.Define)
	if err := rt.Preload(ctx, cfg.Modules); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}
