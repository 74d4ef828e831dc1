package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Version is the version of the CLI
	Version = "unknown"

	// GitCommit is the commit that the CLI was built from
	GitCommit = "unknown"

	// BuildDate is the date the CLI was built
	BuildDate = "unknown"
)

type globalOptions struct {
	LogLevel   string
	ProjectDir string
}

func NewRootCmd() *cobra.Command {
	options := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "conjure",
		Short: "Conjure: an autonomous coding agent for your terminal.",
		Long:  figure.NewColorFigure("conjure", "standard", "purple", true).String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if options.ProjectDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("resolve working directory: %w", err)
				}
				options.ProjectDir = wd
			}
			abs, err := filepath.Abs(options.ProjectDir)
			if err != nil {
				return fmt.Errorf("resolve project directory: %w", err)
			}
			options.ProjectDir = abs

			setupLogging(options)
			cmd.SetContext(withGlobalOptions(cmd.Context(), options))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", "info", "set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&options.ProjectDir, "project", "p", "", "project directory (defaults to the working directory)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewUndoCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewKeyCmd())
	return cmd
}

// setupLogging fans structured logs out to stderr and a rotated file under
// the project's state directory.
func setupLogging(options *globalOptions) {
	level := slog.LevelInfo
	switch options.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(options.ProjectDir, ".conjure", "conjure.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     14,
	}

	handler := slogmulti.Fanout(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(fileSink, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	slog.SetDefault(slog.New(handler))
}

type contextKey string

const globalOptionsKey contextKey = "globalOptions"

func withGlobalOptions(ctx context.Context, options *globalOptions) context.Context {
	return context.WithValue(ctx, globalOptionsKey, options)
}

func getGlobalOptions(ctx context.Context) *globalOptions {
	if options, ok := ctx.Value(globalOptionsKey).(*globalOptions); ok {
		return options
	}
	return &globalOptions{ProjectDir: "."}
}

func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic occurred: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
