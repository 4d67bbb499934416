package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/pipelines"
	"github.com/aretw0/conduit/internal/presentation/tui"
	"github.com/aretw0/conduit/internal/validator"
	"github.com/aretw0/conduit/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline>",
	Short: "Run a built-in pipeline over stdin and stdout",
	Long: `Runs a built-in pipeline, reading lines from standard input until EOF and writing
results to standard output. Lines that cannot be parsed are dropped.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: pipelines.Names(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args[0])
	},
}

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Copy every input line to the output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, "echo")
	},
}

var sqrtCmd = &cobra.Command{
	Use:   "sqrt",
	Short: "Print the square root of every numeric input line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, "sqrt")
	},
}

// interactive reports whether the command reads from a terminal.
func interactive(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runPipeline(cmd *cobra.Command, name string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	if interactive(cmd) {
		tui.PrintBanner(cmd.ErrOrStderr(), conduit.Version)
		fmt.Fprintln(cmd.ErrOrStderr(), "Type one value per line. Press Ctrl-D to finish.")
	}

	def, err := pipelines.Build(name, pipelines.IO{
		Reader: cmd.InOrStdin(),
		Writer: cmd.OutOrStdout(),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if err := validator.ValidateDefinition(def); err != nil {
		logger.Warn("pipeline graph has issues", "pipeline", name, "error", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	opts, cleanup, err := systemOptions(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.MetricsAddr != "" {
		shutdown, err := serveBackground(newServer(cfg.MetricsAddr, reg, logger), logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	s := conduit.New(append(opts,
		conduit.WithLogger(logger),
		conduit.WithLifecycleHooks(metrics.Hooks()),
		conduit.WithAllocator(def.Allocator()),
	)...)
	logger.Debug("starting pipeline", "pipeline", name, "backend", cfg.Backend, "summary", def.Summary())

	if _, err := conduit.Launch(ctx, s, def); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}
	return s.Execute(ctx)
}

func init() {
	rootCmd.AddCommand(runCmd, echoCmd, sqrtCmd)
}
