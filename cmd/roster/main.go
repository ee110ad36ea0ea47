// Package main - точка входа консольного журнала студентов.
//
// Без аргументов запускает интерактивное меню. Подкоманды дают
// неинтерактивный доступ к отчётам, обмену с Excel и миграциям PostgreSQL.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alem-hub/student-roster/config"
	"github.com/alem-hub/student-roster/pkg/logger"
)

var (
	// Global flags
	configPath  string
	dataPath    string
	backendName string
	verbose     bool

	// Заполняются в PersistentPreRunE.
	cfg       *config.Config
	log       *logger.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Student roster and gradebook",
	Long: `roster keeps a list of students and their per-subject grades.

Run without arguments to start the interactive menu. The roster is loaded
from the configured backend on start and saved again on exit.

Backends: file (default), sqlite, postgres, redis.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
	RunE: runShell,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "snapshot file (file backend) or database file (sqlite backend)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "storage backend: file, sqlite, postgres or redis")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(reportCmd, exportCmd, importCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup загружает конфигурацию, применяет флаги и создаёт логгер.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(loaded); err != nil {
		return err
	}
	cfg = loaded

	out, closer, err := logOutput(cfg.Observability.LogOutput)
	if err != nil {
		return fmt.Errorf("failed to open log output: %w", err)
	}
	logCloser = closer

	log = logger.New(logOptions(cfg, out)).With(
		logger.String("app", cfg.App.Name),
		logger.String("version", cfg.App.Version),
	)

	log.Debug("configuration loaded",
		logger.Backend(string(cfg.Storage.Backend)),
		logger.Path(cfg.Storage.Path),
		logger.String("environment", string(cfg.App.Environment)),
		logger.Bool("save_on_exit", cfg.App.SaveOnExit),
	)
	return nil
}

// logOptions строит настройки логгера. В production формат всегда JSON.
func logOptions(c *config.Config, out io.Writer) logger.Options {
	opts := logger.DefaultOptions()
	opts.Output = out
	opts.Level = logger.ParseLevel(c.Observability.LogLevel)
	opts.AddCaller = c.IsDevelopment()
	if !c.IsProduction() && c.Observability.LogFormat != "" {
		opts.Format = logger.Format(c.Observability.LogFormat)
	}
	return opts
}

func teardown() {
	if log != nil {
		_ = log.Sync()
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

// applyFlags переопределяет конфигурацию флагами командной строки.
func applyFlags(c *config.Config) error {
	if dataPath != "" {
		c.Storage.Path = dataPath
	}
	if backendName != "" {
		c.Storage.Backend = config.Backend(backendName)
	}
	if verbose {
		c.Observability.LogLevel = "debug"
	}
	if dataPath == "" && backendName == "" && !verbose {
		return nil
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func logOutput(target string) (io.Writer, io.Closer, error) {
	switch target {
	case "", "stderr":
		return os.Stderr, nil, nil
	default:
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}
