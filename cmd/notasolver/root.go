package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/notasolver"
	"github.com/aretw0/notasolver/internal/config"
	"github.com/aretw0/notasolver/internal/logging"
	"github.com/aretw0/notasolver/pkg/adapters/mathpix"
	"github.com/aretw0/notasolver/pkg/adapters/redis"
	"github.com/aretw0/notasolver/pkg/adapters/wolfram"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "notasolver",
	Short: "notasolver recognizes handwritten equations and solves them",
	Long: `notasolver sends handwritten strokes to an OCR service, submits the
recognized equation to a solver and presents the step-by-step result.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file (default ./"+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
}

// loadConfig reads the config and the logger the persistent flags select.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logging.New(level), nil
}

// newSolver wires the store and the service clients the config names.
func newSolver(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...notasolver.Option) (*notasolver.Solver, error) {
	opts := []notasolver.Option{
		notasolver.WithLogger(logger),
		notasolver.WithMathpix(cfg.OCR.AppID, cfg.OCR.AppKey,
			mathpix.WithURL(cfg.OCR.URL),
			mathpix.WithTimeout(cfg.OCR.Timeout),
		),
		notasolver.WithWolfram(cfg.Solver.AppID,
			wolfram.WithURL(cfg.Solver.URL),
			wolfram.WithTimeout(cfg.Solver.Timeout),
			wolfram.WithPresentation(cfg.Solver.PodState, cfg.Solver.Format, cfg.Solver.Mag),
		),
		notasolver.WithMaxInFlight(cfg.Pipeline.MaxInFlight),
	}

	if cfg.OCR.AppID == "" || cfg.OCR.AppKey == "" {
		logger.Warn("OCR credentials are empty, recognition requests will be rejected")
	}
	if cfg.Solver.AppID == "" {
		logger.Warn("solver app id is empty, solve requests will be rejected")
	}

	if cfg.Store.Backend == config.BackendRedis {
		rc := cfg.Store.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix))
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr, err)
		}
		logger.Info("using redis store", "addr", rc.Addr, "prefix", rc.Prefix)
		opts = append(opts, notasolver.WithStore(store))
	}

	return notasolver.New(append(opts, extra...)...)
}
