package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/asyncexecutor"
	"github.com/AntonStoeckl/bulkwrite-go/internal/bulkload"
)

const envPrefix = "BULKLOAD"

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "bulkload",
		Short: "Load a JSON-lines file into PostgreSQL through the bulk-write executor",
		Long: `bulkload streams JSON objects, one per line, into a records table.

Records are written by parallel workers that commit every --commit-every records.
Every flag can also be set through the environment, e.g. BULKLOAD_DSN or BULKLOAD_COMMIT_EVERY,
or in a config file passed with --config.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, v, configFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bulkload.ConfigFromViper(v)
			if err != nil {
				return err
			}

			return bulkload.Run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), newLogger(cmd, cfg.Verbose))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String(bulkload.KeyDSN, "", "PostgreSQL connection string")
	flags.String(bulkload.KeyDriver, bulkload.DriverPGX, "database driver: pgx, sql, sqlx or memory (dry run)")
	flags.String(bulkload.KeyTable, "", "records table name (default \"records\")")
	flags.String(bulkload.KeyType, "Record", "record type for lines without a _type member")
	flags.StringP(bulkload.KeyFile, "f", "-", "JSON-lines input file, - for stdin")
	flags.IntP(bulkload.KeyParallelism, "p", asyncexecutor.DefaultParallelism, "number of worker sessions")
	flags.Int(bulkload.KeyCommitEvery, asyncexecutor.DefaultCommitEvery, "commit every N records per worker, 0 commits only at the end")
	flags.Int(bulkload.KeyBackpressure, asyncexecutor.DefaultBackpressureThreshold, "queue occupancy percent at which the reader blocks, 0 blocks only when full")
	flags.Bool(bulkload.KeyWAL, asyncexecutor.DefaultUseWAL, "durable commits; false sets synchronous_commit off")
	flags.Float64(bulkload.KeyRate, 0, "maximum records per second, 0 is unlimited")
	flags.String(bulkload.KeySchema, "", "JSON schema file every line is validated against")
	flags.Bool(bulkload.KeyCreateTable, false, "create the records table if it does not exist")
	flags.String(bulkload.KeyMetricsAddr, "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.String(bulkload.KeyOTLPEndpoint, "", "export traces and metrics via OTLP gRPC to this endpoint")
	flags.BoolP(bulkload.KeyVerbose, "v", false, "debug logging")
	flags.Bool(bulkload.KeyNoColor, false, "disable colored output")

	return cmd
}

func initConfig(cmd *cobra.Command, v *viper.Viper, configFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if configFile == "" {
		return nil
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	return nil
}

func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
