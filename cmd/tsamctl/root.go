package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/simp-lee/logger"
	"github.com/spf13/cobra"

	"github.com/tsam/console/internal/backend"
	"github.com/tsam/console/internal/config"
	"github.com/tsam/console/internal/domain"
	"github.com/tsam/console/internal/listview"
	"github.com/tsam/console/internal/resource"
	"github.com/tsam/console/internal/session"
)

type rootOptions struct {
	ConfigPath string
	EnvFile    string
	BaseURL    string
	Token      string
	Timeout    time.Duration
	Verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "tsamctl",
		Short:         "Work with TSAM admin records from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "configs/config.yaml", "console configuration file, read when --base-url is not set")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file with APP__ overrides, skipped when missing")
	cmd.PersistentFlags().StringVar(&opts.BaseURL, "base-url", "", "TSAM API base url, overrides the configuration")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token sent to the API")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 0, "per request timeout (default from configuration)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log backend calls to stderr")

	cmd.AddCommand(newResourcesCmd())
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newGetCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// screens binds the catalog to the configured backend. Modal sessions only
// live for one command, so they stay in memory.
func (o *rootOptions) screens(cmd *cobra.Command) ([]resource.Screen, error) {
	client, limits, err := o.client(cmd)
	if err != nil {
		return nil, err
	}
	return resource.Catalog(resource.Deps{
		Client:    client,
		Sessions:  session.NewMemoryStore(),
		Validator: domain.NewValidator(),
		Limits:    limits,
		Logger:    o.logger(cmd),
	}), nil
}

func (o *rootOptions) client(cmd *cobra.Command) (*backend.Client, listview.Limits, error) {
	if err := godotenv.Load(o.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, listview.Limits{}, fmt.Errorf("load env file: %w", err)
	}

	bopts := backend.Options{
		BaseURL:   strings.TrimSpace(o.BaseURL),
		Timeout:   o.Timeout,
		UserAgent: "tsamctl",
		Logger:    o.logger(cmd),
	}
	limits := listview.DefaultLimits
	token := o.Token

	if bopts.BaseURL == "" {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, limits, err
		}
		bopts.BaseURL = cfg.Backend.BaseURL
		if bopts.Timeout <= 0 {
			bopts.Timeout = cfg.BackendTimeout()
		}
		if token == "" {
			token = cfg.Backend.Token
		}
		limits = listview.Limits{Default: cfg.List.DefaultLimit, Max: cfg.List.MaxLimit}
	}
	bopts.Auth = backend.BearerToken(token)

	client, err := backend.New(bopts)
	if err != nil {
		return nil, limits, err
	}
	return client, limits, nil
}

// logger writes to stderr so stdout carries only command output.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelError
	if o.Verbose {
		level = slog.LevelDebug
	}
	log, err := logger.New(
		logger.WithLevel(level),
		logger.WithConsoleWriter(cmd.ErrOrStderr()),
		logger.WithConsoleFormat(logger.FormatText),
		logger.WithConsoleColor(false),
	)
	if err != nil {
		return logger.Default().Logger
	}
	return log.Logger
}

// findScreen returns the screen named name.
func findScreen(screens []resource.Screen, name string) (resource.Screen, error) {
	for _, s := range screens {
		if s.Info().Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown resource %q (run \"tsamctl resources\" for the list)", name)
}
