package main

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/emoclassify/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "EMOCLASSIFY_DB_DSN"

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var dsn, configPath string

	open := func() (*migrate.Migrate, error) {
		url, err := resolveDSN(dsn, configPath)
		if err != nil {
			return nil, err
		}
		source, err := iofs.New(migrations, "migrations")
		if err != nil {
			return nil, fmt.Errorf("create migration source: %w", err)
		}
		m, err := migrate.NewWithSourceInstance("iofs", source, url)
		if err != nil {
			return nil, fmt.Errorf("create migrator: %w", err)
		}
		return m, nil
	}

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply emoclassify database migrations",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "database URL (default $"+envDSN+" or the configured database)")
	root.PersistentFlags().StringVar(&configPath, "config", config.BaseConfigFile, "path to the base TOML config")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(open, func(m *migrate.Migrate) error {
					if err := ignoreNoChange(m.Up()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(open, func(m *migrate.Migrate) error {
					if err := ignoreNoChange(m.Down()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations reverted")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations (negative N reverts)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count: %w", err)
				}
				return withMigrator(open, func(m *migrate.Migrate) error {
					if err := ignoreNoChange(m.Steps(n)); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration steps\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(open, func(m *migrate.Migrate) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version: %d, dirty: %v\n", v, dirty)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force V",
			Short: "Set the migration version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version: %w", err)
				}
				return withMigrator(open, func(m *migrate.Migrate) error {
					if err := m.Force(v); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "forced to version %d\n", v)
					return nil
				})
			},
		},
	)

	return root
}

func withMigrator(open func() (*migrate.Migrate, error), fn func(*migrate.Migrate) error) error {
	m, err := open()
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func resolveDSN(flagDSN, configPath string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return "", err
	}
	if !cfg.Database.Enabled() {
		return "", errors.New("no database configured: pass --dsn, set " + envDSN + ", or configure [database]")
	}
	return cfg.Database.URL(), nil
}
