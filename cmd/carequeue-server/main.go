package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/carequeue/internal/config"
	"github.com/ehr/carequeue/internal/domain/queue"
	"github.com/ehr/carequeue/internal/platform/auth"
	"github.com/ehr/carequeue/internal/platform/db"
	"github.com/ehr/carequeue/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "carequeue-server",
		Short:        "Hospital patient queue, bed and inventory API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg, newLogger(cfg))
		},
	}
}

func openPool(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*db.Migrator, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ConnectAttempts: cfg.DBConnectAttempts,
		RetryDelay:      2 * time.Second,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, migrations.FS), pool.Close, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			migrator, closePool, err := openPool(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer closePool()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			migrator, closePool, err := openPool(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd, statuses)
			return nil
		},
	})

	return cmd
}

func printMigrationStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-8s %-30s %-8s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format(time.DateTime)
			}
		}
		fmt.Fprintf(out, "%-8d %-30s %-8s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Copy the queue snapshot between a JSON file and the configured store",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored queue to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := openBackends(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer b.Close()

			store := b.snapshotStore(cfg)
			if store == nil {
				return fmt.Errorf("STORE_BACKEND=memory has nothing to export")
			}
			visits, err := store.Load(ctx)
			if err != nil {
				return err
			}
			if visits == nil {
				visits = []queue.Visit{}
			}
			data, err := json.MarshalIndent(visits, "", "  ")
			if err != nil {
				return err
			}
			if err := writeOutput(file, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d visit(s).\n", len(visits))
			return nil
		},
	}
	exportCmd.Flags().StringP("file", "f", "-", "Output file (- for stdout)")
	cmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the stored queue with the contents of a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var visits []queue.Visit
			if err := json.Unmarshal(data, &visits); err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := newLogger(cfg)
			b, err := openBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			store := b.snapshotStore(cfg)
			if store == nil {
				return fmt.Errorf("STORE_BACKEND=memory cannot hold an imported snapshot")
			}
			// Import through the service so the snapshot is validated the
			// same way a running server would.
			svc := queue.NewService(queue.NewEngine(), logger, queue.WithStore(store))
			if err := svc.Import(ctx, visits); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d visit(s).\n", len(visits))
			return nil
		},
	}
	importCmd.Flags().StringP("file", "f", "", "Snapshot file to import")
	_ = importCmd.MarkFlagRequired("file")
	cmd.AddCommand(importCmd)

	return cmd
}

func writeOutput(file string, data []byte) error {
	if file == "" || file == "-" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(file, append(data, '\n'), 0o600)
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetStringSlice("roles")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			for _, r := range roles {
				if !slices.Contains(knownRoles, r) {
					return fmt.Errorf("unknown role %q (want %s)", r, strings.Join(knownRoles, ", "))
				}
			}
			tok, err := auth.IssueToken(auth.JWTConfig{
				Issuer:     cfg.AuthIssuer,
				Audience:   cfg.AuthAudience,
				SigningKey: []byte(cfg.AuthSigningKey),
			}, subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("subject", "staff-1", "Token subject (user id)")
	cmd.Flags().StringSlice("roles", []string{auth.RoleStaff}, "Comma-separated roles")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

var knownRoles = []string{auth.RolePatient, auth.RoleStaff, auth.RoleAdmin}
