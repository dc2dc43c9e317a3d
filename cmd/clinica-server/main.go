package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinica/clinica/internal/config"
	"github.com/clinica/clinica/internal/platform/auth"
	"github.com/clinica/clinica/internal/platform/db"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clinica-server",
		Short: "Clinic practice management API server",
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(userCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// newLogger writes JSON to out, or human-readable lines in development.
func newLogger(out io.Writer, env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// openDB loads the config and connects. The caller closes the pool.
func openDB(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			dir := migrationsDir(cmd, cfg)
			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) from %s.\n", count, dir)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsDir(cmd, cfg)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func migrationsDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir
	}
	return cfg.MigrationsDir
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage login accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a login account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			return withAuthService(func(ctx context.Context, svc *auth.Service) error {
				u, err := svc.CreateUser(ctx, username, password, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d, role %s).\n", u.Username, u.ID, u.Role)
				return nil
			})
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("role", auth.RoleReception, "Role: admin, reception or professional")
	cmd.AddCommand(createCmd)

	resetCmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			return withAuthService(func(ctx context.Context, svc *auth.Service) error {
				if err := svc.ResetPassword(ctx, username, password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password for %s updated.\n", username)
				return nil
			})
		},
	}
	resetCmd.Flags().String("username", "", "Login name")
	resetCmd.Flags().String("password", "", "New password")
	cmd.AddCommand(resetCmd)

	return cmd
}

func withAuthService(fn func(ctx context.Context, svc *auth.Service) error) error {
	ctx := context.Background()
	cfg, pool, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	logger := newLogger(os.Stderr, cfg.Env)
	tokens := auth.NewTokenIssuer(cfg.SigningKey(), cfg.SessionTTL)
	revoked := auth.NewTokenRevocationStore(time.Hour)
	defer revoked.Close()

	return fn(ctx, auth.NewService(auth.NewUserRepoPG(pool), tokens, revoked, logger))
}
