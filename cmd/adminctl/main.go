// adminctl is the operator CLI: schema migrations and attendance-type
// administration.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"example.com/attendance/internal/config"
	"example.com/attendance/internal/domain"
	"example.com/attendance/internal/migrations"
	persistence "example.com/attendance/internal/persistence/postgres"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "adminctl",
		Short:         "Administer the attendance service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newAddTypeCommand())
	cmd.AddCommand(newListTypesCommand())
	cmd.AddCommand(newDeactivateTypeCommand())
	cmd.AddCommand(newHistoryCommand())
	return cmd
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <external-user-id>",
		Short: "Dump a user's full attendance record log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, service *domain.Service) error {
				history, err := service.FullHistory(ctx, args[0], args[0])
				if err != nil {
					return err
				}
				for _, item := range history {
					line := fmt.Sprintf("%s\t%s", item.Record.RecordedAt.Format(time.RFC3339), item.Record.Kind)
					if item.TypeName != "" {
						line += "\t" + item.TypeName
					}
					if item.Record.Notes != "" {
						line += "\t" + item.Record.Notes
					}
					fmt.Println(line)
				}
				fmt.Printf("total: %d records\n", len(history))
				return nil
			})
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := sql.Open("pgx", cfg.PostgresURL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			goose.SetBaseFS(migrations.Migrations)
			if err := goose.SetDialect("pgx"); err != nil {
				return err
			}
			if err := goose.UpContext(cmd.Context(), db, "."); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			fmt.Println("migrations applied")
			return nil
		},
	}
}

func newAddTypeCommand() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add-type <name>",
		Short: "Register a new attendance type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, service *domain.Service) error {
				at, err := service.AddAttendanceType(ctx, args[0], description)
				if err != nil {
					return err
				}
				fmt.Printf("created attendance type %q (id %d)\n", at.Name, at.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "optional description")
	return cmd
}

func newListTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-types",
		Short: "List attendance types, active and inactive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, service *domain.Service) error {
				list, err := service.ListAttendanceTypes(ctx)
				if err != nil {
					return err
				}
				for _, at := range list.Active {
					fmt.Printf("%d\t%s\tactive\t%s\n", at.ID, at.Name, at.Description)
				}
				for _, at := range list.Inactive {
					fmt.Printf("%d\t%s\tinactive\t%s\n", at.ID, at.Name, at.Description)
				}
				fmt.Printf("total: %d (%d active)\n", list.Total(), len(list.Active))
				return nil
			})
		},
	}
}

func newDeactivateTypeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate-type <name>",
		Short: "Soft-disable an attendance type, keeping history intact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, service *domain.Service) error {
				if err := service.DeactivateAttendanceType(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("deactivated attendance type %q\n", args[0])
				return nil
			})
		},
	}
}

func withService(ctx context.Context, fn func(context.Context, *domain.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	service := domain.NewService(persistence.NewRepository(pool), domain.WithLocation(cfg.Location()))
	return fn(ctx, service)
}
