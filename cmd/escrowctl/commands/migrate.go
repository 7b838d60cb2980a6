package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/taskfi-backend/internal/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Управление схемой базы данных",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Применить все новые миграции",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, conn, err := connect(cmd.Context())
				if err != nil {
					return err
				}
				defer conn.Close()

				if err := db.RunMigrations(conn); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "миграции применены")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Откатить последние миграции (по умолчанию одну)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps, err := parseSteps(args)
				if err != nil {
					return err
				}

				_, conn, err := connect(cmd.Context())
				if err != nil {
					return err
				}
				defer conn.Close()

				if err := db.RollbackMigrations(conn, steps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "откачено миграций: %d\n", steps)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Показать текущую версию схемы",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, conn, err := connect(cmd.Context())
				if err != nil {
					return err
				}
				defer conn.Close()

				version, dirty, err := db.MigrationVersion(conn)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			},
		},
	)
	return cmd
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(args[0])
	if err != nil || steps <= 0 {
		return 0, fmt.Errorf("escrowctl: число шагов должно быть положительным целым, получено %q", args[0])
	}
	return steps, nil
}
