package commands

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/taskfi-backend/internal/config"
	"github.com/ignatzorin/taskfi-backend/internal/db"
	"github.com/ignatzorin/taskfi-backend/internal/logger"
)

var logLevel string

// rootCmd - служебная утилита для схемы БД и ручной сверки платежей.
var rootCmd = &cobra.Command{
	Use:   "escrowctl",
	Short: "Обслуживание TaskFi: миграции и сверка escrow-платежей",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logLevel)
		logger.SetTextFormatter()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute запускает корневую команду.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "уровень логирования")
	rootCmd.AddCommand(newMigrateCmd(), newReconcileCmd())
}

// connect загружает конфигурацию и открывает соединение с базой.
func connect(ctx context.Context) (*config.Config, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("escrowctl: %w", err)
	}
	return cfg, conn, nil
}
