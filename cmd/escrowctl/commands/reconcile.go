package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/taskfi-backend/internal/gateway"
	"github.com/ignatzorin/taskfi-backend/internal/reconcile"
	"github.com/ignatzorin/taskfi-backend/internal/repository"
	"github.com/ignatzorin/taskfi-backend/internal/service"
)

func newReconcileCmd() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Один проход сверки: применить подтверждённые шлюзом запросы и опросить зависшие",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			store := repository.NewStore(conn, cfg.TxMaxRetries)
			settlement := gateway.NewHTTPClient(gateway.HTTPConfig{
				BaseURL: cfg.Gateway.URL,
				APIKey:  cfg.Gateway.APIKey,
				Timeout: cfg.Gateway.Timeout,
				RPS:     cfg.Gateway.RPS,
			})
			// уведомления остаются в БД, доставка по websocket здесь не нужна
			escrow := service.NewEscrowService(store, settlement, nil, service.EscrowConfig{
				GatewayTimeout: cfg.Gateway.Timeout,
				GracePeriod:    cfg.Escrow.GracePeriod,
			})

			r := reconcile.New(store.Settlements(), store.Payments(), escrow, reconcile.Config{
				MinAge:    cfg.Reconcile.MinAge,
				BatchSize: batch,
			})
			report, err := r.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "applied=%d resolved=%d failed=%d overdue=%d\n",
				report.Applied, report.Resolved, report.Failed, report.Overdue)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 100, "сколько запросов обработать за проход")
	return cmd
}
