package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpattn/payrolldesk/internal/repository"
)

func newAttendanceCmd(global *globalOptions) *cobra.Command {
	var (
		tenantID    int64
		year, month int
	)
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Print the stored attendance summaries for one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month < 1 || month > 12 {
				return fmt.Errorf("--month must be between 1 and 12")
			}

			rt, err := global.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			rows, err := repository.NewAttendanceRepository(rt.conn.Pool).List(cmd.Context(), tenantID, year, month)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "Tenant id (required)")
	cmd.Flags().IntVar(&year, "year", 0, "Year (required)")
	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (required)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}
