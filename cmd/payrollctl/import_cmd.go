package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/ingestion"
	"github.com/rpattn/payrolldesk/internal/repository"
)

type importOptions struct {
	tenantID  int64
	file      string
	batchSize int
}

func (o *importOptions) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&o.tenantID, "tenant", 0, "Tenant id (required)")
	cmd.Flags().StringVar(&o.file, "file", "", "Path to the .xlsx or .csv file (required)")
	cmd.Flags().IntVar(&o.batchSize, "batch-size", 0, "Rows per insert batch (default from config)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")
}

func newImportCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import spreadsheets for a tenant",
	}
	cmd.AddCommand(newImportEmployeesCmd(global))
	cmd.AddCommand(newImportAttendanceCmd(global))
	return cmd
}

func newImportEmployeesCmd(global *globalOptions) *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "employees",
		Short: "Import an employee roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, svc, tenant, err := prepareImport(cmd, global, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			f, err := os.Open(opts.file)
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := svc.UploadEmployees(rt.withLogger(cmd.Context()), ingestion.UploadRequest{
				Tenant:    tenant,
				FileName:  filepath.Base(opts.file),
				Data:      f,
				BatchSize: opts.batchSize,
			})
			return report(cmd, result, err)
		},
	}
	opts.bind(cmd)
	return cmd
}

func newImportAttendanceCmd(global *globalOptions) *cobra.Command {
	opts := &importOptions{}
	var month, year int
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Import a monthly attendance summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, svc, tenant, err := prepareImport(cmd, global, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			f, err := os.Open(opts.file)
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := svc.UploadAttendance(rt.withLogger(cmd.Context()), ingestion.AttendanceRequest{
				Tenant:    tenant,
				Year:      year,
				Month:     month,
				FileName:  filepath.Base(opts.file),
				Data:      f,
				BatchSize: opts.batchSize,
			})
			return report(cmd, result, err)
		},
	}
	opts.bind(cmd)
	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (required)")
	cmd.Flags().IntVar(&year, "year", 0, "Year (required)")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func prepareImport(cmd *cobra.Command, global *globalOptions, opts *importOptions) (*session, *ingestion.Service, domain.Tenant, error) {
	rt, err := global.connect(cmd.Context())
	if err != nil {
		return nil, nil, domain.Tenant{}, err
	}

	tenant, err := repository.NewTenantRepository(rt.conn.Pool).GetByID(cmd.Context(), opts.tenantID)
	if err != nil {
		rt.Close()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.Tenant{}, fmt.Errorf("tenant %d not found", opts.tenantID)
		}
		return nil, nil, domain.Tenant{}, err
	}

	svc := ingestion.NewService(
		repository.NewEmployeeRepository(rt.conn.Pool),
		repository.NewAttendanceRepository(rt.conn.Pool),
		repository.NewIngestionLogRepository(rt.conn.Pool),
		rt.conn,
		ingestion.WithBatchSize(rt.cfg.Upload.BatchSize),
	)
	return rt, svc, tenant, nil
}

// report prints the result and turns a failed upload into a non-zero exit.
func report(cmd *cobra.Command, result domain.UploadResult, err error) error {
	var persistErr *ingestion.PersistenceError
	if err != nil && !errors.As(err, &persistErr) {
		return err
	}
	if writeErr := writeJSON(cmd.OutOrStdout(), result); writeErr != nil {
		return writeErr
	}
	if !result.Success {
		return fmt.Errorf("import finished with %d error(s)", len(result.Errors))
	}
	return nil
}
