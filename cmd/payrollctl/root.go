package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rpattn/payrolldesk/internal/config"
	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/logging"
)

type globalOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:          "payrollctl",
		Short:        "Payroll back office tools",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", ".", "Directory containing config.yaml and .env")

	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newSetupTenantCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newTenantsCmd(opts))
	cmd.AddCommand(newAttendanceCmd(opts))
	return cmd
}

type session struct {
	cfg    config.Config
	logger *logrus.Logger
	conn   *db.Connection
}

func (o *globalOptions) load() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format), nil
}

func (o *globalOptions) connect(ctx context.Context) (*session, error) {
	cfg, logger, err := o.load()
	if err != nil {
		return nil, err
	}
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &session{cfg: cfg, logger: logger, conn: conn}, nil
}

func (r *session) Close() {
	r.conn.Close()
}

// withLogger attaches the session logger to ctx.
func (r *session) withLogger(ctx context.Context) context.Context {
	return logging.WithEntry(ctx, logrus.NewEntry(r.logger))
}
