package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rpattn/payrolldesk/internal/repository"
)

type tenantActivator interface {
	SetActive(ctx context.Context, id int64, active bool) error
}

func newTenantsCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List and (de)activate tenants",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := global.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			tenants, err := repository.NewTenantRepository(rt.conn.Pool).List(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tenants)
		},
	})
	cmd.AddCommand(newSetActiveCmd(global, "activate", true))
	cmd.AddCommand(newSetActiveCmd(global, "deactivate", false))
	return cmd
}

func newSetActiveCmd(global *globalOptions, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <tenant-id>",
		Short: fmt.Sprintf("Mark a tenant as %sd", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTenantID(args[0])
			if err != nil {
				return err
			}

			rt, err := global.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := setTenantActive(cmd.Context(), repository.NewTenantRepository(rt.conn.Pool), id, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %d %sd\n", id, use)
			return nil
		},
	}
}

func setTenantActive(ctx context.Context, tenants tenantActivator, id int64, active bool) error {
	err := tenants.SetActive(ctx, id, active)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("tenant %d not found", id)
	}
	return err
}

func parseTenantID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid tenant id %q", raw)
	}
	return id, nil
}
