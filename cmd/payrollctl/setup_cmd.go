package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpattn/payrolldesk/internal/db"
	"github.com/rpattn/payrolldesk/internal/domain"
	"github.com/rpattn/payrolldesk/internal/repository"
)

type setupInput struct {
	Name       string
	Subdomain  string
	AdminEmail string
}

type setupOutput struct {
	Tenant  domain.Tenant    `json:"tenant"`
	Admin   domain.Principal `json:"admin"`
	Created bool             `json:"created"`
}

type tenantStore interface {
	Create(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (domain.Tenant, error)
}

type userStore interface {
	Upsert(ctx context.Context, principal domain.Principal) (domain.Principal, error)
}

func newSetupTenantCmd(global *globalOptions) *cobra.Command {
	in := setupInput{}
	cmd := &cobra.Command{
		Use:   "setup-tenant",
		Short: "Create a tenant and assign its admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := global.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			out, err := setupTenant(
				rt.withLogger(cmd.Context()),
				rt.conn,
				repository.NewTenantRepository(rt.conn.Pool),
				repository.NewUserRepository(rt.conn.Pool),
				in,
			)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Company name (required)")
	cmd.Flags().StringVar(&in.Subdomain, "subdomain", "", "Workspace subdomain (required)")
	cmd.Flags().StringVar(&in.AdminEmail, "admin-email", "", "Admin user email (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("subdomain")
	_ = cmd.MarkFlagRequired("admin-email")
	return cmd
}

// setupTenant reuses a tenant with the same subdomain and assigns the admin
// to it in one transaction.
func setupTenant(ctx context.Context, tx db.Transactor, tenants tenantStore, users userStore, in setupInput) (setupOutput, error) {
	tenant := domain.NewTenant(in.Name, in.Subdomain)
	email := strings.ToLower(strings.TrimSpace(in.AdminEmail))
	switch {
	case tenant.Name == "":
		return setupOutput{}, errors.New("--name is required")
	case tenant.Subdomain == "":
		return setupOutput{}, errors.New("--subdomain is required")
	case !strings.Contains(email, "@"):
		return setupOutput{}, fmt.Errorf("invalid admin email %q", in.AdminEmail)
	}

	var out setupOutput
	err := tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := tenants.GetBySubdomain(ctx, tenant.Subdomain)
		switch {
		case err == nil:
			out.Tenant = existing
		case errors.Is(err, repository.ErrNotFound):
			created, err := tenants.Create(ctx, tenant)
			if err != nil {
				return err
			}
			out.Tenant = created
			out.Created = true
		default:
			return err
		}

		tenantID := out.Tenant.ID
		admin, err := users.Upsert(ctx, domain.Principal{
			Email:    email,
			TenantID: &tenantID,
			IsActive: true,
			IsAdmin:  true,
		})
		if err != nil {
			return err
		}
		out.Admin = admin
		return nil
	})
	if err != nil {
		return setupOutput{}, fmt.Errorf("setup tenant: %w", err)
	}
	return out, nil
}
