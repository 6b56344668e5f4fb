package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/izzu/internal/config"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	dto "github.com/dropDatabas3/izzu/internal/http/dto/admin"
	adminsvc "github.com/dropDatabas3/izzu/internal/http/services/admin"
	"github.com/dropDatabas3/izzu/internal/security/token"
)

// admins create: alta de tenant + owner. El owner entra después a la
// consola por OTP con ese email.
func newAdminsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "admins", Short: "Gestiona admins de la consola"}

	var email, name, tenant string
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea un tenant con su admin owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if !strings.Contains(email, "@") {
				return errors.New("--email is required")
			}
			return opts.withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st repository.Store) error {
				suffix, err := token.RandomHex(4)
				if err != nil {
					return err
				}
				tenantName := strings.TrimSpace(tenant)
				if tenantName == "" {
					tenantName = email
				}
				adm, t, err := st.Repositories().Admins.CreateWithTenant(ctx,
					repository.CreateTenantInput{Name: tenantName, Slug: adminsvc.TenantSlug(email, suffix), Email: email},
					repository.CreateAdminInput{Email: email, DisplayName: name, Role: repository.AdminRoleOwner},
				)
				if err != nil {
					if repository.IsConflict(err) {
						return errors.New("an admin with that email already exists")
					}
					return err
				}
				return printJSON(cmd, map[string]string{
					"adminId":    adm.ID,
					"tenantId":   t.ID,
					"tenantSlug": t.Slug,
					"email":      adm.Email,
				})
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "email del owner")
	create.Flags().StringVar(&name, "name", "", "nombre visible")
	create.Flags().StringVar(&tenant, "tenant", "", "nombre del tenant (default: el email)")
	cmd.AddCommand(create)
	return cmd
}

func newProjectsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "projects", Short: "Gestiona proyectos"}

	var adminEmail, name, slug string
	var origins []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea un proyecto con su par de keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st repository.Store) error {
				repos := st.Repositories()
				p, err := principalFor(ctx, repos, adminEmail)
				if err != nil {
					return err
				}
				out, err := adminServices(repos).Projects.Create(ctx, p, dto.CreateProjectRequest{
					Name: name, Slug: slug, AllowedOrigins: origins,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
	create.Flags().StringVar(&adminEmail, "admin-email", "", "admin que ejecuta el alta")
	create.Flags().StringVar(&name, "name", "", "nombre del proyecto")
	create.Flags().StringVar(&slug, "slug", "", "slug (default: derivado del nombre)")
	create.Flags().StringSliceVar(&origins, "origin", nil, "origen permitido (repetible)")

	var listEmail string
	list := &cobra.Command{
		Use:   "list",
		Short: "Lista los proyectos del tenant del admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st repository.Store) error {
				repos := st.Repositories()
				p, err := principalFor(ctx, repos, listEmail)
				if err != nil {
					return err
				}
				out, err := adminServices(repos).Projects.List(ctx, p)
				if err != nil {
					return err
				}
				if out == nil {
					out = []dto.Project{}
				}
				return printJSON(cmd, out)
			})
		},
	}
	list.Flags().StringVar(&listEmail, "admin-email", "", "admin dueño del tenant")

	cmd.AddCommand(create, list)
	return cmd
}

func newKeysCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "keys", Short: "Gestiona API keys"}

	var adminEmail, projectID, keyType, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Emite una API key adicional para un proyecto",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st repository.Store) error {
				repos := st.Repositories()
				p, err := principalFor(ctx, repos, adminEmail)
				if err != nil {
					return err
				}
				out, err := adminServices(repos).Keys.Create(ctx, p, projectID, dto.CreateKeyRequest{Name: name, Type: keyType})
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
	create.Flags().StringVar(&adminEmail, "admin-email", "", "admin dueño del proyecto")
	create.Flags().StringVar(&projectID, "project", "", "id del proyecto")
	create.Flags().StringVar(&keyType, "type", string(repository.KeyTypePublishable), "publishable | secret")
	create.Flags().StringVar(&name, "name", "", "etiqueta de la key")
	cmd.AddCommand(create)
	return cmd
}

func newWebhooksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "webhooks", Short: "Gestiona webhooks"}

	var adminEmail, projectID, url string
	var events []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Registra un endpoint de webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st repository.Store) error {
				repos := st.Repositories()
				p, err := principalFor(ctx, repos, adminEmail)
				if err != nil {
					return err
				}
				out, err := adminServices(repos).Webhooks.Create(ctx, p, projectID, dto.CreateWebhookRequest{URL: url, Events: events})
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
	create.Flags().StringVar(&adminEmail, "admin-email", "", "admin dueño del proyecto")
	create.Flags().StringVar(&projectID, "project", "", "id del proyecto")
	create.Flags().StringVar(&url, "url", "", "URL destino (https)")
	create.Flags().StringSliceVar(&events, "event", nil, "evento suscripto (repetible; vacío = todos)")
	cmd.AddCommand(create)
	return cmd
}
