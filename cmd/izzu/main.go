// Command izzu es la CLI de operación: migraciones y altas de tenants,
// proyectos, keys y webhooks sin pasar por la consola.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/izzu/internal/app"
	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/config"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	adminsvc "github.com/dropDatabas3/izzu/internal/http/services/admin"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
)

// openStore se reemplaza en tests por un store en memoria compartido.
var openStore = app.OpenStore

type rootOptions struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "izzu",
		Short:        "Herramientas de operación de izzu",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("IZZU_CONFIG"), "ruta al config.yaml")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "archivo .env a cargar si existe")

	root.AddCommand(
		newVersionCmd(),
		newMigrateCmd(opts),
		newAdminsCmd(opts),
		newProjectsCmd(opts),
		newKeysCmd(opts),
		newWebhooksCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("env file: %w", err)
		}
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: "warn", ServiceName: "izzu-cli"})
	return cfg, nil
}

// withStore abre el Credential Repository, ejecuta fn y lo cierra.
func (o *rootOptions) withStore(ctx context.Context, fn func(context.Context, *config.Config, repository.Store) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, cfg, st)
}

// adminServices arma los services de consola sin sesiones ni OTP: la CLI
// actúa en nombre de un admin existente.
func adminServices(repos repository.Repositories) adminsvc.Services {
	return adminsvc.NewServices(adminsvc.Deps{
		Repos: repos,
		Audit: audit.NewRecorder(repos.Audit, nil),
	})
}

func principalFor(ctx context.Context, repos repository.Repositories, email string) (adminsvc.Principal, error) {
	if email == "" {
		return adminsvc.Principal{}, errors.New("--admin-email is required")
	}
	adm, err := repos.Admins.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return adminsvc.Principal{}, fmt.Errorf("admin %s not found", email)
		}
		return adminsvc.Principal{}, err
	}
	return adminsvc.Principal{AdminID: adm.ID, TenantID: adm.TenantID, Email: adm.Email, Role: adm.Role}, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("izzu version %s\n", app.Version)
		},
	}
}
