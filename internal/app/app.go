// Package app arma el proceso a partir de la configuración: stores,
// servicios de dominio, controllers y router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/izzu/internal/apikey"
	"github.com/dropDatabas3/izzu/internal/audit"
	"github.com/dropDatabas3/izzu/internal/config"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/email"
	"github.com/dropDatabas3/izzu/internal/face"
	adminctrl "github.com/dropDatabas3/izzu/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/izzu/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/izzu/internal/http/controllers/oauth"
	sdkctrl "github.com/dropDatabas3/izzu/internal/http/controllers/sdk"
	"github.com/dropDatabas3/izzu/internal/http/helpers"
	"github.com/dropDatabas3/izzu/internal/http/router"
	adminsvc "github.com/dropDatabas3/izzu/internal/http/services/admin"
	healthsvc "github.com/dropDatabas3/izzu/internal/http/services/health"
	sdksvc "github.com/dropDatabas3/izzu/internal/http/services/sdk"
	"github.com/dropDatabas3/izzu/internal/identity"
	"github.com/dropDatabas3/izzu/internal/oauth"
	"github.com/dropDatabas3/izzu/internal/oauth/github"
	"github.com/dropDatabas3/izzu/internal/oauth/google"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/observability/metrics"
	"github.com/dropDatabas3/izzu/internal/otp"
	"github.com/dropDatabas3/izzu/internal/passkey"
	"github.com/dropDatabas3/izzu/internal/rate"
	"github.com/dropDatabas3/izzu/internal/secretstore"
	"github.com/dropDatabas3/izzu/internal/security/password"
	"github.com/dropDatabas3/izzu/internal/session"
	"github.com/dropDatabas3/izzu/internal/store/memory"
	"github.com/dropDatabas3/izzu/internal/store/pg"
	"github.com/dropDatabas3/izzu/internal/webhook"
	migrations "github.com/dropDatabas3/izzu/migrations/postgres"
)

// Version se pisa en build con -ldflags.
var Version = "dev"

// Deps permite inyectar stores ya construidos (tests, CLI). Los nil se
// construyen desde la config.
type Deps struct {
	Store       repository.Store
	SecretStore secretstore.Store
	// Queue recibe las tareas de webhooks; nil y webhooks.enabled=false
	// deja los eventos solo en el log.
	Queue webhook.Enqueuer
}

// App es el proceso armado.
type App struct {
	Handler http.Handler
	Config  *config.Config
	Repos   repository.Repositories

	store   repository.Store
	secrets secretstore.Store
	closers []func() error
}

// New arma la aplicación completa.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	log := logger.L().With(logger.Layer("app"), logger.Op("New"))
	a := &App{Config: cfg}

	// 1. Stores
	st := deps.Store
	if st == nil {
		var err error
		if st, err = OpenStore(ctx, cfg); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { st.Close(); return nil })
	}
	a.store = st
	a.Repos = st.Repositories()

	secrets := deps.SecretStore
	if secrets == nil {
		var err error
		secrets, err = secretstore.New(secretstore.Config{
			Driver:   cfg.SecretStore.Driver,
			Addr:     cfg.SecretStore.Addr,
			Password: cfg.SecretStore.Password,
			DB:       cfg.SecretStore.DB,
			Prefix:   cfg.SecretStore.Prefix,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, secrets.Close)
	}
	a.secrets = secrets

	// 2. Servicios de dominio
	recorder := audit.NewRecorder(a.Repos.Audit, a.webhookNotifier(deps.Queue))
	resolver := identity.NewResolver(a.Repos.EndUsers, a.Repos.Identities, recorder)
	sessions := session.NewService(a.Repos.Sessions, cfg.Session.TTL)
	authorizer := apikey.NewAuthorizer(a.Repos.Projects, a.Repos.APIKeys)

	otpSvc := otp.NewService(secrets, otp.Config{
		TTL:         cfg.OTP.TTL,
		Digits:      cfg.OTP.Digits,
		MaxAttempts: cfg.OTP.MaxAttempts,
		DevMode:     cfg.OTP.DevMode,
		SendLimit:   cfg.OTP.SendLimit,
		SendWindow:  cfg.OTP.SendWindow,
	}, a.otpOptions(secrets)...)

	passkeys, err := passkey.NewManager(passkey.Config{
		RPID:          cfg.Passkey.RPID,
		RPDisplayName: cfg.Passkey.RPDisplayName,
		RPOrigins:     cfg.Passkey.RPOrigins,
		ChallengeTTL:  cfg.Passkey.ChallengeTTL,
	}, secrets, a.Repos.EndUsers, a.Repos.Passkeys)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("passkey: %w", err)
	}

	var faceClient face.Client
	if strings.TrimSpace(cfg.Face.BaseURL) != "" {
		faceClient = face.NewClient(cfg.Face.BaseURL, cfg.Face.Timeout)
	}

	blacklist, err := password.LoadBlacklist(cfg.Security.PasswordBlacklistPath)
	if err != nil {
		log.Warn("password blacklist not loaded", logger.Err(err))
	}
	pp := cfg.Security.PasswordPolicy

	// 3. Services HTTP
	sdkServices := sdksvc.NewServices(sdksvc.Deps{
		Repos:    a.Repos,
		OTP:      otpSvc,
		Resolver: resolver,
		Sessions: sessions,
		Audit:    recorder,
		Passkeys: passkeys,
		Face:     faceClient,
		PasswordPolicy: password.Policy{
			MinLength:     pp.MinLength,
			RequireUpper:  pp.RequireUpper,
			RequireLower:  pp.RequireLower,
			RequireDigit:  pp.RequireDigit,
			RequireSymbol: pp.RequireSymbol,
			Blacklist:     blacklist,
		},
	})
	adminServices := adminsvc.NewServices(adminsvc.Deps{
		Repos:             a.Repos,
		Sessions:          sessions,
		OTP:               otpSvc,
		Audit:             recorder,
		Resolver:          resolver,
		PlatformProjectID: cfg.Platform.ProjectID,
	})
	healthServices := healthsvc.NewServices(healthsvc.Deps{
		Checks:  a.healthChecks(faceClient),
		Version: Version,
	})

	// 4. Controllers
	cookie := helpers.CookieConfig{
		Name:     cfg.Session.CookieName,
		Domain:   cfg.Session.CookieDomain,
		SameSite: cfg.Session.SameSite,
		Secure:   cfg.Session.CookieSecure,
	}
	var oauthController *oauthctrl.Controller
	if providers := buildProviders(cfg); len(providers.Names()) > 0 {
		oauthController = oauthctrl.NewController(providers,
			oauth.NewStateSigner([]byte(cfg.OAuth.StateSecret)),
			adminServices.Auth,
			oauthctrl.Config{ConsoleURL: cfg.App.ConsoleURL, Cookie: cookie},
		)
	}

	// 5. Métricas y router
	metricsHandler, err := metrics.Register(metrics.Config{Pool: a.pgPool})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	a.Handler = router.New(router.Deps{
		SDK:              sdkctrl.NewControllers(sdkServices, cfg.Server.MaxUploadBytes),
		Admin:            adminctrl.NewControllers(adminServices, cookie),
		OAuth:            oauthController,
		Health:           healthctrl.NewControllers(healthServices),
		Metrics:          metricsHandler,
		Authorizer:       authorizer,
		Sessions:         sessions,
		AdminAuth:        adminServices.Auth,
		AdminCookieName:  cfg.Session.CookieName,
		AdminCORSOrigins: cfg.Server.CORSAllowedOrigins,
		MaxUploadBytes:   cfg.Server.MaxUploadBytes,
		Limits:           a.limits(secrets),
	})

	log.Info("app wired",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("secret_store", cfg.SecretStore.Driver),
		logger.Bool("face", faceClient != nil),
		logger.Bool("oauth", oauthController != nil),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
	)
	return a, nil
}

// OpenStore abre el Credential Repository configurado y, si corresponde,
// aplica las migraciones pendientes.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "memory":
		return memory.New(), nil
	case "postgres":
		st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        int32(cfg.Storage.Postgres.MaxConns),
			MinConns:        int32(cfg.Storage.Postgres.MinConns),
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if cfg.Storage.AutoMigrate {
			res, err := pg.NewMigrator(migrations.CoreFS, migrations.CoreDir).Up(ctx, st)
			if err != nil {
				st.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			logger.L().Info("migrations applied",
				logger.Layer("app"), logger.Int("applied", len(res.Applied)), logger.Duration(res.Duration))
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (a *App) otpOptions(secrets secretstore.Store) []otp.Option {
	var opts []otp.Option
	if a.Config.Rate.Enabled {
		opts = append(opts, otp.WithLimiter(rate.NewPool(secrets, "rl:otp:")))
	}
	if strings.TrimSpace(a.Config.SMTP.Host) != "" {
		sender := email.NewSMTPSender(email.SMTPConfig{
			Host:               a.Config.SMTP.Host,
			Port:               a.Config.SMTP.Port,
			Username:           a.Config.SMTP.Username,
			Password:           a.Config.SMTP.Password,
			FromEmail:          a.Config.SMTP.From,
			TLSMode:            a.Config.SMTP.TLS,
			InsecureSkipVerify: a.Config.SMTP.InsecureSkipVerify,
		})
		opts = append(opts, otp.WithDispatcher(otp.ChannelEmail, email.NewOTPMailer(sender, a.Config.App.Name)))
	}
	return opts
}

func (a *App) webhookNotifier(q webhook.Enqueuer) audit.Notifier {
	if q == nil && a.Config.Webhooks.Enabled {
		client := asynq.NewClient(WebhookRedisOpt(a.Config))
		a.closers = append(a.closers, client.Close)
		q = client
	}
	if q == nil {
		return webhook.LogPublisher{}
	}
	return webhook.NewPublisher(a.Repos.Webhooks, q)
}

func (a *App) limits(counter rate.Counter) router.Limits {
	rc := a.Config.Rate
	if !rc.Enabled {
		return router.Limits{}
	}
	return router.Limits{
		SDK:        rate.NewFixedWindow(counter, "rl:sdk:", rc.SDK.Limit, rc.SDK.Window),
		SDKLimit:   rc.SDK.Limit,
		Admin:      rate.NewFixedWindow(counter, "rl:admin:", rc.Admin.Limit, rc.Admin.Window),
		AdminLimit: rc.Admin.Limit,
		OTP:        rate.NewFixedWindow(counter, "rl:otpsend:", rc.OTP.Limit, rc.OTP.Window),
		OTPLimit:   rc.OTP.Limit,
	}
}

func (a *App) healthChecks(fc face.Client) []healthsvc.Check {
	checks := []healthsvc.Check{
		{Name: "db", Critical: true, Ping: a.store.Ping},
		{Name: "secret_store", Critical: true, Ping: a.secrets.Ping},
		{Name: "face"},
	}
	if fc != nil {
		checks[2].Ping = fc.Ping
	}
	return checks
}

func (a *App) pgPool() *pgxpool.Pool {
	if st, ok := a.store.(*pg.Store); ok {
		return st.Pool()
	}
	return nil
}

// Close libera stores y clientes en orden inverso al de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// WebhookRedisOpt es la conexión asynq compartida por cliente y worker.
func WebhookRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Webhooks.RedisAddr,
		Password: cfg.Webhooks.Password,
		DB:       cfg.Webhooks.RedisDB,
	}
}

func buildProviders(cfg *config.Config) *oauth.Registry {
	var ps []oauth.Provider
	if g := cfg.OAuth.Google; g.Enabled {
		ps = append(ps, google.New(google.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			RedirectURL:  g.RedirectURL,
			Scopes:       g.Scopes,
		}))
	}
	if gh := cfg.OAuth.GitHub; gh.Enabled {
		ps = append(ps, github.New(github.Config{
			ClientID:     gh.ClientID,
			ClientSecret: gh.ClientSecret,
			RedirectURL:  gh.RedirectURL,
			Scopes:       gh.Scopes,
		}))
	}
	return oauth.NewRegistry(ps...)
}
