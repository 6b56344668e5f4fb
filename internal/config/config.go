package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix antecede a todas las variables de entorno (IZZU_SERVER_ADDR, ...).
const EnvPrefix = "IZZU_"

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env" env:"ENV"`
		Name     string `yaml:"name" env:"NAME"`
		LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
		// URL pública de la consola; destino de los redirects OAuth.
		ConsoleURL string `yaml:"console_url" env:"CONSOLE_URL"`
	} `yaml:"app" envPrefix:"APP_"`

	Server struct {
		Addr               string        `yaml:"addr" env:"ADDR"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
		ReadTimeout        time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
		WriteTimeout       time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
		MaxUploadBytes     int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	} `yaml:"server" envPrefix:"SERVER_"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver" env:"DRIVER"`
		DSN      string `yaml:"dsn" env:"DSN"`
		Postgres struct {
			MaxConns        int           `yaml:"max_conns" env:"MAX_CONNS"`
			MinConns        int           `yaml:"min_conns" env:"MIN_CONNS"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
		} `yaml:"postgres" envPrefix:"POSTGRES_"`
		// Aplica migraciones pendientes al arrancar.
		AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
	} `yaml:"storage" envPrefix:"STORAGE_"`

	SecretStore struct {
		// memory | redis
		Driver   string `yaml:"driver" env:"DRIVER"`
		Addr     string `yaml:"addr" env:"ADDR"`
		Password string `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB"`
		Prefix   string `yaml:"prefix" env:"PREFIX"`
	} `yaml:"secret_store" envPrefix:"SECRET_STORE_"`

	OTP struct {
		TTL         time.Duration `yaml:"ttl" env:"TTL"`
		Digits      int           `yaml:"digits" env:"DIGITS"`
		MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
		// Devuelve el código en la respuesta en vez de enviarlo. Nunca en prod.
		DevMode    bool          `yaml:"dev_mode" env:"DEV_MODE"`
		SendLimit  int           `yaml:"send_limit" env:"SEND_LIMIT"`
		SendWindow time.Duration `yaml:"send_window" env:"SEND_WINDOW"`
	} `yaml:"otp" envPrefix:"OTP_"`

	Passkey struct {
		RPID          string        `yaml:"rp_id" env:"RP_ID"`
		RPDisplayName string        `yaml:"rp_display_name" env:"RP_DISPLAY_NAME"`
		RPOrigins     []string      `yaml:"rp_origins" env:"RP_ORIGINS" envSeparator:","`
		ChallengeTTL  time.Duration `yaml:"challenge_ttl" env:"CHALLENGE_TTL"`
	} `yaml:"passkey" envPrefix:"PASSKEY_"`

	Session struct {
		TTL          time.Duration `yaml:"ttl" env:"TTL"`
		CookieName   string        `yaml:"cookie_name" env:"COOKIE_NAME"`
		CookieDomain string        `yaml:"cookie_domain" env:"COOKIE_DOMAIN"`
		CookieSecure bool          `yaml:"cookie_secure" env:"COOKIE_SECURE"`
		// Lax | Strict | None
		SameSite string `yaml:"samesite" env:"SAMESITE"`
	} `yaml:"session" envPrefix:"SESSION_"`

	Face struct {
		// vacío => endpoints de rostro devuelven "disabled"
		BaseURL string        `yaml:"base_url" env:"BASE_URL"`
		Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	} `yaml:"face" envPrefix:"FACE_"`

	OAuth struct {
		// HMAC de los state tokens.
		StateSecret string `yaml:"state_secret" env:"STATE_SECRET"`
		Google      struct {
			Enabled      bool     `yaml:"enabled" env:"ENABLED"`
			ClientID     string   `yaml:"client_id" env:"CLIENT_ID"`
			ClientSecret string   `yaml:"client_secret" env:"CLIENT_SECRET"`
			RedirectURL  string   `yaml:"redirect_url" env:"REDIRECT_URL"`
			Scopes       []string `yaml:"scopes" env:"SCOPES" envSeparator:","`
		} `yaml:"google" envPrefix:"GOOGLE_"`
		GitHub struct {
			Enabled      bool     `yaml:"enabled" env:"ENABLED"`
			ClientID     string   `yaml:"client_id" env:"CLIENT_ID"`
			ClientSecret string   `yaml:"client_secret" env:"CLIENT_SECRET"`
			RedirectURL  string   `yaml:"redirect_url" env:"REDIRECT_URL"`
			Scopes       []string `yaml:"scopes" env:"SCOPES" envSeparator:","`
		} `yaml:"github" envPrefix:"GITHUB_"`
	} `yaml:"oauth" envPrefix:"OAUTH_"`

	Rate struct {
		Enabled bool  `yaml:"enabled" env:"ENABLED"`
		SDK     Limit `yaml:"sdk" envPrefix:"SDK_"`
		OTP     Limit `yaml:"otp" envPrefix:"OTP_"`
		Admin   Limit `yaml:"admin" envPrefix:"ADMIN_"`
	} `yaml:"rate" envPrefix:"RATE_"`

	SMTP struct {
		Host               string `yaml:"host" env:"HOST"`
		Port               int    `yaml:"port" env:"PORT"`
		Username           string `yaml:"username" env:"USERNAME"`
		Password           string `yaml:"password" env:"PASSWORD"`
		From               string `yaml:"from" env:"FROM"`
		TLS                string `yaml:"tls" env:"TLS"`                                   // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify" env:"INSECURE_SKIP_VERIFY"` // sólo dev
	} `yaml:"smtp" envPrefix:"SMTP_"`

	Webhooks struct {
		Enabled     bool   `yaml:"enabled" env:"ENABLED"`
		RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR"`
		RedisDB     int    `yaml:"redis_db" env:"REDIS_DB"`
		Password    string `yaml:"redis_password" env:"REDIS_PASSWORD"`
		Concurrency int    `yaml:"concurrency" env:"CONCURRENCY"`
	} `yaml:"webhooks" envPrefix:"WEBHOOKS_"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length" env:"MIN_LENGTH"`
			RequireUpper  bool `yaml:"require_upper" env:"REQUIRE_UPPER"`
			RequireLower  bool `yaml:"require_lower" env:"REQUIRE_LOWER"`
			RequireDigit  bool `yaml:"require_digit" env:"REQUIRE_DIGIT"`
			RequireSymbol bool `yaml:"require_symbol" env:"REQUIRE_SYMBOL"`
		} `yaml:"password_policy" envPrefix:"PASSWORD_POLICY_"`
		PasswordBlacklistPath string `yaml:"password_blacklist_path" env:"PASSWORD_BLACKLIST_PATH"`
	} `yaml:"security" envPrefix:"SECURITY_"`

	Platform struct {
		// Proyecto donde se reflejan los admins como end users; vacío desactiva.
		ProjectID string `yaml:"project_id" env:"PROJECT_ID"`
	} `yaml:"platform" envPrefix:"PLATFORM_"`
}

// Limit es un par limit/window de rate limiting.
type Limit struct {
	Limit  int           `yaml:"limit" env:"LIMIT"`
	Window time.Duration `yaml:"window" env:"WINDOW"`
}

// IsProd indica entorno productivo.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

// Load lee el YAML (si path no es vacío), aplica defaults, pisa con variables
// IZZU_* y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	c.applyDefaults()

	if err := env.ParseWithOptions(&c, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))

	// Guardia dura: en prod nunca devolvemos códigos OTP en la respuesta.
	if c.IsProd() {
		c.OTP.DevMode = false
	}

	// Normalizar ruta de blacklist (si relativa) respecto al directorio del YAML
	if p := strings.TrimSpace(c.Security.PasswordBlacklistPath); p != "" && path != "" && !filepath.IsAbs(p) {
		c.Security.PasswordBlacklistPath = filepath.Clean(filepath.Join(filepath.Dir(path), p))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "izzu"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.ConsoleURL == "" {
		c.App.ConsoleURL = "http://localhost:3000"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.SecretStore.Driver == "" {
		c.SecretStore.Driver = "memory"
	}
	if c.SecretStore.Prefix == "" {
		c.SecretStore.Prefix = "izzu:"
	}

	if c.OTP.TTL == 0 {
		c.OTP.TTL = 300 * time.Second
	}
	if c.OTP.Digits == 0 {
		c.OTP.Digits = 6
	}
	if c.OTP.MaxAttempts == 0 {
		c.OTP.MaxAttempts = 5
	}
	if c.OTP.SendLimit == 0 {
		c.OTP.SendLimit = 5
	}
	if c.OTP.SendWindow == 0 {
		c.OTP.SendWindow = 10 * time.Minute
	}

	if c.Passkey.RPID == "" {
		c.Passkey.RPID = "localhost"
	}
	if c.Passkey.RPDisplayName == "" {
		c.Passkey.RPDisplayName = "izzu"
	}
	if len(c.Passkey.RPOrigins) == 0 {
		c.Passkey.RPOrigins = []string{"http://localhost:3000"}
	}
	if c.Passkey.ChallengeTTL == 0 {
		c.Passkey.ChallengeTTL = 300 * time.Second
	}

	if c.Session.TTL == 0 {
		c.Session.TTL = 30 * 24 * time.Hour
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "izzu_admin_session"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "Lax"
	}

	if c.Face.Timeout == 0 {
		c.Face.Timeout = 15 * time.Second
	}

	if len(c.OAuth.Google.Scopes) == 0 {
		c.OAuth.Google.Scopes = []string{"openid", "email", "profile"}
	}
	if len(c.OAuth.GitHub.Scopes) == 0 {
		c.OAuth.GitHub.Scopes = []string{"read:user", "user:email"}
	}

	defLimit(&c.Rate.SDK, 120, time.Minute)
	defLimit(&c.Rate.OTP, 10, time.Minute)
	defLimit(&c.Rate.Admin, 60, time.Minute)

	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}

	if c.Webhooks.Concurrency == 0 {
		c.Webhooks.Concurrency = 10
	}

	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 8
	}
}

func defLimit(l *Limit, limit int, window time.Duration) {
	if l.Limit == 0 {
		l.Limit = limit
	}
	if l.Window == 0 {
		l.Window = window
	}
}

// Validate revisa combinaciones que romperían el arranque o la seguridad.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.Env {
	case "dev", "staging", "prod":
	default:
		errs = append(errs, fmt.Errorf("app.env must be dev|staging|prod, got %q", c.App.Env))
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
		if c.IsProd() {
			errs = append(errs, errors.New("storage.driver=memory is not allowed in prod"))
		}
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be memory|postgres, got %q", c.Storage.Driver))
	}

	switch strings.ToLower(c.SecretStore.Driver) {
	case "memory":
	case "redis":
		if c.SecretStore.Addr == "" {
			errs = append(errs, errors.New("secret_store.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("secret_store.driver must be memory|redis, got %q", c.SecretStore.Driver))
	}

	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		errs = append(errs, fmt.Errorf("otp.digits out of range: %d", c.OTP.Digits))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	for _, o := range c.Passkey.RPOrigins {
		if u, err := url.Parse(o); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("passkey.rp_origins: invalid origin %q", o))
		}
	}
	if c.Face.BaseURL != "" {
		if u, err := url.Parse(c.Face.BaseURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("face.base_url: invalid url %q", c.Face.BaseURL))
		}
	}

	oauthOn := c.OAuth.Google.Enabled || c.OAuth.GitHub.Enabled
	if oauthOn && len(c.OAuth.StateSecret) < 32 {
		errs = append(errs, errors.New("oauth.state_secret must be at least 32 bytes when a provider is enabled"))
	}
	if c.OAuth.Google.Enabled && (c.OAuth.Google.ClientID == "" || c.OAuth.Google.ClientSecret == "") {
		errs = append(errs, errors.New("oauth.google: client_id and client_secret are required"))
	}
	if c.OAuth.GitHub.Enabled && (c.OAuth.GitHub.ClientID == "" || c.OAuth.GitHub.ClientSecret == "") {
		errs = append(errs, errors.New("oauth.github: client_id and client_secret are required"))
	}

	if c.Rate.Enabled {
		for name, l := range map[string]Limit{"sdk": c.Rate.SDK, "otp": c.Rate.OTP, "admin": c.Rate.Admin} {
			if l.Limit <= 0 || l.Window <= 0 {
				errs = append(errs, fmt.Errorf("rate.%s: limit and window must be positive", name))
			}
		}
	}

	if c.Webhooks.Enabled && c.Webhooks.RedisAddr == "" {
		errs = append(errs, errors.New("webhooks.redis_addr is required when webhooks are enabled"))
	}

	switch strings.ToLower(c.SMTP.TLS) {
	case "auto", "starttls", "ssl", "none":
	default:
		errs = append(errs, fmt.Errorf("smtp.tls must be auto|starttls|ssl|none, got %q", c.SMTP.TLS))
	}

	return errors.Join(errs...)
}
