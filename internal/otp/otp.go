// Package otp emite y redime códigos de un solo uso de 6 dígitos.
//
// Un código vive en el Secret Store bajo otp:<identifier> durante TTL. Emitir
// uno nuevo pisa el anterior. La redención es atómica (compare-and-delete):
// ante N verificaciones concurrentes con el código correcto, exactamente una
// gana. Los intentos fallidos se cuentan en otpfail:<identifier> y al llegar
// a MaxAttempts el código vivo se quema.
package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/izzu/internal/observability/logger"
	"github.com/dropDatabas3/izzu/internal/observability/metrics"
	"github.com/dropDatabas3/izzu/internal/rate"
	"github.com/dropDatabas3/izzu/internal/secretstore"
	"github.com/dropDatabas3/izzu/internal/security/token"
)

var (
	ErrInvalidIdentifier  = errors.New("otp: invalid identifier")
	ErrUnsupportedChannel = errors.New("otp: unsupported channel")
	ErrRateLimited        = errors.New("otp: too many requests")
	ErrDelivery           = errors.New("otp: delivery failed")
	// ErrUnavailable: el Secret Store no respondió. Nunca se reporta como código inválido.
	ErrUnavailable = errors.New("otp: secret store unavailable")
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Dispatcher entrega el código por un canal (email, sms).
type Dispatcher interface {
	Deliver(ctx context.Context, to, code string, ttl time.Duration) error
}

// Config del servicio.
type Config struct {
	TTL         time.Duration // default 300s
	Digits      int           // default 6
	MaxAttempts int           // default 5
	// DevMode devuelve el código en la respuesta en lugar de entregarlo.
	DevMode bool
	// SendLimit por identificador y ventana; 0 desactiva.
	SendLimit  int
	SendWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 300 * time.Second
	}
	if c.Digits <= 0 {
		c.Digits = 6
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.SendWindow <= 0 {
		c.SendWindow = 10 * time.Minute
	}
	return c
}

// Issued es el resultado de Issue. Code solo viene poblado en DevMode.
type Issued struct {
	Identifier string
	Code       string
	ExpiresAt  time.Time
	DevMode    bool
}

type Service interface {
	Issue(ctx context.Context, identifier string, ch Channel) (*Issued, error)
	// Redeem devuelve true como mucho una vez por código emitido.
	Redeem(ctx context.Context, identifier, code string) (bool, error)
}

type service struct {
	cfg         Config
	store       secretstore.Store
	dispatchers map[Channel]Dispatcher
	limiter     rate.MultiLimiter
	now         func() time.Time
}

// Option configura el servicio.
type Option func(*service)

func WithDispatcher(ch Channel, d Dispatcher) Option {
	return func(s *service) { s.dispatchers[ch] = d }
}

func WithLimiter(l rate.MultiLimiter) Option {
	return func(s *service) { s.limiter = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(store secretstore.Store, cfg Config, opts ...Option) Service {
	s := &service{
		cfg:         cfg.withDefaults(),
		store:       store,
		dispatchers: map[Channel]Dispatcher{},
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Normalize: emails en minúsculas sin espacios en los extremos; teléfonos sin
// ningún espacio. El mismo identificador siempre produce la misma clave.
func Normalize(identifier string) string {
	id := strings.TrimSpace(identifier)
	if strings.Contains(id, "@") {
		return strings.ToLower(id)
	}
	return strings.Join(strings.Fields(id), "")
}

func (s *service) Issue(ctx context.Context, identifier string, ch Channel) (*Issued, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("otp.Issue"))

	id := Normalize(identifier)
	if id == "" {
		return nil, ErrInvalidIdentifier
	}
	if ch == "" {
		ch = ChannelEmail
	}
	if ch != ChannelEmail && ch != ChannelSMS {
		return nil, ErrUnsupportedChannel
	}

	var dispatcher Dispatcher
	if !s.cfg.DevMode {
		dispatcher = s.dispatchers[ch]
		if dispatcher == nil {
			return nil, ErrUnsupportedChannel
		}
	}

	if s.limiter != nil && s.cfg.SendLimit > 0 {
		res, err := s.limiter.AllowWithLimits(ctx, "otp:"+id, s.cfg.SendLimit, s.cfg.SendWindow)
		if err != nil {
			log.Error("rate limiter failed", logger.Err(err))
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !res.Allowed {
			metrics.OTP("issue", "rate_limited")
			return nil, ErrRateLimited
		}
	}

	code, err := token.RandomDigits(s.cfg.Digits)
	if err != nil {
		return nil, fmt.Errorf("otp: generate code: %w", err)
	}

	if err := s.store.Set(ctx, secretstore.OTPKey(id), code, s.cfg.TTL); err != nil {
		metrics.OTP("issue", "unavailable")
		log.Error("store otp failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// un código nuevo arranca sin intentos fallidos
	if err := s.store.Delete(ctx, secretstore.OTPFailKey(id)); err != nil {
		log.Warn("reset otp failures failed", logger.Err(err))
	}

	out := &Issued{Identifier: id, ExpiresAt: s.now().Add(s.cfg.TTL)}
	if s.cfg.DevMode {
		log.Debug("otp issued in dev mode")
		out.Code = code
		out.DevMode = true
		metrics.OTP("issue", "dev")
		return out, nil
	}

	if err := dispatcher.Deliver(ctx, id, code, s.cfg.TTL); err != nil {
		metrics.OTP("issue", "delivery_failed")
		return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	metrics.OTP("issue", "sent")
	return out, nil
}

func (s *service) Redeem(ctx context.Context, identifier, code string) (bool, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("otp.Redeem"))

	id := Normalize(identifier)
	code = strings.TrimSpace(code)
	if id == "" || code == "" {
		metrics.OTP("redeem", "invalid")
		return false, nil
	}

	key := secretstore.OTPKey(id)
	stored, err := s.store.Get(ctx, key)
	if secretstore.IsNotFound(err) {
		metrics.OTP("redeem", "invalid")
		return false, nil
	}
	if err != nil {
		metrics.OTP("redeem", "unavailable")
		log.Error("read otp failed", logger.Err(err))
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		s.recordFailure(ctx, id, stored)
		metrics.OTP("redeem", "invalid")
		return false, nil
	}

	won, err := s.store.CompareAndDelete(ctx, key, stored)
	if err != nil {
		metrics.OTP("redeem", "unavailable")
		log.Error("consume otp failed", logger.Err(err))
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !won {
		// otro request ya lo consumió
		metrics.OTP("redeem", "replay")
		return false, nil
	}
	_ = s.store.Delete(ctx, secretstore.OTPFailKey(id))
	metrics.OTP("redeem", "ok")
	return true, nil
}

// recordFailure cuenta el intento y quema el código al llegar al máximo.
func (s *service) recordFailure(ctx context.Context, id, stored string) {
	n, _, err := s.store.Incr(ctx, secretstore.OTPFailKey(id), s.cfg.TTL)
	if err != nil {
		logger.From(ctx).Warn("count otp failure failed", logger.Op("otp.Redeem"), logger.Err(err))
		return
	}
	if n >= int64(s.cfg.MaxAttempts) {
		// solo quema el código que falló, no uno emitido después
		_, _ = s.store.CompareAndDelete(ctx, secretstore.OTPKey(id), stored)
		_ = s.store.Delete(ctx, secretstore.OTPFailKey(id))
		metrics.OTP("redeem", "locked")
	}
}
