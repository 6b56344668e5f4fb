// Package secretstore es el key-value con TTL para secretos efímeros:
// códigos OTP, challenges WebAuthn y contadores de rate limit.
//
// Todas las primitivas de un solo uso (Take, CompareAndDelete) son atómicas
// en ambos drivers; el resto del sistema depende de eso para garantizar
// redención exactly-once bajo concurrencia.
package secretstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound indica que la clave no existe o expiró.
var ErrNotFound = errors.New("secretstore: key not found")

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store define las operaciones del Secret Store.
type Store interface {
	// Set guarda value con TTL, pisando cualquier valor anterior.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get lee sin consumir. ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Take lee y borra atómicamente (GETDEL). Solo un caller obtiene el valor.
	Take(ctx context.Context, key string) (string, error)

	// CompareAndDelete borra key solo si su valor es expected.
	// Reporta true únicamente al caller que efectivamente borró.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)

	Delete(ctx context.Context, key string) error

	// Incr incrementa un contador; el TTL se fija en el primer incremento.
	// Devuelve el valor nuevo y el TTL restante de la ventana.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)

	Ping(ctx context.Context) error
	Close() error
}

// Config configura el driver.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New crea el store según cfg.Driver.
func New(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemory(cfg.Prefix), nil
	case "redis":
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("secretstore: unknown driver %q", cfg.Driver)
	}
}

// Claves del espacio efímero.
func OTPKey(identifier string) string        { return "otp:" + identifier }
func OTPFailKey(identifier string) string    { return "otpfail:" + identifier }
func ChallengeKey(endUserID string) string   { return "challenge:" + endUserID }
func AuthRequestKey(requestID string) string { return "authReq:" + requestID }
