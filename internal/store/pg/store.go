// Package pg implementa el Credential Repository sobre PostgreSQL (pgx v5).
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/observability/logger"
)

// Config ajusta el pool. Los ceros usan los defaults de abajo.
type Config struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

const (
	defaultMaxConns = 10
	maxMaxConns     = 50
)

// Store guarda el pool compartido por todos los repositorios.
type Store struct{ pool *pgxpool.Pool }

var _ repository.Store = (*Store)(nil)

// New abre el pool. Un ping fallido al arrancar solo se loguea: el proceso
// puede levantar con la base caída y /readyz lo reporta.
func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = defaultMaxConns
	}
	if pcfg.MaxConns > maxMaxConns {
		pcfg.MaxConns = maxMaxConns
	}
	if pcfg.MinConns > pcfg.MaxConns {
		pcfg.MinConns = pcfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	log := logger.L().With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg_pool_startup_ping_failed", logger.Err(err))
	} else {
		log.Info("pg_pool_ready", zap.Int32("max_conns", pcfg.MaxConns))
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (metrics/migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Ping verifica conectividad.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Repositories implementa repository.Store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Tenants:    &tenantRepo{pool: s.pool},
		Admins:     &adminRepo{pool: s.pool},
		Projects:   &projectRepo{pool: s.pool},
		APIKeys:    &apiKeyRepo{pool: s.pool},
		EndUsers:   &endUserRepo{pool: s.pool},
		Identities: &identityRepo{pool: s.pool},
		Passkeys:   &passkeyRepo{pool: s.pool},
		Sessions:   &sessionRepo{pool: s.pool},
		Audit:      &auditRepo{pool: s.pool},
		Webhooks:   &webhookRepo{pool: s.pool},
	}
}

// Códigos SQLSTATE que traducimos a errores de dominio.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// mapErr traduce errores de pgx a los sentinels del repositorio.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return repository.ErrConflict
		case codeForeignKeyViolation, codeInvalidText:
			// referencia inexistente o uuid mal formado: para el llamador es "no existe"
			return repository.ErrNotFound
		}
	}
	return err
}

// rowScanner cubre pgx.Row y pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toLocation(lat, lng *float64) *repository.Location {
	if lat == nil || lng == nil {
		return nil
	}
	return &repository.Location{Lat: *lat, Lng: *lng}
}

func locArgs(l *repository.Location) (lat, lng *float64) {
	if l == nil {
		return nil, nil
	}
	a, b := l.Lat, l.Lng
	return &a, &b
}
