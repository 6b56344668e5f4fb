package pg

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/izzu/internal/observability/logger"
)

// Formato de archivo: {version}_{name}_{up|down}.sql (ej: 0001_init_up.sql)
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)_(up|down)\.sql$`)

// Migration es una versión con su SQL de subida y bajada.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// MigrationResult resume una corrida.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// Migrator aplica migraciones embebidas, registrando las versiones en _migrations.
type Migrator struct {
	fsys fs.FS
	dir  string
}

func NewMigrator(fsys fs.FS, dir string) *Migrator {
	return &Migrator{fsys: fsys, dir: dir}
}

// ParseMigrations lee el FS y agrupa up/down por versión, ordenadas ascendente.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, err
	}
	byVersion := map[int]*Migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := migrationFilePattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue // ignorar archivos que no coinciden
		}
		version, _ := strconv.Atoi(match[1])
		content, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: match[2]}
			byVersion[version] = mig
		} else if mig.Name != match[2] {
			return nil, fmt.Errorf("migration %d has conflicting names %q and %q", version, mig.Name, match[2])
		}
		if match[3] == "up" {
			mig.Up = string(content)
		} else {
			mig.Down = string(content)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.Up == "" {
			return nil, fmt.Errorf("migration %d_%s has no up file", mig.Version, mig.Name)
		}
		out = append(out, *mig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS _migrations (
		version INT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

func (m *Migrator) applied(ctx context.Context, s *Store) (map[int]bool, error) {
	if _, err := s.pool.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}
	rows, err := s.pool.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

// Up aplica las migraciones pendientes, cada una en su propia transacción.
func (m *Migrator) Up(ctx context.Context, s *Store) (*MigrationResult, error) {
	start := time.Now()
	log := logger.From(ctx).With(logger.Component("store.pg"), logger.Op("migrate.up"))

	migs, err := m.ParseMigrations()
	if err != nil {
		return nil, err
	}
	done, err := m.applied(ctx, s)
	if err != nil {
		return nil, err
	}

	res := &MigrationResult{}
	for _, mig := range migs {
		if done[mig.Version] {
			res.Skipped = append(res.Skipped, mig.Version)
			continue
		}
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return res, fmt.Errorf("applying migration %d_%s: %w", mig.Version, mig.Name, err)
		}
		log.Info("migration applied", zap.Int("version", mig.Version), zap.String("name", mig.Name))
		res.Applied = append(res.Applied, mig.Version)
	}
	res.Duration = time.Since(start)
	return res, nil
}

// Down revierte las últimas `steps` migraciones aplicadas (steps<=0 revierte una).
func (m *Migrator) Down(ctx context.Context, s *Store, steps int) (*MigrationResult, error) {
	start := time.Now()
	if steps <= 0 {
		steps = 1
	}
	log := logger.From(ctx).With(logger.Component("store.pg"), logger.Op("migrate.down"))

	migs, err := m.ParseMigrations()
	if err != nil {
		return nil, err
	}
	done, err := m.applied(ctx, s)
	if err != nil {
		return nil, err
	}

	res := &MigrationResult{}
	for i := len(migs) - 1; i >= 0 && len(res.Applied) < steps; i-- {
		mig := migs[i]
		if !done[mig.Version] {
			continue
		}
		if mig.Down == "" {
			return res, fmt.Errorf("migration %d_%s has no down file", mig.Version, mig.Name)
		}
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.Down); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `DELETE FROM _migrations WHERE version = $1`, mig.Version)
			return err
		})
		if err != nil {
			return res, fmt.Errorf("reverting migration %d_%s: %w", mig.Version, mig.Name, err)
		}
		log.Info("migration reverted", zap.Int("version", mig.Version), zap.String("name", mig.Name))
		res.Applied = append(res.Applied, mig.Version)
	}
	res.Duration = time.Since(start)
	return res, nil
}
