// Command migrate brings the risk_assessments schema up to date.
//
// The database comes from database.url in riskd.yaml, overridable with
// DATABASE_URL, so riskd and migrate always agree on the target. Applied
// versions are tracked in schema_migrations (version + dirty), the layout
// golang-migrate uses.
//
//	migrate [--config configs/riskd.yaml]
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nabahah/riskscore/internal/config"
	"github.com/nabahah/riskscore/migrations"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "path to riskd.yaml (default: configs/riskd.yaml or ./riskd.yaml)")
	pflag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if cfg.Log.Development {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg.Storage.DatabaseURL, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
}

func run(ctx context.Context, dbURL string, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	steps, err := loadSteps(migrations.FS)
	if err != nil {
		return err
	}

	m := &migrator{pool: pool, logger: logger}
	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	var count int
	for _, s := range steps {
		if applied[s.version] {
			logger.Debug("migration already applied", zap.String("file", s.name))
			continue
		}
		if err := m.apply(ctx, s); err != nil {
			return err
		}
		logger.Info("migration applied", zap.String("file", s.name), zap.Int64("version", s.version))
		count++
	}

	logger.Info("schema up to date", zap.Int("applied", count), zap.Int("known", len(steps)))
	return nil
}

// step is one embedded up-migration.
type step struct {
	version int64
	name    string
	sql     string
}

// loadSteps reads every *.up.sql file of fsys, ordered by version.
func loadSteps(fsys fs.FS) ([]step, error) {
	names, err := migrationFiles(fsys)
	if err != nil {
		return nil, err
	}
	steps := make([]step, 0, len(names))
	seen := make(map[int64]string, len(names))
	for _, name := range names {
		v, err := versionFromFile(name)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", name, err)
		}
		if prev, dup := seen[v]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, v)
		}
		seen[v] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		steps = append(steps, step{version: v, name: name, sql: string(body)})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

// migrationFiles lists the *.up.sql files of fsys in lexical order.
func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// versionFromFile parses the numeric prefix of "<version>_<name>.up.sql".
func versionFromFile(filename string) (int64, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("%q has no <version>_ prefix", filename)
	}
	return strconv.ParseInt(prefix, 10, 64)
}

type migrator struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func (m *migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT  NOT NULL PRIMARY KEY,
			dirty   BOOLEAN NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// appliedVersions returns the clean versions. A dirty row means an earlier
// run died mid-migration and needs a human.
func (m *migrator) appliedVersions(ctx context.Context) (map[int64]bool, error) {
	rows, err := m.pool.Query(ctx, `SELECT version, dirty FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var (
			v     int64
			dirty bool
		)
		if err := rows.Scan(&v, &dirty); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		if dirty {
			return nil, fmt.Errorf("version %d is marked dirty; fix the schema and clear the flag", v)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// apply runs one step and records its version in the same transaction, so a
// failure leaves neither the schema change nor the version row behind.
func (m *migrator) apply(ctx context.Context, s step) error {
	err := pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, s.sql); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, dirty) VALUES ($1, false)`, s.version)
		return err
	})
	if err != nil {
		return fmt.Errorf("apply %s: %w", s.name, err)
	}
	return nil
}
