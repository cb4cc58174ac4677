package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

const (
	migrationsDir = "sql/migrations"

	// Ключ advisory-lock: миграции из нескольких реплик не должны пересекаться.
	migrationLockID = int64(407211986)

	migrationLockTimeout = 5 * time.Second

	versionsTableDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

// migration — пара up/down скриптов одной версии схемы.
type migration struct {
	version int64
	name    string
	up      string
	down    string
}

func (m migration) label() string {
	return fmt.Sprintf("%d_%s", m.version, m.name)
}

// MigrateUp применяет недостающие up-миграции по порядку версий.
// steps=0 применяет все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.withMigrationLock(ctx, func(conn *sql.Conn) error {
		migrations, err := loadMigrations(migrationsFS)
		if err != nil {
			return err
		}

		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}

		done := 0
		for _, m := range migrations {
			if applied[m.version] {
				continue
			}
			if steps > 0 && done >= steps {
				break
			}
			if err := runMigrationTx(ctx, conn, m.up,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				m.label(), m.version, m.name); err != nil {
				return err
			}
			done++
		}
		return nil
	})
}

// MigrateDown откатывает последние применённые миграции в обратном порядке.
// steps<=0 откатывает один шаг.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}

	return s.withMigrationLock(ctx, func(conn *sql.Conn) error {
		migrations, err := loadMigrations(migrationsFS)
		if err != nil {
			return err
		}
		byVersion := make(map[int64]migration, len(migrations))
		for _, m := range migrations {
			byVersion[m.version] = m
		}

		tail, err := appliedTail(ctx, conn, steps)
		if err != nil {
			return err
		}

		for _, version := range tail {
			m, ok := byVersion[version]
			if !ok {
				return fmt.Errorf("applied version %d has no migration file to roll back", version)
			}
			if err := runMigrationTx(ctx, conn, m.down,
				`DELETE FROM schema_migrations WHERE version = $1`,
				m.label(), m.version); err != nil {
				return err
			}
		}
		return nil
	})
}

// MigrationStatus возвращает максимальную применённую версию и число
// применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	if s == nil || s.db == nil {
		return 0, 0, ErrStoreClosed
	}

	queryCtx, cancel := context.WithTimeout(ctx, migrationLockTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(queryCtx, versionsTableDDL); err != nil {
		return 0, 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}

	var (
		version int64
		count   int
	)
	err := s.db.QueryRowContext(queryCtx,
		`SELECT COALESCE(MAX(version), 0), COUNT(*) FROM schema_migrations`,
	).Scan(&version, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("query schema_migrations: %w", err)
	}
	return version, count, nil
}

// withMigrationLock выполняет fn на выделенном соединении под advisory-lock.
// Lock сессионный, поэтому и lock, и вся работа идут через одно соединение.
func (s *Store) withMigrationLock(ctx context.Context, fn func(*sql.Conn) error) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, migrationLockTimeout)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	if _, err := conn.ExecContext(ctx, versionsTableDDL); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	return fn(conn)
}

// runMigrationTx выполняет скрипт миграции и запись в schema_migrations
// одной транзакцией: версия отмечена тогда и только тогда, когда скрипт прошёл.
func runMigrationTx(ctx context.Context, conn *sql.Conn, script, bookkeeping, label string, args ...any) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", label, err)
	}

	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("run migration %s: %w", label, err)
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", label, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", label, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int64]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[int64]bool)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied version: %w", err)
		}
		versions[version] = true
	}
	return versions, rows.Err()
}

func appliedTail(ctx context.Context, conn *sql.Conn, limit int) ([]int64, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query applied tail: %w", err)
	}
	defer rows.Close()

	versions := make([]int64, 0, limit)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied tail: %w", err)
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

// parseMigrationFile разбирает имя вида 0001_init.up.sql.
func parseMigrationFile(base string) (version int64, name string, up bool, err error) {
	stem := base
	switch {
	case strings.HasSuffix(base, ".up.sql"):
		up = true
		stem = strings.TrimSuffix(base, ".up.sql")
	case strings.HasSuffix(base, ".down.sql"):
		stem = strings.TrimSuffix(base, ".down.sql")
	default:
		return 0, "", false, fmt.Errorf("migration file %s must end with .up.sql or .down.sql", base)
	}

	digits, rest, ok := strings.Cut(stem, "_")
	if !ok || rest == "" {
		return 0, "", false, fmt.Errorf("migration file %s must be named <version>_<name>", base)
	}
	version, parseErr := strconv.ParseInt(digits, 10, 64)
	if parseErr != nil || version <= 0 {
		return 0, "", false, fmt.Errorf("migration file %s has invalid version %q", base, digits)
	}
	return version, rest, up, nil
}

// loadMigrations читает все миграции из fsys и проверяет, что у каждой
// версии есть непустые up- и down-скрипты.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.Glob(fsys, path.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("no migration files embedded")
	}

	byVersion := make(map[int64]*migration)
	for _, entry := range entries {
		base := path.Base(entry)
		version, name, up, err := parseMigrationFile(base)
		if err != nil {
			return nil, err
		}

		raw, err := fs.ReadFile(fsys, entry)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry, err)
		}
		script := strings.TrimSpace(string(raw))
		if script == "" {
			return nil, fmt.Errorf("migration %s is empty", base)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{version: version, name: name}
			byVersion[version] = m
		}
		if m.name != name {
			return nil, fmt.Errorf("version %d maps to two names: %s and %s", version, m.name, name)
		}

		if up {
			if m.up != "" {
				return nil, fmt.Errorf("duplicate up script for version %d", version)
			}
			m.up = script
		} else {
			if m.down != "" {
				return nil, fmt.Errorf("duplicate down script for version %d", version)
			}
			m.down = script
		}
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" || m.down == "" {
			return nil, fmt.Errorf("migration %s needs both up and down scripts", m.label())
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })

	return migrations, nil
}
