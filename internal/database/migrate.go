package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultMigrationLockID is the pg_advisory_lock key held while migrations run.
const DefaultMigrationLockID int64 = 0x646f72616e

// Migrator defines an interface capable of applying schema migrations.
type Migrator interface {
	Up(ctx context.Context) error
}

// SQLMigrator executes .sql migration files against a database connection.
// Every statement is expected to be idempotent; there is no version table
// and all files are re-applied on each run. Each file runs in its own
// transaction, and replicas starting together serialize on LockID.
type SQLMigrator struct {
	Logger zerolog.Logger
	DB     *sql.DB
	FS     fs.FS
	Path   string
	// LockID of zero disables the advisory lock.
	LockID int64
}

// NewSQLMigrator builds a migrator that runs SQL statements from the provided filesystem.
func NewSQLMigrator(db *sql.DB, f fs.FS, dir string, logger zerolog.Logger) *SQLMigrator {
	return &SQLMigrator{DB: db, FS: f, Path: dir, Logger: logger, LockID: DefaultMigrationLockID}
}

type migrationFile struct {
	name       string
	statements []string
}

// Up executes all *.up.sql files in lexical order.
func (m *SQLMigrator) Up(ctx context.Context) error {
	if m == nil {
		return errors.New("sql migrator is nil")
	}
	if m.DB == nil {
		return errors.New("sql migrator requires a database handle")
	}
	if m.FS == nil {
		return errors.New("sql migrator requires a filesystem")
	}
	if m.Path == "" {
		return errors.New("sql migrator requires a path")
	}

	files, err := m.load()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		m.Logger.Info().Msg("no migrations to run")
		return nil
	}

	conn, err := m.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	if m.LockID != 0 {
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", m.LockID); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		defer func() {
			if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", m.LockID); err != nil {
				m.Logger.Warn().Err(err).Int64("lock_id", m.LockID).Msg("release migration lock failed")
			}
		}()
	}

	for _, f := range files {
		if err := m.apply(ctx, conn, f); err != nil {
			return err
		}
		m.Logger.Info().Str("file", f.name).Int("statements", len(f.statements)).Msg("migration applied")
	}
	return nil
}

func (m *SQLMigrator) load() ([]migrationFile, error) {
	entries, err := fs.ReadDir(m.FS, m.Path)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var files []migrationFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		contents, err := fs.ReadFile(m.FS, path.Join(m.Path, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		statements := splitSQLStatements(string(contents))
		if len(statements) == 0 {
			m.Logger.Debug().Str("file", name).Msg("skipping empty migration")
			continue
		}
		files = append(files, migrationFile{name: name, statements: statements})
	}
	return files, nil
}

func (m *SQLMigrator) apply(ctx context.Context, conn *sql.Conn, f migrationFile) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", f.name, err)
	}
	for i, stmt := range f.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				m.Logger.Warn().Err(rerr).Str("file", f.name).Msg("rollback migration failed")
			}
			return fmt.Errorf("exec %s [%d]: %w", f.name, i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", f.name, err)
	}
	return nil
}

// splitSQLStatements splits sqlText on semicolons that are outside quoted
// text. "--" line comments are dropped; single-quoted literals and
// dollar-quoted bodies are kept intact.
func splitSQLStatements(sqlText string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			out = append(out, stmt)
		}
		cur.Reset()
	}

	n := len(sqlText)
	for i := 0; i < n; i++ {
		c := sqlText[i]
		switch {
		case c == '-' && i+1 < n && sqlText[i+1] == '-':
			nl := strings.IndexByte(sqlText[i:], '\n')
			if nl < 0 {
				i = n
				continue
			}
			i += nl - 1
		case c == '\'':
			end := i + 1
			for end < n {
				if sqlText[end] == '\'' {
					if end+1 < n && sqlText[end+1] == '\'' {
						end += 2
						continue
					}
					break
				}
				end++
			}
			if end >= n {
				end = n - 1
			}
			cur.WriteString(sqlText[i : end+1])
			i = end
		case c == '$':
			tag := dollarTag(sqlText[i:])
			if tag == "" {
				cur.WriteByte(c)
				continue
			}
			body := strings.Index(sqlText[i+len(tag):], tag)
			if body < 0 {
				cur.WriteString(sqlText[i:])
				i = n
				continue
			}
			end := i + len(tag) + body + len(tag)
			cur.WriteString(sqlText[i:end])
			i = end - 1
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}

// dollarTag returns the opening "$tag$" at the start of s, or "" when s
// starts with a positional parameter or a bare dollar sign.
func dollarTag(s string) string {
	for j := 1; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '$':
			return s[:j+1]
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9' && j > 1:
		default:
			return ""
		}
	}
	return ""
}
