package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/overlayc/internal/core/domain"
	"github.com/custodia-labs/overlayc/internal/core/ports/driven"
)

// migrationFiles holds NNN_name.up.sql scripts applied in version order.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "overlays.db"

// timeLayout is how timestamps are stored. It sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// entryColumns is the column list shared by every entry SELECT.
const entryColumns = `id, title, status, content, domain, scope_level, domain_key, sub_key,
	capabilities, roles, models, languages, guardrail_level, version_major, version_minor,
	created_at, updated_at, supersedes, authoring_notes, content_hash, metadata_hash`

// Store is a SQLite-backed driven.EntryStore.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.EntryStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.overlayc/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".overlayc", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	scripts, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	if err := s.migrate(scripts); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_overlays.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return v, nil
}

// Create stores a new entry.
func (s *Store) Create(ctx context.Context, entry *domain.ContentEntry, audit domain.AuditRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}
		return insertAudit(ctx, tx, audit)
	})
}

// Update replaces a stored entry.
func (s *Store) Update(ctx context.Context, entry *domain.ContentEntry, audit domain.AuditRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateEntry(ctx, tx, entry); err != nil {
			return err
		}
		return insertAudit(ctx, tx, audit)
	})
}

// Supersede updates old and inserts replacement together.
func (s *Store) Supersede(
	ctx context.Context, old, replacement *domain.ContentEntry, audits ...domain.AuditRecord,
) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateEntry(ctx, tx, old); err != nil {
			return err
		}
		if err := insertEntry(ctx, tx, replacement); err != nil {
			return err
		}
		for _, a := range audits {
			if err := insertAudit(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// HardDelete removes an entry. Its audit records stay.
func (s *Store) HardDelete(ctx context.Context, id string, audit domain.AuditRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM overlay_entries WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NotFoundError(id)
		}
		return insertAudit(ctx, tx, audit)
	})
}

// Get retrieves an entry by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.ContentEntry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM overlay_entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError(id)
	}
	return e, err
}

// ListByScope returns entries at a scope in any status, oldest first.
func (s *Store) ListByScope(
	ctx context.Context, d domain.Domain, domainKey, subKey string,
) ([]*domain.ContentEntry, error) {
	query := "SELECT " + entryColumns + " FROM overlay_entries WHERE domain = ? AND domain_key = ?"
	args := []any{string(d), domainKey}
	if subKey != "" {
		query += " AND sub_key = ?"
		args = append(args, subKey)
	}
	query += " ORDER BY created_at, id"
	return s.queryEntries(ctx, query, args...)
}

// ListByStatus returns every entry with the given status, ordered by ID.
func (s *Store) ListByStatus(ctx context.Context, status domain.EntryStatus) ([]*domain.ContentEntry, error) {
	return s.queryEntries(ctx,
		"SELECT "+entryColumns+" FROM overlay_entries WHERE status = ? ORDER BY id", string(status))
}

// AuditLog returns audit records for an entry, most recent first.
func (s *Store) AuditLog(ctx context.Context, id string) ([]domain.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, overlay_id, action, old_value, new_value, changed_at, changed_by
		FROM audit_log WHERE overlay_id = ?
		ORDER BY id DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.AuditRecord
		var action, changedAt string
		if err := rows.Scan(&r.ID, &r.OverlayID, &action, &r.OldValue, &r.NewValue,
			&changedAt, &r.ChangedBy); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		r.Action = domain.AuditAction(action)
		if r.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]*domain.ContentEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.ContentEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func insertEntry(ctx context.Context, tx *sql.Tx, e *domain.ContentEntry) error {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM overlay_entries WHERE id = ?", e.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking entry: %w", err)
	}
	if exists > 0 {
		return domain.NewValidationError("overlay_id", "unique")
	}

	args, err := entryArgs(e)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO overlay_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

func updateEntry(ctx context.Context, tx *sql.Tx, e *domain.ContentEntry) error {
	args, err := entryArgs(e)
	if err != nil {
		return err
	}
	// id moves from first to last for the WHERE clause.
	args = append(args[1:], args[0])
	res, err := tx.ExecContext(ctx, `
		UPDATE overlay_entries SET
			title = ?, status = ?, content = ?, domain = ?, scope_level = ?,
			domain_key = ?, sub_key = ?, capabilities = ?, roles = ?, models = ?,
			languages = ?, guardrail_level = ?, version_major = ?, version_minor = ?,
			created_at = ?, updated_at = ?, supersedes = ?, authoring_notes = ?,
			content_hash = ?, metadata_hash = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("updating entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError(e.ID)
	}
	return nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, a domain.AuditRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (overlay_id, action, old_value, new_value, changed_at, changed_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.OverlayID, string(a.Action), a.OldValue, a.NewValue, formatTime(a.ChangedAt), a.ChangedBy)
	if err != nil {
		return fmt.Errorf("writing audit record: %w", err)
	}
	return nil
}

// entryArgs returns column values in entryColumns order.
func entryArgs(e *domain.ContentEntry) ([]any, error) {
	lists := make([]string, 0, 4)
	for _, l := range [][]string{
		e.Associations.Capabilities, e.Associations.Roles, e.Associations.Models, e.Associations.Languages,
	} {
		if l == nil {
			l = []string{}
		}
		data, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("marshalling associations: %w", err)
		}
		lists = append(lists, string(data))
	}

	var supersedes sql.NullString
	if e.Lifecycle.Supersedes != nil {
		supersedes = sql.NullString{String: *e.Lifecycle.Supersedes, Valid: true}
	}

	return []any{
		e.ID, e.Title, string(e.Status), e.Content, string(e.Domain), string(e.Scope.Level),
		e.Scope.DomainKey, e.Scope.SubKey, lists[0], lists[1], lists[2], lists[3],
		string(e.Guardrails.Level), e.Version.Major, e.Version.Minor,
		formatTime(e.Lifecycle.CreatedAt), formatTime(e.Lifecycle.UpdatedAt), supersedes,
		e.AuthoringNotes, e.ContentHash, e.MetadataHash,
	}, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry scans one entry row. sql.ErrNoRows is returned unwrapped.
func scanEntry(row rowScanner) (*domain.ContentEntry, error) {
	var e domain.ContentEntry
	var status, dom, level, guard string
	var caps, roles, models, langs string
	var created, updated string
	var supersedes sql.NullString

	if err := row.Scan(&e.ID, &e.Title, &status, &e.Content, &dom, &level,
		&e.Scope.DomainKey, &e.Scope.SubKey, &caps, &roles, &models, &langs, &guard,
		&e.Version.Major, &e.Version.Minor, &created, &updated, &supersedes,
		&e.AuthoringNotes, &e.ContentHash, &e.MetadataHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}

	e.Status = domain.EntryStatus(status)
	e.Domain = domain.Domain(dom)
	e.Scope.Level = domain.ScopeLevel(level)
	e.Guardrails.Level = domain.GuardrailLevel(guard)

	targets := []*[]string{
		&e.Associations.Capabilities, &e.Associations.Roles, &e.Associations.Models, &e.Associations.Languages,
	}
	for i, raw := range []string{caps, roles, models, langs} {
		if err := json.Unmarshal([]byte(raw), targets[i]); err != nil {
			return nil, fmt.Errorf("unmarshaling associations: %w", err)
		}
		if len(*targets[i]) == 0 {
			*targets[i] = nil
		}
	}

	var err error
	if e.Lifecycle.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.Lifecycle.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if supersedes.Valid {
		e.Lifecycle.Supersedes = &supersedes.String
	}
	return &e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
