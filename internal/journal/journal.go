package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// InMemory is the path of a journal that lives only as long as its Journal.
const InMemory = ":memory:"

// setting is a connection pragma the journal depends on. Open fails unless
// reading the pragma back reports want.
type setting struct {
	name  string
	value string
	want  string
}

var settings = []setting{
	{name: "journal_mode", value: "WAL", want: "wal"},
	{name: "synchronous", value: "NORMAL", want: "1"},
	{name: "busy_timeout", value: "5000", want: "5000"},
	{name: "foreign_keys", value: "ON", want: "1"},
}

// migration upgrades a journal written by an older build. New journals get
// the same result from schema.sql; migrations only matter for files that
// predate it. The schema version of a journal is the number of migrations
// applied.
type migration struct {
	name  string
	stmts []string
}

var migrations = []migration{
	{
		name: "frame indexes",
		stmts: []string{
			`CREATE INDEX IF NOT EXISTS idx_commands_frame ON commands(run_id, frame)`,
			`CREATE INDEX IF NOT EXISTS idx_syncs_frame ON syncs(run_id, frame)`,
		},
	},
}

// SchemaVersion is the version a freshly opened journal reports.
var SchemaVersion = len(migrations)

// Journal is the playback journal of one or more runs, stored in SQLite.
// One connection is kept open; a journal file has a single writer.
type Journal struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path. InMemory gives a throwaway
// journal, which is what the scenario harness uses.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db, path: path}
	if err := j.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	return j, nil
}

func (j *Journal) init() error {
	if err := j.db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, s := range settings {
		if _, err := j.db.Exec(fmt.Sprintf("PRAGMA %s = %s", s.name, s.value)); err != nil {
			return fmt.Errorf("set %s: %w", s.name, err)
		}
		if err := j.checkSetting(s); err != nil {
			return err
		}
	}
	if _, err := j.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return j.migrate()
}

func (j *Journal) checkSetting(s setting) error {
	got, err := j.pragma(s.name)
	if err != nil {
		return err
	}
	want := s.want
	// SQLite keeps in-memory databases in "memory" journal mode.
	if s.name == "journal_mode" && j.path == InMemory {
		want = "memory"
	}
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("%s = %q, expected %q", s.name, got, want)
	}
	return nil
}

// migrate applies every migration past the journal's user_version, each in
// its own transaction together with the version bump.
func (j *Journal) migrate() error {
	version, err := j.Version()
	if err != nil {
		return err
	}
	for i := version; i < len(migrations); i++ {
		m := migrations[i]
		tx, err := j.db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", i+1, m.name, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migrate to v%d (%s): %w", i+1, m.name, err)
			}
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d (%s): %w", i+1, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", i+1, m.name, err)
		}
	}
	return nil
}

// Version returns the journal's schema version.
func (j *Journal) Version() (int, error) {
	var v int
	if err := j.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func (j *Journal) pragma(name string) (string, error) {
	var value string
	if err := j.db.QueryRow("PRAGMA "+name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}

// Path returns the path the journal was opened with.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}
