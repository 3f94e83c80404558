package store

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"activitywarden/internal/model"
)

//go:embed sql/*.sql
var queryFiles embed.FS

func loadQuery(name string) string {
	data, err := queryFiles.ReadFile("sql/" + name)
	if err != nil {
		// The embedded filesystem is built from files checked into the
		// module; a missing entry is a programming error, not a runtime one.
		panic(fmt.Sprintf("store: embedded query %q not found: %v", name, err))
	}
	return string(data)
}

var (
	timersCreateSQL       = loadQuery("timers_create.sql")
	timersSelectSQL       = loadQuery("timers_select.sql")
	timersInsertSQL       = loadQuery("timers_insert.sql")
	timersUpdateSQL       = loadQuery("timers_update.sql")
	timersDeleteSQL       = loadQuery("timers_delete.sql")
	focusChangesCreateSQL = loadQuery("focus_changes_create.sql")
	focusChangesSelectSQL = loadQuery("focus_changes_select.sql")
	focusChangesInsertSQL = loadQuery("focus_changes_insert.sql")
)

// Store is the SQLite-backed persistence layer for timers and focus
// changes, plus the on-disk password hash file.
type Store struct {
	db       *sql.DB
	dataRoot string
}

// Open opens or creates the SQLite database under dataRoot and ensures the
// timers and focus_changes tables exist.
func Open(dataRoot string) (*Store, error) {
	if err := os.MkdirAll(dataRoot, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataRoot, dbFileName)
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, stmt := range []string{timersCreateSQL, focusChangesCreateSQL} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &Store{db: db, dataRoot: dataRoot}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SelectTimers returns every timer currently configured.
func (s *Store) SelectTimers() ([]model.Timer, error) {
	rows, err := s.db.Query(timersSelectSQL)
	if err != nil {
		return nil, fmt.Errorf("select timers: %w", err)
	}
	defer rows.Close()

	var timers []model.Timer
	for rows.Next() {
		var displayName, hostStr string
		var timeLimit uint32
		var mask uint8
		if err := rows.Scan(&displayName, &hostStr, &timeLimit, &mask); err != nil {
			return nil, fmt.Errorf("scan timer: %w", err)
		}
		host, err := model.ParseHost(hostStr)
		if err != nil {
			return nil, fmt.Errorf("select timers: %w", err)
		}
		timers = append(timers, model.Timer{
			DisplayName: displayName,
			Host:        host,
			TimeLimit:   timeLimit,
			AllowedDays: model.AllowedDaysFromMask(mask),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timers: %w", err)
	}
	return timers, nil
}

// ModifyTimer inserts, updates, or deletes a timer row depending on action.
// The caller is responsible for keeping any in-memory timer list in sync.
func (s *Store) ModifyTimer(action QueryType, timer model.Timer) error {
	mask := timer.AllowedDaysMask()

	var err error
	switch action {
	case QueryInsert:
		_, err = s.db.Exec(timersInsertSQL, timer.DisplayName, timer.Host.String(), timer.TimeLimit, mask)
	case QueryUpdate:
		_, err = s.db.Exec(timersUpdateSQL, timer.TimeLimit, mask, timer.DisplayName, timer.Host.String())
	case QueryDelete:
		_, err = s.db.Exec(timersDeleteSQL, timer.DisplayName, timer.Host.String())
	default:
		return fmt.Errorf("modify timer: unknown action %q", action)
	}
	if err != nil {
		return fmt.Errorf("modify timer (%s): %w", action, err)
	}
	return nil
}

// InsertFocusChange records a closed focus segment.
func (s *Store) InsertFocusChange(fc model.FocusChange) error {
	_, err := s.db.Exec(focusChangesInsertSQL, fc.DisplayName, fc.Host.String(), fc.Timestamp.Unix(), fc.Duration)
	if err != nil {
		return fmt.Errorf("insert focus change: %w", err)
	}
	return nil
}

// SelectCurrentDurations sums today's focus changes (local calendar day),
// grouped by host and display name.
func (s *Store) SelectCurrentDurations() (model.DurationMap, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	rows, err := s.db.Query(focusChangesSelectSQL, startOfDay.Unix(), endOfDay.Unix())
	if err != nil {
		return nil, fmt.Errorf("select current durations: %w", err)
	}
	defer rows.Close()

	durations := make(model.DurationMap)
	for rows.Next() {
		var displayName, hostStr string
		var duration uint32
		if err := rows.Scan(&displayName, &hostStr, &duration); err != nil {
			return nil, fmt.Errorf("scan duration: %w", err)
		}
		host, err := model.ParseHost(hostStr)
		if err != nil {
			return nil, fmt.Errorf("select current durations: %w", err)
		}
		durations.Add(host, displayName, duration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate durations: %w", err)
	}
	return durations, nil
}

func (s *Store) passwordPath() string {
	return filepath.Join(s.dataRoot, passwordFileName)
}

// CurrentPasswordHash returns the stored password hash, and false if the
// daemon has no password set (i.e. it is unlocked).
func (s *Store) CurrentPasswordHash() (string, bool, error) {
	data, err := os.ReadFile(s.passwordPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read password hash: %w", err)
	}
	return string(data), true, nil
}

// SetNewPassword hashes password with SHA-256 and writes its hex digest to
// the password file, replacing any existing one.
func (s *Store) SetNewPassword(password string) error {
	sum := sha256.Sum256([]byte(password))
	hash := hex.EncodeToString(sum[:])
	if err := os.WriteFile(s.passwordPath(), []byte(hash), 0o600); err != nil {
		return fmt.Errorf("write password hash: %w", err)
	}
	return nil
}

// RemovePassword deletes the password file, unlocking the daemon.
func (s *Store) RemovePassword() error {
	if err := os.Remove(s.passwordPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove password hash: %w", err)
	}
	return nil
}

// HashPassword returns the SHA-256 hex digest of password, for comparison
// against CurrentPasswordHash without touching the filesystem.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
