package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrConflict is returned when a write would violate the id or username
// uniqueness of registered_bots.
var ErrConflict = errors.New("registered bot conflicts with an existing entry")

// Store defines the data access operations on the directory.
// Point reads return nil, nil when nothing matches.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetBotByID retrieves an entry by its identity-service id.
	GetBotByID(ctx context.Context, id string) (*BotEntry, error)

	// GetBotByUsername retrieves an entry by username, case-insensitively.
	GetBotByUsername(ctx context.Context, username string) (*BotEntry, error)

	// ListBots returns all entries, or only visible ones when visibleOnly is set.
	ListBots(ctx context.Context, visibleOnly bool) ([]*BotEntry, error)

	// InsertBot stores a new entry. It returns ErrConflict if the id or the
	// username is already taken.
	InsertBot(ctx context.Context, entry *BotEntry) error

	// UpdateBotReputation replaces the reputation fields and audit stamp of the
	// entry with the given id. It reports whether an entry matched.
	UpdateBotReputation(ctx context.Context, id string, rep Reputation, modifiedBy string, modifiedAt time.Time) (bool, error)

	// SetBotVisibility changes is_visible and the audit stamp of the entry with
	// the given username. It reports whether an entry matched.
	SetBotVisibility(ctx context.Context, username string, visible bool, modifiedBy string, modifiedAt time.Time) (bool, error)

	// DeleteBotByUsername removes the entry with the given username, if any.
	DeleteBotByUsername(ctx context.Context, username string) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

const botColumns = `id, username, created_at, created_by, modified_at, modified_by,
        is_online, is_working_properly, reputation_score, average_rating, review_count, is_visible`

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) GetBotByID(ctx context.Context, id string) (*BotEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}
	return s.getBot(ctx, `SELECT `+botColumns+` FROM registered_bots WHERE id = ?;`, id)
}

func (s *sqlxStore) GetBotByUsername(ctx context.Context, username string) (*BotEntry, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	return s.getBot(ctx, `SELECT `+botColumns+` FROM registered_bots WHERE username = ?;`, username)
}

func (s *sqlxStore) getBot(ctx context.Context, query string, arg any) (*BotEntry, error) {
	var entry BotEntry
	err := s.db.GetContext(ctx, &entry, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error fetching registered bot", "key", arg, "error", err)
		return nil, fmt.Errorf("failed to fetch registered bot %v: %w", arg, err)
	}
	return &entry, nil
}

func (s *sqlxStore) ListBots(ctx context.Context, visibleOnly bool) ([]*BotEntry, error) {
	query := `SELECT ` + botColumns + ` FROM registered_bots`
	var args []any
	if visibleOnly {
		query += ` WHERE is_visible = ?`
		args = append(args, true)
	}
	query += ` ORDER BY username;`

	var entries []*BotEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error listing registered bots", "visible_only", visibleOnly, "error", err)
		return nil, fmt.Errorf("failed to list registered bots: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed registered bots", "count", len(entries), "visible_only", visibleOnly)
	return entries, nil
}

func (s *sqlxStore) InsertBot(ctx context.Context, entry *BotEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot insert nil entry")
	}
	if entry.ID == "" || entry.Username == "" {
		return fmt.Errorf("entry must have a non-empty id and username")
	}
	if entry.CreatedAt.IsZero() || entry.ModifiedAt.IsZero() {
		return fmt.Errorf("entry must have audit timestamps")
	}

	query := `
        INSERT INTO registered_bots (` + botColumns + `)
        VALUES (:id, :username, :created_at, :created_by, :modified_at, :modified_by,
                :is_online, :is_working_properly, :reputation_score, :average_rating, :review_count, :is_visible);
    `
	if _, err := s.db.NamedExecContext(ctx, query, entry); err != nil {
		if isConstraintViolation(err) {
			s.logger.WarnContext(ctx, "Registered bot insert conflicts with an existing entry",
				"bot_id", entry.ID, "username", entry.Username, "error", err)
			return fmt.Errorf("insert %s (%s): %w", entry.Username, entry.ID, ErrConflict)
		}
		s.logger.ErrorContext(ctx, "Error inserting registered bot", "bot_id", entry.ID, "username", entry.Username, "error", err)
		return fmt.Errorf("failed to insert registered bot %s: %w", entry.ID, err)
	}

	s.logger.DebugContext(ctx, "Registered bot inserted", "bot_id", entry.ID, "username", entry.Username)
	return nil
}

func (s *sqlxStore) UpdateBotReputation(ctx context.Context, id string, rep Reputation, modifiedBy string, modifiedAt time.Time) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("id cannot be empty")
	}

	query := `
        UPDATE registered_bots
        SET reputation_score = ?, average_rating = ?, review_count = ?, modified_by = ?, modified_at = ?
        WHERE id = ?;
    `
	result, err := s.db.ExecContext(ctx, query,
		rep.ReputationScore, rep.AverageRating, rep.ReviewCount, modifiedBy, modifiedAt, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating reputation", "bot_id", id, "error", err)
		return false, fmt.Errorf("failed to update reputation of %s: %w", id, err)
	}
	return s.matched(ctx, result, "bot_id", id)
}

func (s *sqlxStore) SetBotVisibility(ctx context.Context, username string, visible bool, modifiedBy string, modifiedAt time.Time) (bool, error) {
	if username == "" {
		return false, fmt.Errorf("username cannot be empty")
	}

	query := `
        UPDATE registered_bots
        SET is_visible = ?, modified_by = ?, modified_at = ?
        WHERE username = ?;
    `
	result, err := s.db.ExecContext(ctx, query, visible, modifiedBy, modifiedAt, username)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating visibility", "username", username, "error", err)
		return false, fmt.Errorf("failed to update visibility of %s: %w", username, err)
	}
	return s.matched(ctx, result, "username", username)
}

func (s *sqlxStore) DeleteBotByUsername(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM registered_bots WHERE username = ?;`, username)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting registered bot", "username", username, "error", err)
		return fmt.Errorf("failed to delete registered bot %s: %w", username, err)
	}

	affected, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Deleted registered bot", "username", username, "rows_affected", affected)
	return nil
}

func (s *sqlxStore) matched(ctx context.Context, result sql.Result, key string, value string) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read affected rows", key, value, "error", err)
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// RunSQLMaintenance runs VACUUM and refreshes the query planner statistics.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Running SQL maintenance")

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		s.logger.ErrorContext(ctx, "VACUUM failed", "error", err)
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "SQL maintenance completed")
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
