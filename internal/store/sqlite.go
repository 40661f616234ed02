package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/fileshare/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/fileshare.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/fileshare.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One writer at a time keeps read-modify-write statements free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// InitSchema creates tables if they don't exist.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		files TEXT NOT NULL,
		file_count INTEGER NOT NULL,
		created_by INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		views INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS required_groups (
		group_id INTEGER PRIMARY KEY,
		added_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS admins (
		user_id INTEGER PRIMARY KEY,
		is_owner INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		username TEXT DEFAULT '',
		first_name TEXT DEFAULT '',
		last_name TEXT DEFAULT '',
		last_active DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanSQLiteBatch(row rowScanner) (*models.Batch, error) {
	batch := &models.Batch{}
	var files string
	err := row.Scan(
		&batch.ID,
		&batch.Title,
		&files,
		&batch.CreatedBy,
		&batch.CreatedAt,
		&batch.Views,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(files), &batch.Files); err != nil {
		return nil, err
	}
	return batch, nil
}

// CreateBatch inserts a complete batch in one statement.
func (s *SQLiteStore) CreateBatch(ctx context.Context, batch *models.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	files, err := json.Marshal(batch.Files)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batches (id, title, files, file_count, created_by, created_at, views)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, batch.ID, batch.Title, string(files), len(batch.Files), batch.CreatedBy, batch.CreatedAt, batch.Views)
	return err
}

// GetBatch retrieves a batch by ID.
func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := scanSQLiteBatch(s.db.QueryRowContext(ctx, `
		SELECT `+batchColumns+` FROM batches WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return batch, nil
}

// ListRecentBatches returns the newest batches first.
func (s *SQLiteStore) ListRecentBatches(ctx context.Context, limit int) ([]models.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectSQLiteBatches(rows)
}

// SearchBatches finds batches whose title contains query, ignoring case.
func (s *SQLiteStore) SearchBatches(ctx context.Context, query string, limit int) ([]models.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		WHERE title LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, likePattern(query), limit)
	if err != nil {
		return nil, err
	}
	return collectSQLiteBatches(rows)
}

func collectSQLiteBatches(rows *sql.Rows) ([]models.Batch, error) {
	defer rows.Close()

	var batches []models.Batch
	for rows.Next() {
		batch, err := scanSQLiteBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *batch)
	}
	return batches, rows.Err()
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateBatchTitle renames a batch.
func (s *SQLiteStore) UpdateBatchTitle(ctx context.Context, id, title string) error {
	return affectedOrNotFound(s.db.ExecContext(ctx, `UPDATE batches SET title = ? WHERE id = ?`, title, id))
}

// DeleteBatch removes a batch.
func (s *SQLiteStore) DeleteBatch(ctx context.Context, id string) error {
	return affectedOrNotFound(s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id))
}

// IncrementViews atomically adds one view and returns the new count.
func (s *SQLiteStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE batches SET views = views + 1 WHERE id = ? RETURNING views
	`, id).Scan(&views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, models.ErrNotFound
		}
		return 0, err
	}
	return views, nil
}

// AddRequiredGroup adds a group to the membership requirement. Adding an
// existing group is a no-op.
func (s *SQLiteStore) AddRequiredGroup(ctx context.Context, groupID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO required_groups (group_id, added_at) VALUES (?, ?)
	`, groupID, time.Now().UTC())
	return err
}

// RemoveRequiredGroup removes a group from the membership requirement.
func (s *SQLiteStore) RemoveRequiredGroup(ctx context.Context, groupID int64) error {
	return affectedOrNotFound(s.db.ExecContext(ctx, `DELETE FROM required_groups WHERE group_id = ?`, groupID))
}

// ListRequiredGroups returns required groups in the order they were added.
func (s *SQLiteStore) ListRequiredGroups(ctx context.Context) ([]models.RequiredGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, added_at FROM required_groups ORDER BY added_at, group_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.RequiredGroup
	for rows.Next() {
		var g models.RequiredGroup
		if err := rows.Scan(&g.GroupID, &g.AddedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpsertAdmin grants or updates a privilege entry.
func (s *SQLiteStore) UpsertAdmin(ctx context.Context, admin models.Admin) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, is_owner) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET is_owner = excluded.is_owner
	`, admin.UserID, boolToInt(admin.IsOwner))
	return err
}

// SetOwner makes userID the only owner. Any previous owner is demoted to a
// plain admin.
func (s *SQLiteStore) SetOwner(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE admins SET is_owner = 0 WHERE user_id <> ? AND is_owner = 1
	`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO admins (user_id, is_owner) VALUES (?, 1)
		ON CONFLICT (user_id) DO UPDATE SET is_owner = 1
	`, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveAdmin revokes a non-owner privilege entry.
func (s *SQLiteStore) RemoveAdmin(ctx context.Context, userID int64) error {
	return affectedOrNotFound(s.db.ExecContext(ctx, `
		DELETE FROM admins WHERE user_id = ? AND is_owner = 0
	`, userID))
}

// GetAdmin retrieves a privilege entry.
func (s *SQLiteStore) GetAdmin(ctx context.Context, userID int64) (*models.Admin, error) {
	admin := &models.Admin{}
	var isOwner int
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, is_owner FROM admins WHERE user_id = ?
	`, userID).Scan(&admin.UserID, &isOwner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	admin.IsOwner = isOwner == 1
	return admin, nil
}

// ListAdmins returns the owner first, then other admins by ID.
func (s *SQLiteStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, is_owner FROM admins ORDER BY is_owner DESC, user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []models.Admin
	for rows.Next() {
		var a models.Admin
		var isOwner int
		if err := rows.Scan(&a.UserID, &isOwner); err != nil {
			return nil, err
		}
		a.IsOwner = isOwner == 1
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// UpsertUser records a user in the registry and reports whether they are new.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user models.User) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE user_id = ?`, user.UserID).Scan(&exists)
	if err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name, last_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			last_active = excluded.last_active
	`, user.UserID, user.Username, user.FirstName, user.LastName, user.LastActive)
	if err != nil {
		return false, err
	}

	return exists == 0, tx.Commit()
}

// ListUserIDs returns every registered user ID.
func (s *SQLiteStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats returns the dashboard counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM batches),
			(SELECT COALESCE(SUM(file_count), 0) FROM batches),
			(SELECT COUNT(*) FROM required_groups),
			(SELECT COUNT(*) FROM admins)
	`).Scan(&stats.Users, &stats.Batches, &stats.Files, &stats.Groups, &stats.Admins)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
