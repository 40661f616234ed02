package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/fileshare/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const batchColumns = `id, title, files, created_by, created_at, views`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresBatch(row rowScanner) (*models.Batch, error) {
	batch := &models.Batch{}
	var files []byte
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
	if err := json.Unmarshal(files, &batch.Files); err != nil {
		return nil, err
	}
	return batch, nil
}

// CreateBatch inserts a complete batch in one statement.
func (s *PostgresStore) CreateBatch(ctx context.Context, batch *models.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	files, err := json.Marshal(batch.Files)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO batches (id, title, files, created_by, created_at, views)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, batch.ID, batch.Title, files, batch.CreatedBy, batch.CreatedAt, batch.Views)
	return err
}

// GetBatch retrieves a batch by ID.
func (s *PostgresStore) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := scanPostgresBatch(s.pool.QueryRow(ctx, `
		SELECT `+batchColumns+` FROM batches WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return batch, nil
}

// ListRecentBatches returns the newest batches first.
func (s *PostgresStore) ListRecentBatches(ctx context.Context, limit int) ([]models.Batch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectPostgresBatches(rows)
}

// SearchBatches finds batches whose title contains query, ignoring case.
func (s *PostgresStore) SearchBatches(ctx context.Context, query string, limit int) ([]models.Batch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+batchColumns+`
		FROM batches
		WHERE title ILIKE $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, likePattern(query), limit)
	if err != nil {
		return nil, err
	}
	return collectPostgresBatches(rows)
}

func collectPostgresBatches(rows pgx.Rows) ([]models.Batch, error) {
	defer rows.Close()

	var batches []models.Batch
	for rows.Next() {
		batch, err := scanPostgresBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *batch)
	}
	return batches, rows.Err()
}

// UpdateBatchTitle renames a batch.
func (s *PostgresStore) UpdateBatchTitle(ctx context.Context, id, title string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE batches SET title = $2 WHERE id = $1`, id, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteBatch removes a batch.
func (s *PostgresStore) DeleteBatch(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// IncrementViews atomically adds one view and returns the new count.
func (s *PostgresStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := s.pool.QueryRow(ctx, `
		UPDATE batches SET views = views + 1 WHERE id = $1 RETURNING views
	`, id).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrNotFound
		}
		return 0, err
	}
	return views, nil
}

// AddRequiredGroup adds a group to the membership requirement. Adding an
// existing group is a no-op.
func (s *PostgresStore) AddRequiredGroup(ctx context.Context, groupID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO required_groups (group_id) VALUES ($1)
		ON CONFLICT (group_id) DO NOTHING
	`, groupID)
	return err
}

// RemoveRequiredGroup removes a group from the membership requirement.
func (s *PostgresStore) RemoveRequiredGroup(ctx context.Context, groupID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM required_groups WHERE group_id = $1`, groupID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListRequiredGroups returns required groups in the order they were added.
func (s *PostgresStore) ListRequiredGroups(ctx context.Context) ([]models.RequiredGroup, error) {
	rows, err := s.pool.Query(ctx, `
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
func (s *PostgresStore) UpsertAdmin(ctx context.Context, admin models.Admin) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO admins (user_id, is_owner) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET is_owner = EXCLUDED.is_owner
	`, admin.UserID, admin.IsOwner)
	return err
}

// SetOwner makes userID the only owner. Any previous owner is demoted first so
// the single-owner index holds throughout.
func (s *PostgresStore) SetOwner(ctx context.Context, userID int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE admins SET is_owner = FALSE WHERE user_id <> $1 AND is_owner
		`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO admins (user_id, is_owner) VALUES ($1, TRUE)
			ON CONFLICT (user_id) DO UPDATE SET is_owner = TRUE
		`, userID)
		return err
	})
}

// RemoveAdmin revokes a non-owner privilege entry.
func (s *PostgresStore) RemoveAdmin(ctx context.Context, userID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM admins WHERE user_id = $1 AND is_owner = FALSE
	`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetAdmin retrieves a privilege entry.
func (s *PostgresStore) GetAdmin(ctx context.Context, userID int64) (*models.Admin, error) {
	admin := &models.Admin{}
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, is_owner FROM admins WHERE user_id = $1
	`, userID).Scan(&admin.UserID, &admin.IsOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return admin, nil
}

// ListAdmins returns the owner first, then other admins by ID.
func (s *PostgresStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, is_owner FROM admins ORDER BY is_owner DESC, user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []models.Admin
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.UserID, &a.IsOwner); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// UpsertUser records a user in the registry and reports whether they are new.
func (s *PostgresStore) UpsertUser(ctx context.Context, user models.User) (bool, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, username, first_name, last_name, last_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			last_active = EXCLUDED.last_active
		RETURNING (xmax = 0)
	`, user.UserID, user.Username, user.FirstName, user.LastName, user.LastActive).Scan(&inserted)
	return inserted, err
}

// ListUserIDs returns every registered user ID.
func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM users ORDER BY user_id`)
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
func (s *PostgresStore) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM batches),
			(SELECT COALESCE(SUM(jsonb_array_length(files)), 0) FROM batches),
			(SELECT COUNT(*) FROM required_groups),
			(SELECT COUNT(*) FROM admins)
	`).Scan(&stats.Users, &stats.Batches, &stats.Files, &stats.Groups, &stats.Admins)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
