package store

import (
	"context"
	"strings"

	"github.com/eldtechnologies/fileshare/internal/models"
)

// DataStore defines the interface for persistent storage of batches, required
// groups, admins and the user registry. MongoStore, PostgresStore and
// SQLiteStore implement this interface.
//
// Reads that find nothing return a nil record and a nil error. Mutations that
// match nothing return models.ErrNotFound.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Batch operations
	CreateBatch(ctx context.Context, batch *models.Batch) error
	GetBatch(ctx context.Context, id string) (*models.Batch, error)
	ListRecentBatches(ctx context.Context, limit int) ([]models.Batch, error)
	SearchBatches(ctx context.Context, query string, limit int) ([]models.Batch, error)
	UpdateBatchTitle(ctx context.Context, id, title string) error
	DeleteBatch(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) (int64, error)

	// Required group operations
	AddRequiredGroup(ctx context.Context, groupID int64) error
	RemoveRequiredGroup(ctx context.Context, groupID int64) error
	ListRequiredGroups(ctx context.Context) ([]models.RequiredGroup, error)

	// Admin operations
	UpsertAdmin(ctx context.Context, admin models.Admin) error
	SetOwner(ctx context.Context, userID int64) error
	RemoveAdmin(ctx context.Context, userID int64) error
	GetAdmin(ctx context.Context, userID int64) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)

	// User registry operations
	UpsertUser(ctx context.Context, user models.User) (bool, error)
	ListUserIDs(ctx context.Context) ([]int64, error)

	Stats(ctx context.Context) (*models.Stats, error)
}

// likePattern escapes LIKE wildcards so the query matches as a plain substring.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}
