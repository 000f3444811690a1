package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rajasatyajit/TravelSafe/internal/models"
)

// Store persists users and their saved advisory snapshots.
type Store interface {
	// UpsertUser creates or refreshes a user keyed by GoogleID and returns the stored row.
	UpsertUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveRecord(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error)
	// ListRecords returns the user's records, newest first.
	ListRecords(ctx context.Context, q models.HistoryQuery) ([]models.HistoryRecord, error)
	// DeleteRecord removes one of the user's records; ErrNotFound if it is not theirs.
	DeleteRecord(ctx context.Context, userID, id string) error
	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a new store instance
func New(db Database) Store {
	if db != nil && db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}
