package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rajasatyajit/TravelSafe/internal/database"
	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
)

// Key statuses.
const (
	KeyActive  = "active"
	KeyRevoked = "revoked"
)

// KeyRecord is a stored API key. The secret is kept only as a bcrypt hash.
type KeyRecord struct {
	KeyID      string     `json:"key_id"`
	Hash       []byte     `json:"-"`
	Owner      string     `json:"owner"`
	Plan       string     `json:"plan"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// KeyStore persists API keys.
type KeyStore interface {
	Lookup(ctx context.Context, keyID string) (*KeyRecord, error)
	Create(ctx context.Context, rec KeyRecord) error
	Revoke(ctx context.Context, keyID string) error
	Touch(ctx context.Context, keyID string, at time.Time) error
}

// Repository is the Postgres KeyStore.
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) configured() bool {
	return r != nil && r.db != nil && r.db.IsConfigured()
}

// Lookup returns ErrNotFound for unknown keys
func (r *Repository) Lookup(ctx context.Context, keyID string) (*KeyRecord, error) {
	if !r.configured() {
		return nil, database.ErrNotConfigured
	}
	var (
		rec  KeyRecord
		hash string
	)
	err := r.db.QueryRow(ctx, `
		SELECT key_id, hash, owner, plan, status, created_at, last_used_at
		FROM api_keys
		WHERE key_id = $1
	`, keyID).Scan(&rec.KeyID, &hash, &rec.Owner, &rec.Plan, &rec.Status, &rec.CreatedAt, &rec.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.DatabaseError{Operation: "lookup api key", Err: err}
	}
	rec.Hash = []byte(hash)
	return &rec, nil
}

// Create inserts a new key
func (r *Repository) Create(ctx context.Context, rec KeyRecord) error {
	if !r.configured() {
		return database.ErrNotConfigured
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO api_keys (key_id, hash, owner, plan, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.KeyID, string(rec.Hash), rec.Owner, rec.Plan, rec.Status, rec.CreatedAt)
	if err != nil {
		return apperrors.DatabaseError{Operation: "create api key", Err: err}
	}
	return nil
}

// Revoke marks a key as revoked
func (r *Repository) Revoke(ctx context.Context, keyID string) error {
	if !r.configured() {
		return database.ErrNotConfigured
	}
	n, err := r.db.Exec(ctx, `UPDATE api_keys SET status = 'revoked' WHERE key_id = $1`, keyID)
	if err != nil {
		return apperrors.DatabaseError{Operation: "revoke api key", Err: err}
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListActiveKeyIDs returns the ids of every non-revoked key.
func (r *Repository) ListActiveKeyIDs(ctx context.Context) ([]string, error) {
	if !r.configured() {
		return nil, database.ErrNotConfigured
	}
	rows, err := r.db.Query(ctx, `SELECT key_id FROM api_keys WHERE status = 'active' ORDER BY key_id`)
	if err != nil {
		return nil, apperrors.DatabaseError{Operation: "list api keys", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.DatabaseError{Operation: "scan api key", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError{Operation: "list api keys", Err: err}
	}
	return ids, nil
}

func (r *Repository) Touch(ctx context.Context, keyID string, at time.Time) error {
	if !r.configured() {
		return database.ErrNotConfigured
	}
	_, err := r.db.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE key_id = $1`, keyID, at)
	return err
}

// MemoryKeyStore keeps keys in process; used when no database is configured.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]KeyRecord
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]KeyRecord)}
}

func (m *MemoryKeyStore) Lookup(ctx context.Context, keyID string) (*KeyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.keys[keyID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryKeyStore) Create(ctx context.Context, rec KeyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keys[rec.KeyID]; exists {
		return apperrors.ValidationError{Field: "key_id", Message: "already exists"}
	}
	m.keys[rec.KeyID] = rec
	return nil
}

func (m *MemoryKeyStore) Revoke(ctx context.Context, keyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.keys[keyID]
	if !ok {
		return apperrors.ErrNotFound
	}
	rec.Status = KeyRevoked
	m.keys[keyID] = rec
	return nil
}

func (m *MemoryKeyStore) Touch(ctx context.Context, keyID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.keys[keyID]; ok {
		rec.LastUsedAt = &at
		m.keys[keyID] = rec
	}
	return nil
}
