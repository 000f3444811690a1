package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, google_id, display_name, email, created_at, last_login_at`

// UpsertUser inserts a user on first sign-in and refreshes profile fields afterwards
func (s *PostgresStore) UpsertUser(ctx context.Context, u models.User) (models.User, error) {
	if u.GoogleID == "" {
		return models.User{}, apperrors.ValidationError{Field: "googleId", Message: "is required"}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, google_id, display_name, email, last_login_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (google_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			last_login_at = NOW()
		RETURNING ` + userColumns

	var out models.User
	err := s.db.QueryRow(ctx, query, u.ID, u.GoogleID, u.DisplayName, u.Email).Scan(
		&out.ID, &out.GoogleID, &out.DisplayName, &out.Email, &out.CreatedAt, &out.LastLoginAt,
	)
	if err != nil {
		return models.User{}, apperrors.DatabaseError{Operation: "upsert user", Err: err}
	}
	return out, nil
}

// GetUser returns nil when the user does not exist
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).Scan(
		&u.ID, &u.GoogleID, &u.DisplayName, &u.Email, &u.CreatedAt, &u.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.DatabaseError{Operation: "get user", Err: err}
	}
	return &u, nil
}

// SaveRecord stores a snapshot; ipInfo, advisory and meta go into JSONB columns
func (s *PostgresStore) SaveRecord(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	ipInfo, advisory, meta, err := encodeRecord(rec)
	if err != nil {
		return models.HistoryRecord{}, err
	}

	query := `
		INSERT INTO advisory_records (
			id, user_id, country_code, score, ip_info, advisory, meta, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := s.db.Exec(ctx, query,
		rec.ID, rec.UserID, rec.Advisory.CountryCode, rec.Advisory.Score,
		ipInfo, advisory, meta, rec.CreatedAt,
	); err != nil {
		return models.HistoryRecord{}, apperrors.DatabaseError{Operation: "save record", Err: err}
	}
	return rec, nil
}

// ListRecords retrieves a user's snapshots, newest first
func (s *PostgresStore) ListRecords(ctx context.Context, q models.HistoryQuery) ([]models.HistoryRecord, error) {
	q = q.Normalize()

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, ip_info, advisory, meta, created_at
		FROM advisory_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, q.UserID, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []models.HistoryRecord{}
	for rows.Next() {
		var (
			rec                    models.HistoryRecord
			ipInfo, advisory, meta []byte
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &ipInfo, &advisory, &meta, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := decodeRecord(&rec, ipInfo, advisory, meta); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// DeleteRecord removes a snapshot owned by userID
func (s *PostgresStore) DeleteRecord(ctx context.Context, userID, id string) error {
	n, err := s.db.Exec(ctx, `DELETE FROM advisory_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperrors.DatabaseError{Operation: "delete record", Err: err}
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

func encodeRecord(rec models.HistoryRecord) (ipInfo, advisory, meta []byte, err error) {
	if rec.IPInfo != nil {
		if ipInfo, err = json.Marshal(rec.IPInfo); err != nil {
			return nil, nil, nil, fmt.Errorf("encode ip info: %w", err)
		}
	}
	if advisory, err = json.Marshal(rec.Advisory); err != nil {
		return nil, nil, nil, fmt.Errorf("encode advisory: %w", err)
	}
	m := rec.Meta
	if m == nil {
		m = map[string]string{}
	}
	if meta, err = json.Marshal(m); err != nil {
		return nil, nil, nil, fmt.Errorf("encode meta: %w", err)
	}
	return ipInfo, advisory, meta, nil
}

func decodeRecord(rec *models.HistoryRecord, ipInfo, advisory, meta []byte) error {
	if len(ipInfo) > 0 && string(ipInfo) != "null" {
		rec.IPInfo = &models.IPInfo{}
		if err := json.Unmarshal(ipInfo, rec.IPInfo); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(advisory, &rec.Advisory); err != nil {
		return err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Meta); err != nil {
			return err
		}
	}
	return nil
}
