package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User // by id
	byGoogle map[string]string      // google id -> user id
	records  map[string]models.HistoryRecord
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[string]models.User),
		byGoogle: make(map[string]string),
		records:  make(map[string]models.HistoryRecord),
	}
}

func (s *InMemoryStore) UpsertUser(ctx context.Context, u models.User) (models.User, error) {
	if u.GoogleID == "" {
		return models.User{}, apperrors.ValidationError{Field: "googleId", Message: "is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if id, ok := s.byGoogle[u.GoogleID]; ok {
		existing := s.users[id]
		existing.DisplayName = u.DisplayName
		existing.Email = u.Email
		existing.LastLoginAt = now
		s.users[id] = existing
		return existing, nil
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now
	u.LastLoginAt = now
	s.users[u.ID] = u
	s.byGoogle[u.GoogleID] = u.ID
	return u, nil
}

func (s *InMemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *InMemoryStore) SaveRecord(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = rec
	return rec, nil
}

// ListRecords retrieves a user's snapshots from memory, newest first
func (s *InMemoryStore) ListRecords(ctx context.Context, q models.HistoryQuery) ([]models.HistoryRecord, error) {
	q = q.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.HistoryRecord{}
	for _, rec := range s.records {
		if rec.UserID == q.UserID {
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if q.Limit < len(result) {
		result = result[:q.Limit]
	}
	return result, nil
}

func (s *InMemoryStore) DeleteRecord(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.UserID != userID {
		return apperrors.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
