package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

const defaultInsertBatchSize = 500

// Store is the PostgreSQL-backed repository. Each method is one
// database round trip or one transaction.
type Store struct {
	db        *gorm.DB
	batchSize int
}

// NewStore wraps an open connection. batchSize bounds rows per INSERT
// statement during batch uploads; values <= 0 use the default.
func NewStore(db *gorm.DB, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = defaultInsertBatchSize
	}
	return &Store{db: db, batchSize: batchSize}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	return translate(s.db.WithContext(ctx).Create(sess).Error)
}

func (s *Store) SessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error; err != nil {
		return nil, translate(err)
	}
	return &sess, nil
}

// EndSession loads the session, lets apply check and mutate it, and saves
// end_time and the rollup columns, all in one transaction. An error from
// apply rolls back and is returned unchanged.
func (s *Store) EndSession(ctx context.Context, id uuid.UUID, apply func(*Session) error) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&sess).Error; err != nil {
			return translate(err)
		}
		if err := apply(&sess); err != nil {
			return err
		}
		return tx.Model(&sess).Select(
			"end_time", "avg_rssi", "total_distance_km",
			"drops_count", "handovers_count", "speedtest_count", "error_count",
		).Updates(&sess).Error
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
