package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InsertBatch stores every row of b under sessionID in a single
// transaction. The session must exist (ErrNotFound otherwise); if any
// insert fails nothing from the batch is kept. Rows are not deduplicated.
func (s *Store) InsertBatch(ctx context.Context, sessionID uuid.UUID, b Batch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Session{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		if len(b.Measurements) > 0 {
			if err := tx.CreateInBatches(&b.Measurements, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert measurements: %w", err)
			}
		}
		if len(b.SpeedTests) > 0 {
			if err := tx.CreateInBatches(&b.SpeedTests, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert speed tests: %w", err)
			}
		}
		if len(b.Events) > 0 {
			if err := tx.CreateInBatches(&b.Events, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert events: %w", err)
			}
		}
		if len(b.MosFeedback) > 0 {
			if err := tx.CreateInBatches(&b.MosFeedback, s.batchSize).Error; err != nil {
				return fmt.Errorf("insert mos feedback: %w", err)
			}
		}
		return nil
	})
}
