package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// AverageRating is the unweighted mean of all feedback ratings for the
// session, or nil when the session has no feedback.
func (s *Store) AverageRating(ctx context.Context, sessionID uuid.UUID) (*float64, error) {
	return s.average(ctx, &MosFeedback{}, "AVG(rating)", sessionID)
}

// AverageRSSI is the mean RSSI over the session's measurements. Rows
// without an RSSI reading are skipped; nil when no row has one.
func (s *Store) AverageRSSI(ctx context.Context, sessionID uuid.UUID) (*float64, error) {
	return s.average(ctx, &NetworkMeasurement{}, "AVG(rssi)", sessionID)
}

func (s *Store) average(ctx context.Context, model any, expr string, sessionID uuid.UUID) (*float64, error) {
	var avg sql.NullFloat64
	err := s.db.WithContext(ctx).Model(model).
		Select(expr).
		Where("session_id = ?", sessionID).
		Row().Scan(&avg)
	if err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	v := avg.Float64
	return &v, nil
}

// MapPoints returns the coverage projection of every measurement in the
// session, unsorted and unpaged.
func (s *Store) MapPoints(ctx context.Context, sessionID uuid.UUID) ([]MapPoint, error) {
	points := []MapPoint{}
	err := s.db.WithContext(ctx).Model(&NetworkMeasurement{}).
		Select("latitude", "longitude", "rssi", "technology", "recorded_at").
		Where("session_id = ?", sessionID).
		Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

// EachMeasurement streams the session's measurements to fn in insertion
// order without loading them all at once. An error from fn stops the scan.
func (s *Store) EachMeasurement(ctx context.Context, sessionID uuid.UUID, fn func(*NetworkMeasurement) error) error {
	rows, err := s.db.WithContext(ctx).Model(&NetworkMeasurement{}).
		Where("session_id = ?", sessionID).
		Order("id").
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m NetworkMeasurement
		if err := s.db.ScanRows(rows, &m); err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
	}
	return rows.Err()
}
