// Package telemetry implements drive sessions, batch ingestion,
// per-session analytics and CSV export on top of a Store.
package telemetry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"drivepulse/internal/db"
	"drivepulse/internal/validation"
)

// Store is the persistence contract the service needs. *db.Store is the
// production implementation.
type Store interface {
	CreateSession(ctx context.Context, s *db.Session) error
	SessionByID(ctx context.Context, id uuid.UUID) (*db.Session, error)
	EndSession(ctx context.Context, id uuid.UUID, apply func(*db.Session) error) (*db.Session, error)

	InsertBatch(ctx context.Context, sessionID uuid.UUID, b db.Batch) error

	AverageRating(ctx context.Context, sessionID uuid.UUID) (*float64, error)
	AverageRSSI(ctx context.Context, sessionID uuid.UUID) (*float64, error)
	MapPoints(ctx context.Context, sessionID uuid.UUID) ([]db.MapPoint, error)
	EachMeasurement(ctx context.Context, sessionID uuid.UUID, fn func(*db.NetworkMeasurement) error) error
}

type Service struct {
	store   Store
	rollups RollupSource
	now     func() time.Time
}

type Option func(*Service)

// WithRollupSource replaces the default ClientRollups.
func WithRollupSource(r RollupSource) Option {
	return func(s *Service) { s.rollups = r }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		rollups: ClientRollups{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession opens a new session for caller with zeroed rollups.
func (s *Service) StartSession(ctx context.Context, caller uuid.UUID) (*SessionView, error) {
	sess := &db.Session{
		UserID:    caller,
		StartTime: s.now().UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrStorage, err)
	}
	return viewOf(sess), nil
}

// EndSession closes a session owned by caller, overwriting end_time and
// the rollups. Ending an already ended session overwrites it again.
func (s *Service) EndSession(ctx context.Context, id uuid.UUID, req *EndRequest, caller uuid.UUID) (*SessionView, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	sess, err := s.store.EndSession(ctx, id, func(sess *db.Session) error {
		if sess.UserID != caller {
			return ErrForbidden
		}
		r, err := s.rollups.Rollup(ctx, sess, req)
		if err != nil {
			return err
		}
		end := req.EndTime
		sess.EndTime = &end
		r.Apply(sess)
		return nil
	})
	if err != nil {
		return nil, classify(err, "end session")
	}
	return viewOf(sess), nil
}

// BatchUpload stores all rows of req in one transaction. Nothing is
// deduplicated and the session rollups are left untouched.
func (s *Service) BatchUpload(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if err := s.store.InsertBatch(ctx, req.SessionID, req.toBatch(s.now().UTC())); err != nil {
		return nil, classify(err, "upload failed")
	}
	return &BatchResult{Status: "success", Message: "Batch upload completed"}, nil
}

func (s *Service) Summary(ctx context.Context, id uuid.UUID, _ uuid.UUID) (*Summary, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	avgMOS, err := s.store.AverageRating(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: average rating: %v", ErrStorage, err)
	}

	return &Summary{
		SessionID:       sess.ID,
		AvgRSSI:         sess.AvgRSSI,
		AvgMOS:          avgMOS,
		TotalDistanceKm: sess.TotalDistanceKm,
		TotalDrops:      sess.DropsCount,
		TotalHandovers:  sess.HandoversCount,
		TotalSpeedTests: sess.SpeedtestCount,
	}, nil
}

func (s *Service) MapPoints(ctx context.Context, id uuid.UUID, _ uuid.UUID) ([]db.MapPoint, error) {
	if _, err := s.session(ctx, id); err != nil {
		return nil, err
	}
	points, err := s.store.MapPoints(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: map points: %v", ErrStorage, err)
	}
	return points, nil
}

func (s *Service) MosCorrelation(ctx context.Context, id uuid.UUID, _ uuid.UUID) (*Correlation, error) {
	if _, err := s.session(ctx, id); err != nil {
		return nil, err
	}

	avgRSSI, err := s.store.AverageRSSI(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: average rssi: %v", ErrStorage, err)
	}
	avgMOS, err := s.store.AverageRating(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: average rating: %v", ErrStorage, err)
	}

	return &Correlation{
		AvgRSSI:        avgRSSI,
		AvgMOS:         avgMOS,
		Interpretation: Classify(avgRSSI, avgMOS),
	}, nil
}

// ExportCSV writes every measurement of the session to w as CSV with a
// header row. A session without measurements yields the header alone.
func (s *Service) ExportCSV(ctx context.Context, id uuid.UUID, _ uuid.UUID, w io.Writer) error {
	if _, err := s.session(ctx, id); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := writeHeader(cw); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	err := s.store.EachMeasurement(ctx, id, func(m *db.NetworkMeasurement) error {
		return cw.Write(measurementRecord(m))
	})
	if err != nil {
		return fmt.Errorf("%w: export failed: %v", ErrStorage, err)
	}

	cw.Flush()
	return cw.Error()
}

func (s *Service) session(ctx context.Context, id uuid.UUID) (*db.Session, error) {
	sess, err := s.store.SessionByID(ctx, id)
	if err != nil {
		return nil, classify(err, "load session")
	}
	return sess, nil
}

func validate(v any) error {
	if err := validation.ValidateStruct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// classify turns store errors into the service's error taxonomy.
func classify(err error, op string) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, ErrForbidden):
		return ErrForbidden
	default:
		return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
	}
}
