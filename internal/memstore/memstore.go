// Package memstore is an in-memory implementation of the repository
// methods of *db.Store. It follows the same contracts (ErrNotFound,
// ErrDuplicate, all-or-nothing batches, SQL AVG semantics) and is used
// by service and HTTP tests that should not need PostgreSQL.
package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"drivepulse/internal/db"
)

// Store keeps rows in slices guarded by one mutex.
type Store struct {
	mu sync.Mutex

	users        []db.User
	sessions     map[uuid.UUID]*db.Session
	measurements []db.NetworkMeasurement
	speedTests   []db.SpeedTest
	events       []db.Event
	feedback     []db.MosFeedback
	nextMeasID   int64

	// FailInsert, when set, is returned from the step of InsertBatch
	// that writes the named table ("measurements", "speed_tests",
	// "events" or "mos_feedback"), after earlier steps have run.
	FailInsert map[string]error

	// FailQuery, when set, is returned from every read of row data.
	FailQuery error
}

func New() *Store {
	return &Store{sessions: make(map[uuid.UUID]*db.Session)}
}

func (s *Store) CreateUser(_ context.Context, u *db.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return db.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users = append(s.users, *u)
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id uuid.UUID) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) CreateSession(_ context.Context, sess *db.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *Store) SessionByID(_ context.Context, id uuid.UUID) (*db.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) EndSession(_ context.Context, id uuid.UUID, apply func(*db.Session) error) (*db.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *sess
	if err := apply(&cp); err != nil {
		return nil, err
	}
	s.sessions[id] = &cp
	out := cp
	return &out, nil
}

func (s *Store) InsertBatch(_ context.Context, sessionID uuid.UUID, b db.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return db.ErrNotFound
	}

	// Stage into copies and swap at the end so a failure keeps nothing.
	measurements := append([]db.NetworkMeasurement(nil), s.measurements...)
	speedTests := append([]db.SpeedTest(nil), s.speedTests...)
	events := append([]db.Event(nil), s.events...)
	feedback := append([]db.MosFeedback(nil), s.feedback...)
	nextID := s.nextMeasID

	if len(b.Measurements) > 0 {
		if err := s.FailInsert["measurements"]; err != nil {
			return err
		}
		for _, m := range b.Measurements {
			nextID++
			m.ID = nextID
			measurements = append(measurements, m)
		}
	}
	if len(b.SpeedTests) > 0 {
		if err := s.FailInsert["speed_tests"]; err != nil {
			return err
		}
		for _, st := range b.SpeedTests {
			st.ID = uuid.New()
			speedTests = append(speedTests, st)
		}
	}
	if len(b.Events) > 0 {
		if err := s.FailInsert["events"]; err != nil {
			return err
		}
		for _, e := range b.Events {
			e.ID = uuid.New()
			events = append(events, e)
		}
	}
	if len(b.MosFeedback) > 0 {
		if err := s.FailInsert["mos_feedback"]; err != nil {
			return err
		}
		for _, f := range b.MosFeedback {
			f.ID = uuid.New()
			feedback = append(feedback, f)
		}
	}

	s.measurements, s.speedTests, s.events, s.feedback = measurements, speedTests, events, feedback
	s.nextMeasID = nextID
	return nil
}

func (s *Store) AverageRating(_ context.Context, sessionID uuid.UUID) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailQuery != nil {
		return nil, s.FailQuery
	}
	var sum float64
	var n int
	for _, f := range s.feedback {
		if f.SessionID == sessionID {
			sum += float64(f.Rating)
			n++
		}
	}
	return mean(sum, n), nil
}

func (s *Store) AverageRSSI(_ context.Context, sessionID uuid.UUID) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailQuery != nil {
		return nil, s.FailQuery
	}
	var sum float64
	var n int
	for _, m := range s.measurements {
		if m.SessionID == sessionID && m.RSSI != nil {
			sum += float64(*m.RSSI)
			n++
		}
	}
	return mean(sum, n), nil
}

func mean(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	v := sum / float64(n)
	return &v
}

func (s *Store) MapPoints(_ context.Context, sessionID uuid.UUID) ([]db.MapPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailQuery != nil {
		return nil, s.FailQuery
	}
	points := []db.MapPoint{}
	for _, m := range s.measurements {
		if m.SessionID == sessionID {
			points = append(points, db.MapPoint{
				Latitude:   m.Latitude,
				Longitude:  m.Longitude,
				RSSI:       m.RSSI,
				Technology: m.Technology,
				RecordedAt: m.RecordedAt,
			})
		}
	}
	return points, nil
}

func (s *Store) EachMeasurement(_ context.Context, sessionID uuid.UUID, fn func(*db.NetworkMeasurement) error) error {
	s.mu.Lock()
	if s.FailQuery != nil {
		s.mu.Unlock()
		return s.FailQuery
	}
	var rows []db.NetworkMeasurement
	for _, m := range s.measurements {
		if m.SessionID == sessionID {
			rows = append(rows, m)
		}
	}
	s.mu.Unlock()

	for i := range rows {
		if err := fn(&rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// Counts reports how many rows of each kind are stored for a session.
type Counts struct {
	Measurements, SpeedTests, Events, MosFeedback int
}

func (s *Store) Counts(sessionID uuid.UUID) Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c Counts
	for _, m := range s.measurements {
		if m.SessionID == sessionID {
			c.Measurements++
		}
	}
	for _, st := range s.speedTests {
		if st.SessionID == sessionID {
			c.SpeedTests++
		}
	}
	for _, e := range s.events {
		if e.SessionID == sessionID {
			c.Events++
		}
	}
	for _, f := range s.feedback {
		if f.SessionID == sessionID {
			c.MosFeedback++
		}
	}
	return c
}

// ErrInjected is a convenience value for FailInsert and FailQuery.
var ErrInjected = errors.New("injected failure")
