package telemetry

import (
	"time"

	"github.com/google/uuid"

	"drivepulse/internal/db"
)

// EndRequest is the body of PATCH /sessions/{id}/end.
type EndRequest struct {
	EndTime         time.Time `json:"end_time" validate:"required"`
	AvgRSSI         *float64  `json:"avg_rssi"`
	TotalDistanceKm float64   `json:"total_distance_km" validate:"gte=0"`
	DropsCount      int       `json:"drops_count" validate:"gte=0"`
	HandoversCount  int       `json:"handovers_count" validate:"gte=0"`
	SpeedtestCount  int       `json:"speedtest_count" validate:"gte=0"`
	ErrorCount      int       `json:"error_count" validate:"gte=0"`
}

type MeasurementInput struct {
	Technology string    `json:"technology" validate:"required,max=16"`
	RSSI       *int      `json:"rssi"`
	RSRP       *int      `json:"rsrp"`
	SINR       *int      `json:"sinr"`
	CellID     *int64    `json:"cell_id"`
	Frequency  *int      `json:"frequency"`
	Bandwidth  *int      `json:"bandwidth"`
	PCI        *int      `json:"pci"`
	Latitude   *float64  `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude  *float64  `json:"longitude" validate:"required,min=-180,max=180"`
	RecordedAt time.Time `json:"recorded_at" validate:"required"`
}

type SpeedTestInput struct {
	DownloadMbps *float64  `json:"download_mbps" validate:"required,gte=0"`
	UploadMbps   *float64  `json:"upload_mbps" validate:"required,gte=0"`
	PingMs       *float64  `json:"ping_ms" validate:"required,gte=0"`
	JitterMs     *float64  `json:"jitter_ms" validate:"omitempty,gte=0"`
	Latitude     *float64  `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude    *float64  `json:"longitude" validate:"required,min=-180,max=180"`
	RecordedAt   time.Time `json:"recorded_at" validate:"required"`
}

type EventInput struct {
	EventType      string         `json:"event_type" validate:"required,max=32"`
	Latitude       *float64       `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude      *float64       `json:"longitude" validate:"required,min=-180,max=180"`
	SignalStrength *int           `json:"signal_strength"`
	RecordedAt     time.Time      `json:"recorded_at" validate:"required"`
	Details        map[string]any `json:"details,omitempty"`
}

type MosFeedbackInput struct {
	Rating     int      `json:"rating" validate:"min=1,max=5"`
	Emotion    *string  `json:"emotion" validate:"omitempty,max=64"`
	Comment    *string  `json:"comment"`
	Technology *string  `json:"technology" validate:"omitempty,max=16"`
	Latitude   *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude  *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

// BatchRequest is the body of POST /upload/batch. Any of the lists may
// be empty.
type BatchRequest struct {
	SessionID    uuid.UUID          `json:"session_id" validate:"required"`
	Measurements []MeasurementInput `json:"measurements" validate:"dive"`
	SpeedTests   []SpeedTestInput   `json:"speed_tests" validate:"dive"`
	Events       []EventInput       `json:"events" validate:"dive"`
	MosFeedback  []MosFeedbackInput `json:"mos_feedback" validate:"dive"`
}

// BatchResult is returned after a successful upload.
type BatchResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SessionView is the public representation of a session.
type SessionView struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

func viewOf(s *db.Session) *SessionView {
	return &SessionView{
		ID:        s.ID,
		UserID:    s.UserID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
}

// Summary is the response of the session summary endpoint. AvgMOS is
// computed from the stored feedback at query time; the remaining fields
// are the rollups stored at session end.
type Summary struct {
	SessionID       uuid.UUID `json:"session_id"`
	AvgRSSI         *float64  `json:"avg_rssi"`
	AvgMOS          *float64  `json:"avg_mos"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	TotalDrops      int       `json:"total_drops"`
	TotalHandovers  int       `json:"total_handovers"`
	TotalSpeedTests int       `json:"total_speed_tests"`
}

type Correlation struct {
	AvgRSSI        *float64 `json:"avg_rssi"`
	AvgMOS         *float64 `json:"avg_mos"`
	Interpretation string   `json:"interpretation"`
}

func (r *BatchRequest) toBatch(now time.Time) db.Batch {
	b := db.Batch{
		Measurements: make([]db.NetworkMeasurement, 0, len(r.Measurements)),
		SpeedTests:   make([]db.SpeedTest, 0, len(r.SpeedTests)),
		Events:       make([]db.Event, 0, len(r.Events)),
		MosFeedback:  make([]db.MosFeedback, 0, len(r.MosFeedback)),
	}

	for _, m := range r.Measurements {
		b.Measurements = append(b.Measurements, db.NetworkMeasurement{
			SessionID:  r.SessionID,
			Technology: m.Technology,
			RSSI:       m.RSSI,
			RSRP:       m.RSRP,
			SINR:       m.SINR,
			CellID:     m.CellID,
			Frequency:  m.Frequency,
			Bandwidth:  m.Bandwidth,
			PCI:        m.PCI,
			Latitude:   *m.Latitude,
			Longitude:  *m.Longitude,
			RecordedAt: m.RecordedAt,
		})
	}

	for _, st := range r.SpeedTests {
		b.SpeedTests = append(b.SpeedTests, db.SpeedTest{
			SessionID:    r.SessionID,
			DownloadMbps: *st.DownloadMbps,
			UploadMbps:   *st.UploadMbps,
			PingMs:       *st.PingMs,
			JitterMs:     st.JitterMs,
			Latitude:     *st.Latitude,
			Longitude:    *st.Longitude,
			RecordedAt:   st.RecordedAt,
		})
	}

	for _, e := range r.Events {
		ev := db.Event{
			SessionID:      r.SessionID,
			EventType:      e.EventType,
			Latitude:       *e.Latitude,
			Longitude:      *e.Longitude,
			SignalStrength: e.SignalStrength,
			RecordedAt:     e.RecordedAt,
		}
		if len(e.Details) > 0 {
			ev.Details = make(map[string]any, len(e.Details))
			for k, v := range e.Details {
				ev.Details[k] = v
			}
		}
		b.Events = append(b.Events, ev)
	}

	for _, f := range r.MosFeedback {
		b.MosFeedback = append(b.MosFeedback, db.MosFeedback{
			SessionID:  r.SessionID,
			Rating:     f.Rating,
			Emotion:    f.Emotion,
			Comment:    f.Comment,
			Technology: f.Technology,
			Latitude:   *f.Latitude,
			Longitude:  *f.Longitude,
			CreatedAt:  now,
		})
	}

	return b
}
