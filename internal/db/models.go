package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Session is one bounded period of telemetry collection owned by a user.
//
// The rollup columns (AvgRSSI through ErrorCount) are computed by the
// client and written when the session is ended. Nothing on the server
// derives them from the raw rows.
type Session struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	StartTime time.Time  `gorm:"not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	AvgRSSI         *float64 `gorm:"column:avg_rssi" json:"avg_rssi"`
	TotalDistanceKm float64  `gorm:"not null;default:0" json:"total_distance_km"`
	DropsCount      int      `gorm:"not null;default:0" json:"drops_count"`
	HandoversCount  int      `gorm:"not null;default:0" json:"handovers_count"`
	SpeedtestCount  int      `gorm:"not null;default:0" json:"speedtest_count"`
	ErrorCount      int      `gorm:"not null;default:0" json:"error_count"`

	// User is only declared so AutoMigrate emits the foreign key; it is
	// never preloaded.
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (s *Session) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Rollup is the set of session aggregates written at session end.
type Rollup struct {
	AvgRSSI         *float64
	TotalDistanceKm float64
	DropsCount      int
	HandoversCount  int
	SpeedtestCount  int
	ErrorCount      int
}

// Apply overwrites the session's rollup columns.
func (r Rollup) Apply(s *Session) {
	s.AvgRSSI = r.AvgRSSI
	s.TotalDistanceKm = r.TotalDistanceKm
	s.DropsCount = r.DropsCount
	s.HandoversCount = r.HandoversCount
	s.SpeedtestCount = r.SpeedtestCount
	s.ErrorCount = r.ErrorCount
}

// NetworkMeasurement is a single radio sample. Column order here is the
// column order of the CSV export.
type NetworkMeasurement struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null" json:"session_id"`

	// Technology is the radio access class: 2G, 3G, 4G or 5G.
	Technology string `gorm:"size:16;not null" json:"technology"`

	RSSI      *int   `gorm:"column:rssi" json:"rssi"`
	RSRP      *int   `gorm:"column:rsrp" json:"rsrp"`
	SINR      *int   `gorm:"column:sinr" json:"sinr"`
	CellID    *int64 `gorm:"column:cell_id" json:"cell_id"`
	Frequency *int   `gorm:"column:frequency" json:"frequency"`
	Bandwidth *int   `gorm:"column:bandwidth" json:"bandwidth"`
	PCI       *int   `gorm:"column:pci" json:"pci"`

	Latitude   float64   `gorm:"not null" json:"latitude"`
	Longitude  float64   `gorm:"not null" json:"longitude"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`

	Session *Session `gorm:"foreignKey:SessionID;constraint:OnDelete:RESTRICT" json:"-"`
}

type SpeedTest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null" json:"session_id"`

	DownloadMbps float64  `gorm:"not null" json:"download_mbps"`
	UploadMbps   float64  `gorm:"not null" json:"upload_mbps"`
	PingMs       float64  `gorm:"not null" json:"ping_ms"`
	JitterMs     *float64 `json:"jitter_ms"`

	Latitude   float64   `gorm:"not null" json:"latitude"`
	Longitude  float64   `gorm:"not null" json:"longitude"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`

	Session *Session `gorm:"foreignKey:SessionID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (s *SpeedTest) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Event marks something that happened on the network during a drive:
// handover, drop, call_start or speed_test.
type Event struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null" json:"session_id"`

	EventType      string    `gorm:"size:32;not null" json:"event_type"`
	Latitude       float64   `gorm:"not null" json:"latitude"`
	Longitude      float64   `gorm:"not null" json:"longitude"`
	SignalStrength *int      `json:"signal_strength"`
	RecordedAt     time.Time `gorm:"not null" json:"recorded_at"`

	// Details holds optional context reported with the event (e.g. the
	// source and target cell of a handover) without schema changes.
	Details datatypes.JSONMap `gorm:"type:json" json:"details,omitempty"`

	Session *Session `gorm:"foreignKey:SessionID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// MosFeedback is a user-reported 1-5 quality rating.
type MosFeedback struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null" json:"session_id"`

	Rating     int     `gorm:"not null" json:"rating"`
	Emotion    *string `gorm:"size:64" json:"emotion"`
	Comment    *string `gorm:"type:text" json:"comment"`
	Technology *string `gorm:"size:16" json:"technology"`

	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	CreatedAt time.Time `json:"created_at"`

	Session *Session `gorm:"foreignKey:SessionID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (MosFeedback) TableName() string {
	return "mos_feedback"
}

func (f *MosFeedback) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Batch is one upload's worth of rows, already tagged with their session.
type Batch struct {
	Measurements []NetworkMeasurement
	SpeedTests   []SpeedTest
	Events       []Event
	MosFeedback  []MosFeedback
}

// Len is the total number of rows in the batch.
func (b Batch) Len() int {
	return len(b.Measurements) + len(b.SpeedTests) + len(b.Events) + len(b.MosFeedback)
}

// MapPoint is the projection of a measurement used to draw coverage maps.
type MapPoint struct {
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	RSSI       *int      `gorm:"column:rssi" json:"rssi"`
	Technology string    `json:"tech"`
	RecordedAt time.Time `json:"time"`
}
