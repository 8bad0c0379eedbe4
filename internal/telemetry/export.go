package telemetry

import (
	"encoding/csv"
	"strconv"
	"time"

	"drivepulse/internal/db"
)

// csvHeader follows the network_measurements column order.
var csvHeader = []string{
	"id", "session_id", "technology",
	"rssi", "rsrp", "sinr", "cell_id", "frequency", "bandwidth", "pci",
	"latitude", "longitude", "recorded_at",
}

func measurementRecord(m *db.NetworkMeasurement) []string {
	return []string{
		strconv.FormatInt(m.ID, 10),
		m.SessionID.String(),
		m.Technology,
		optInt(m.RSSI),
		optInt(m.RSRP),
		optInt(m.SINR),
		optInt64(m.CellID),
		optInt(m.Frequency),
		optInt(m.Bandwidth),
		optInt(m.PCI),
		formatFloat(m.Latitude),
		formatFloat(m.Longitude),
		m.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
}

func writeHeader(w *csv.Writer) error {
	return w.Write(csvHeader)
}

// Nulls are written as empty cells.
func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
