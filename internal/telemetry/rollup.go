package telemetry

import (
	"context"

	"drivepulse/internal/db"
)

// RollupSource produces the aggregates stored on a session when it ends.
type RollupSource interface {
	Rollup(ctx context.Context, s *db.Session, req *EndRequest) (db.Rollup, error)
}

// ClientRollups stores the client-computed values from the end request
// verbatim. They are not checked against the uploaded rows.
type ClientRollups struct{}

func (ClientRollups) Rollup(_ context.Context, _ *db.Session, req *EndRequest) (db.Rollup, error) {
	return db.Rollup{
		AvgRSSI:         req.AvgRSSI,
		TotalDistanceKm: req.TotalDistanceKm,
		DropsCount:      req.DropsCount,
		HandoversCount:  req.HandoversCount,
		SpeedtestCount:  req.SpeedtestCount,
		ErrorCount:      req.ErrorCount,
	}, nil
}
