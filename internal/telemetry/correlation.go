package telemetry

const (
	InterpretationGood    = "Good Signal, Good Quality"
	InterpretationPoor    = "Poor Signal, Poor Quality"
	InterpretationMixed   = "Mixed/Inconclusive"
	InterpretationUnknown = "Unknown"
)

// Thresholds are compared strictly: an average of exactly -90 dBm or a
// rating of exactly 3 is never "good".
const (
	goodRSSIAbove = -90.0
	poorRSSIBelow = -110.0
	neutralMOS    = 3.0
)

// Classify maps a session's mean RSSI and mean rating to a coarse
// interpretation. The two means are taken over the whole session
// independently and are not paired by time or place.
func Classify(avgRSSI, avgMOS *float64) string {
	if avgRSSI == nil || avgMOS == nil {
		return InterpretationUnknown
	}
	rssi, mos := *avgRSSI, *avgMOS
	switch {
	case rssi > goodRSSIAbove && mos > neutralMOS:
		return InterpretationGood
	case rssi < poorRSSIBelow && mos < neutralMOS:
		return InterpretationPoor
	default:
		return InterpretationMixed
	}
}
