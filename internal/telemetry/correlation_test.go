package telemetry

import "testing"

func f(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rssi *float64
		mos  *float64
		want string
	}{
		{name: "good", rssi: f(-85), mos: f(4), want: InterpretationGood},
		{name: "poor", rssi: f(-115), mos: f(2), want: InterpretationPoor},
		{name: "mixed middle", rssi: f(-100), mos: f(3.5), want: InterpretationMixed},
		{name: "strong signal bad rating", rssi: f(-70), mos: f(1), want: InterpretationMixed},
		{name: "weak signal good rating", rssi: f(-120), mos: f(5), want: InterpretationMixed},
		{name: "rssi exactly -90 is not good", rssi: f(-90), mos: f(4), want: InterpretationMixed},
		{name: "mos exactly 3 is not good", rssi: f(-80), mos: f(3), want: InterpretationMixed},
		{name: "rssi exactly -110 is not poor", rssi: f(-110), mos: f(2), want: InterpretationMixed},
		{name: "mos exactly 3 is not poor", rssi: f(-115), mos: f(3), want: InterpretationMixed},
		{name: "zero rssi is a value", rssi: f(0), mos: f(4), want: InterpretationGood},
		{name: "missing rssi", rssi: nil, mos: f(4), want: InterpretationUnknown},
		{name: "missing mos", rssi: f(-85), mos: nil, want: InterpretationUnknown},
		{name: "both missing", want: InterpretationUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.rssi, tt.mos); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
