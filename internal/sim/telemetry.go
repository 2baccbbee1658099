package sim

// Sample is one speed reading of a body.
type Sample struct {
	Step  int64   `json:"step"`
	Time  float64 `json:"time"`
	Speed float64 `json:"speed"`
}

// Telemetry keeps a bounded FIFO of speed samples per body ID.
type Telemetry struct {
	capacity int
	series   map[string][]Sample
}

func NewTelemetry(capacity int) *Telemetry {
	if capacity < 1 {
		capacity = 1
	}
	return &Telemetry{capacity: capacity, series: make(map[string][]Sample)}
}

func (t *Telemetry) record(bodyID string, s Sample) {
	series := append(t.series[bodyID], s)
	if over := len(series) - t.capacity; over > 0 {
		// Compact once the backing array has doubled so the drop is amortised.
		if cap(series) >= 2*t.capacity {
			series = append(make([]Sample, 0, t.capacity+1), series[over:]...)
		} else {
			series = series[over:]
		}
	}
	t.series[bodyID] = series
}

// Series returns a copy of the samples recorded for bodyID, oldest first.
func (t *Telemetry) Series(bodyID string) []Sample {
	return append([]Sample(nil), t.series[bodyID]...)
}

func (t *Telemetry) forget(bodyID string) {
	delete(t.series, bodyID)
}
