package task

import "encoding/json"

// WeeklyStats is the backend's weekly completion aggregate. Numeric fields
// that the backend may omit are pointers so "unknown" is distinguishable
// from zero.
type WeeklyStats struct {
	WeekStart       string   `json:"week_start"`
	WeekEnd         string   `json:"week_end"`
	TotalCreated    int      `json:"total_created"`
	TotalCompleted  int      `json:"total_completed"`
	CompletionRate  *float64 `json:"completion_rate"`
	AvgLifetimeDays *float64 `json:"avg_lifetime_days"`
	AdoptionRate    *float64 `json:"adoption_rate"`
	UpdatedAt       string   `json:"updated_at"`
}

// DecodeWeeklyStats parses a raw stats object, returning nil when the
// payload is empty or null (the backend has no stats yet).
func DecodeWeeklyStats(raw json.RawMessage) (*WeeklyStats, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var stats WeeklyStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
