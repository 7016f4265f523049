package models

// StatsSnapshot is the body of GET /stats.
type StatsSnapshot struct {
	Today             string     `json:"today,omitempty"`
	TotalUniqueTokens float64    `json:"total_unique_tokens,omitempty"`
	TodayStats        TodayStats `json:"today_stats"`
	RecentDays        []DayStat  `json:"recent_days"` // newest first
}

// TodayStats are the aggregates shown on the stat cards.
type TodayStats struct {
	TokensTracked  float64 `json:"tokens_tracked"`
	TotalVolume    float64 `json:"total_volume"`
	NewTokens      float64 `json:"new_tokens"`
	AvgPriceChange float64 `json:"avg_price_change"`
}

// DayStat is one day of the recent history used by the charts.
type DayStat struct {
	Date      string  `json:"date"`
	Tokens    float64 `json:"tokens,omitempty"`
	Volume    float64 `json:"volume"`
	NewTokens float64 `json:"new_tokens"`
}

// Chronological returns the recent days oldest first as a new slice.
// The receiver is left untouched, so calling it twice never double-reverses.
func (s *StatsSnapshot) Chronological() []DayStat {
	if s == nil || len(s.RecentDays) == 0 {
		return nil
	}
	out := make([]DayStat, len(s.RecentDays))
	for i, d := range s.RecentDays {
		out[len(out)-1-i] = d
	}
	return out
}
