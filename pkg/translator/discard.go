package translator

import "time"

type DiscardReason string

const (
	DiscardUnavailable       DiscardReason = "unavailable"
	DiscardMissingPosition   DiscardReason = "missing_position"
	DiscardMissingLastUpdate DiscardReason = "missing_last_update"
	DiscardInvalidLastUpdate DiscardReason = "invalid_last_update"
	DiscardMissingField      DiscardReason = "missing_field"
	DiscardInvalidField      DiscardReason = "invalid_field"
)

// DiscardStats counts vehicles left out of a feed, by reason
type DiscardStats map[DiscardReason]int

func (s DiscardStats) add(reason DiscardReason) {
	s[reason]++
}

func (s DiscardStats) Total() int {
	total := 0
	for _, count := range s {
		total += count
	}
	return total
}

func (s DiscardStats) clone() DiscardStats {
	cloned := make(DiscardStats, len(s))
	for reason, count := range s {
		cloned[reason] = count
	}
	return cloned
}

type translationElasticEvent struct {
	Timestamp time.Time

	Feed      string
	Vehicles  int
	Published int
	Discarded DiscardStats
}
