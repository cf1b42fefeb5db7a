package translator

import (
	"errors"
	"strings"
	"time"
)

var errUnparsableTimestamp = errors.New("unparsable ISO-8601 timestamp")

var offsetLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-0700",
	"2006-01-02T15:04:05-07",
	"2006-01-02 15:04:05-07",
	"2006-01-02T15:04:05Z07:00:00",
	"2006-01-02 15:04:05Z07:00:00",
	"2006-01-02T15:04Z07:00",
	// basic format
	"20060102T150405Z07:00",
	"20060102T150405-0700",
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102T150405",
}

// parseLastUpdate reads an ISO-8601 instant in extended or basic format, with a T or space
// separator. Offsets may be Z, ±hh, ±hhmm, ±hh:mm or ±hh:mm:ss and an instant without an
// offset is taken to be UTC. Fractional seconds are accepted after the seconds field.
func parseLastUpdate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errUnparsableTimestamp
	}

	for _, layout := range offsetLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}

	for _, layout := range localLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, errUnparsableTimestamp
}
