// Package series defines the sample and timeframe types shared by the
// data source, the aggregator and the chart renderer.
package series

import (
	"fmt"
	"strings"
	"time"
)

// Sample is one raw timestamped measurement as served by the data source.
// The timestamp is kept verbatim so aggregated buckets report exactly what
// the source sent.
type Sample struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Timeframe is the aggregation granularity selected by the user.
type Timeframe string

const (
	Daily   Timeframe = "daily"
	Weekly  Timeframe = "weekly"
	Monthly Timeframe = "monthly"
)

// Timeframes lists the selectable view modes in display order.
var Timeframes = []Timeframe{Daily, Weekly, Monthly}

// ParseTimeframe maps user input to a Timeframe.
// Unknown values are returned as-is with ok=false; callers that dispatch on
// them fall back to the daily view.
func ParseTimeframe(s string) (Timeframe, bool) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	switch tf {
	case Daily, Weekly, Monthly:
		return tf, true
	case "":
		return Daily, true
	}
	return tf, false
}

// Label returns the button caption for the timeframe.
func (tf Timeframe) Label() string {
	switch tf {
	case Weekly:
		return "Weekly"
	case Monthly:
		return "Monthly"
	default:
		return "Daily"
	}
}

// timestampLayouts are tried in order when parsing a sample timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
}

// ParseTimestamp parses an ISO-8601 style timestamp.
// Date-only and zone-less values are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// Time parses the sample timestamp.
func (s Sample) Time() (time.Time, error) {
	return ParseTimestamp(s.Timestamp)
}

// Values extracts the values of samples in order.
func Values(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}
