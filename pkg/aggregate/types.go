package aggregate

import (
	"fmt"

	"github.com/nicktill/tinychart/pkg/series"
)

// Bucket is a contiguous group of input samples collapsed into one point.
type Bucket struct {
	// Timestamp of the first sample in the bucket
	Start string

	// Aggregated values
	Sum   float64
	Count int
	Min   float64
	Max   float64
}

// add folds a sample into the bucket.
func (b *Bucket) add(s series.Sample) {
	if b.Count == 0 {
		b.Start = s.Timestamp
		b.Min = s.Value
		b.Max = s.Value
	}
	b.Sum += s.Value
	b.Count++
	if s.Value < b.Min {
		b.Min = s.Value
	}
	if s.Value > b.Max {
		b.Max = s.Value
	}
}

// Average calculates the mean value
func (b Bucket) Average() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.Sum / float64(b.Count)
}

// ToSample converts a bucket to its aggregated sample.
func (b Bucket) ToSample() series.Sample {
	return series.Sample{Timestamp: b.Start, Value: b.Average()}
}

// AggregationError reports input the aggregator could not group.
type AggregationError struct {
	Timeframe series.Timeframe
	Index     int
	Err       error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s aggregation failed at sample %d: %v", e.Timeframe, e.Index, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

func toSamples(buckets []Bucket) []series.Sample {
	out := make([]series.Sample, len(buckets))
	for i, b := range buckets {
		out[i] = b.ToSample()
	}
	return out
}
