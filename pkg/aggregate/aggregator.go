package aggregate

import (
	"github.com/nicktill/tinychart/pkg/series"
)

// WeekSize is the number of consecutive samples in a weekly bucket.
const WeekSize = 7

// Func transforms an ordered sample sequence into a coarser one.
type Func func(samples []series.Sample) ([]series.Sample, error)

// For returns the aggregation function for a timeframe.
// Unrecognized timeframes get the daily identity.
func For(tf series.Timeframe) Func {
	switch tf {
	case series.Weekly:
		return func(samples []series.Sample) ([]series.Sample, error) {
			return Weekly(samples), nil
		}
	case series.Monthly:
		return Monthly
	default:
		return func(samples []series.Sample) ([]series.Sample, error) {
			return Daily(samples), nil
		}
	}
}

// Apply aggregates samples for the given timeframe.
func Apply(samples []series.Sample, tf series.Timeframe) ([]series.Sample, error) {
	return For(tf)(samples)
}

// Daily returns samples unchanged.
func Daily(samples []series.Sample) []series.Sample {
	return samples
}

// Weekly averages every run of WeekSize consecutive samples.
// The final run may be shorter.
func Weekly(samples []series.Sample) []series.Sample {
	return toSamples(WeeklyBuckets(samples))
}

// WeeklyBuckets groups samples into fixed-size runs of WeekSize.
func WeeklyBuckets(samples []series.Sample) []Bucket {
	buckets := make([]Bucket, 0, (len(samples)+WeekSize-1)/WeekSize)

	var current Bucket
	for i, s := range samples {
		current.add(s)
		if (i+1)%WeekSize == 0 || i == len(samples)-1 {
			buckets = append(buckets, current)
			current = Bucket{}
		}
	}

	return buckets
}

// Monthly averages runs of adjacent samples that share a calendar month.
func Monthly(samples []series.Sample) ([]series.Sample, error) {
	buckets, err := MonthlyBuckets(samples)
	if err != nil {
		return nil, err
	}
	return toSamples(buckets), nil
}

// MonthlyBuckets closes the current bucket whenever the next sample's month
// differs from the current sample's month. Only adjacent pairs are compared,
// so a month that reappears later opens a new bucket.
func MonthlyBuckets(samples []series.Sample) ([]Bucket, error) {
	if len(samples) == 0 {
		return []Bucket{}, nil
	}

	buckets := make([]Bucket, 0)

	var (
		current Bucket
		month   int
		parsed  bool
	)
	for i, s := range samples {
		current.add(s)

		if i == len(samples)-1 {
			buckets = append(buckets, current)
			break
		}

		if !parsed {
			m, err := monthOf(samples, i)
			if err != nil {
				return nil, err
			}
			month, parsed = m, true
		}

		next, err := monthOf(samples, i+1)
		if err != nil {
			return nil, err
		}
		if next != month {
			buckets = append(buckets, current)
			current = Bucket{}
		}
		month = next
	}

	return buckets, nil
}

// monthOf parses the month of samples[i].
// Only the month is compared, not the year.
func monthOf(samples []series.Sample, i int) (int, error) {
	t, err := samples[i].Time()
	if err != nil {
		return 0, &AggregationError{Timeframe: series.Monthly, Index: i, Err: err}
	}
	return int(t.Month()), nil
}
