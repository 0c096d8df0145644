/*
Package aggregate collapses an ordered sample sequence into coarser buckets
for the weekly and monthly chart views.

# Timeframes

  - daily: identity, the input slice is returned untouched
  - weekly: every 7 consecutive samples form a bucket, the last bucket may be shorter
  - monthly: a bucket closes when the next sample falls in a different month

Each bucket becomes one point whose timestamp is the first sample's timestamp
and whose value is the arithmetic mean of the bucket. Nothing is sorted: the
input is assumed to be in ascending time order already.

# Usage

	data, err := aggregate.Apply(samples, series.Weekly)
	if err != nil {
	    log.Fatal(err)
	}

Monthly grouping compares only adjacent samples, so data that goes
Jan, Feb, Jan produces three buckets. Month comparison ignores the year, so
two adjacent samples twelve months apart share a bucket.

The bucket statistics (sum, count, min, max) are available through
WeeklyBuckets and MonthlyBuckets.

Unparseable timestamps only matter for the monthly view and are reported as
*AggregationError.
*/
package aggregate
