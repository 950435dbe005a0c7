// Package summary computes the dashboard KPI rollup: totals over a recent
// period with percent change against the directly preceding period of
// equal length. Ratios are always derived from the summed base metrics,
// never averaged across rows, matching the aggregation invariant of the
// normalization pipeline.
package summary
