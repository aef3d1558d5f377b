package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Timestamp renders t as RFC3339 in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ElapsedMillis is the whole milliseconds since start.
func ElapsedMillis(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
