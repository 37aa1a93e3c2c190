package otime

// TimeRange is a half-open range: Start is inclusive, Start+Duration is
// exclusive.
type TimeRange struct {
	Start    RationalTime
	Duration RationalTime
}

// NewRange returns a TimeRange from a start time and a duration.
func NewRange(start, duration RationalTime) TimeRange {
	return TimeRange{Start: start, Duration: duration}
}

// RangeFromStartEnd returns a TimeRange covering [start, end).
func RangeFromStartEnd(start, end RationalTime) TimeRange {
	return TimeRange{Start: start, Duration: end.Sub(start)}
}

// EndExclusive returns the first time after the range.
func (r TimeRange) EndExclusive() RationalTime {
	return r.Start.Add(r.Duration)
}

// EndInclusive returns the last frame inside the range.
func (r TimeRange) EndInclusive() RationalTime {
	return r.Start.Add(r.Duration).Sub(FromFrames(1, r.Start.Rate()))
}

// Extended returns the range grown by before frames at the head and
// after frames at the tail.
func (r TimeRange) Extended(before, after RationalTime) TimeRange {
	start := r.Start.Sub(before)
	duration := r.Duration.Add(before).Add(after)
	return TimeRange{Start: start, Duration: duration}
}
