// Package otime provides frame-exact time values tied to a frame rate.
// All cut arithmetic in this project is expressed with RationalTime so
// that positions stay bit-exact regardless of the rates involved.
package otime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RationalTime is a point in time (or a duration) measured as a value at
// a given rate, mirroring the editorial convention of frames-per-second.
type RationalTime struct {
	value float64
	rate  float64
}

// New returns a RationalTime with the given value and rate.
func New(value, rate float64) RationalTime {
	return RationalTime{value: value, rate: rate}
}

// FromFrames returns a RationalTime representing a whole number of frames.
func FromFrames(frames int, rate float64) RationalTime {
	return RationalTime{value: float64(frames), rate: rate}
}

// FromSeconds returns a RationalTime representing seconds at the given rate.
func FromSeconds(seconds, rate float64) RationalTime {
	return RationalTime{value: seconds * rate, rate: rate}
}

// Value returns the raw value.
func (t RationalTime) Value() float64 { return t.value }

// Rate returns the rate the value is expressed at.
func (t RationalTime) Rate() float64 { return t.rate }

// IsZero reports whether the time is the zero value (no rate established).
func (t RationalTime) IsZero() bool { return t.value == 0 && t.rate == 0 }

// RescaledTo returns the same time expressed at another rate.
func (t RationalTime) RescaledTo(rate float64) RationalTime {
	if t.rate == rate || t.rate == 0 {
		return RationalTime{value: t.value, rate: rate}
	}
	return RationalTime{value: t.value * rate / t.rate, rate: rate}
}

// ToFrames returns the time as an absolute frame count, rounded to the
// nearest frame.
func (t RationalTime) ToFrames() int {
	return int(math.Round(t.value))
}

// ToSeconds returns the time in seconds.
func (t RationalTime) ToSeconds() float64 {
	if t.rate == 0 {
		return 0
	}
	return t.value / t.rate
}

// Add returns t + o, expressed at t's rate.
func (t RationalTime) Add(o RationalTime) RationalTime {
	o = o.RescaledTo(t.rate)
	return RationalTime{value: t.value + o.value, rate: t.rate}
}

// Sub returns t - o, expressed at t's rate.
func (t RationalTime) Sub(o RationalTime) RationalTime {
	o = o.RescaledTo(t.rate)
	return RationalTime{value: t.value - o.value, rate: t.rate}
}

// Cmp compares t and o, returning -1, 0 or 1.
func (t RationalTime) Cmp(o RationalTime) int {
	ov := o.RescaledTo(t.rate).value
	switch {
	case t.value < ov:
		return -1
	case t.value > ov:
		return 1
	default:
		return 0
	}
}

// Less reports whether t is strictly before o.
func (t RationalTime) Less(o RationalTime) bool { return t.Cmp(o) < 0 }

// Greater reports whether t is strictly after o.
func (t RationalTime) Greater(o RationalTime) bool { return t.Cmp(o) > 0 }

// Equal reports whether t and o denote the same time.
func (t RationalTime) Equal(o RationalTime) bool { return t.Cmp(o) == 0 }

// ToTimecode formats the time as a non-drop HH:MM:SS:FF timecode.
func (t RationalTime) ToTimecode() string {
	fps := int(math.Round(t.rate))
	if fps <= 0 {
		fps = 24
	}
	totalFrames := t.ToFrames()
	neg := ""
	if totalFrames < 0 {
		neg = "-"
		totalFrames = -totalFrames
	}
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%s%02d:%02d:%02d:%02d", neg, hours, minutes, seconds, frames)
}

// FromTimecode parses a HH:MM:SS:FF timecode at the given rate.
func FromTimecode(tc string, rate float64) (RationalTime, error) {
	parts := strings.Split(strings.TrimSpace(tc), ":")
	if len(parts) != 4 {
		return RationalTime{}, fmt.Errorf("invalid timecode %q", tc)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return RationalTime{}, fmt.Errorf("invalid timecode %q: %w", tc, err)
		}
		vals[i] = v
	}
	fps := int(math.Round(rate))
	if fps <= 0 {
		return RationalTime{}, fmt.Errorf("invalid rate %v for timecode %q", rate, tc)
	}
	if vals[3] >= fps {
		return RationalTime{}, fmt.Errorf("frame %d out of range for %d fps in timecode %q", vals[3], fps, tc)
	}
	frames := ((vals[0]*60+vals[1])*60+vals[2])*fps + vals[3]
	return FromFrames(frames, rate), nil
}

func (t RationalTime) String() string {
	return fmt.Sprintf("RationalTime(%g, %g)", t.value, t.rate)
}
