package otime

import (
	"testing"
)

func TestFromTimecode(t *testing.T) {
	tests := []struct {
		name       string
		tc         string
		rate       float64
		wantFrames int
		wantErr    bool
	}{
		{"zero", "00:00:00:00", 24, 0, false},
		{"one frame", "00:00:00:01", 24, 1, false},
		{"one second", "00:00:01:00", 24, 24, false},
		{"one minute", "00:01:00:00", 24, 1440, false},
		{"one hour", "01:00:00:00", 24, 86400, false},
		{"one hour 30fps", "01:00:00:00", 30, 108000, false},
		{"mixed", "01:00:02:05", 24, 86453, false},
		{"padded input", " 00:00:10:00 ", 24, 240, false},
		{"missing field", "00:00:00", 24, 0, true},
		{"garbage", "aa:bb:cc:dd", 24, 0, true},
		{"frame beyond rate", "00:00:00:24", 24, 0, true},
		{"zero rate", "00:00:01:00", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromTimecode(tt.tc, tt.rate)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("FromTimecode(%q) expected error, got %v", tt.tc, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromTimecode(%q) unexpected error: %v", tt.tc, err)
			}
			if got.ToFrames() != tt.wantFrames {
				t.Errorf("FromTimecode(%q) = %d frames, want %d", tt.tc, got.ToFrames(), tt.wantFrames)
			}
		})
	}
}

func TestToTimecode(t *testing.T) {
	tests := []struct {
		frames int
		rate   float64
		want   string
	}{
		{0, 24, "00:00:00:00"},
		{23, 24, "00:00:00:23"},
		{24, 24, "00:00:01:00"},
		{86400, 24, "01:00:00:00"},
		{86453, 24, "01:00:02:05"},
		{-24, 24, "-00:00:01:00"},
	}

	for _, tt := range tests {
		got := FromFrames(tt.frames, tt.rate).ToTimecode()
		if got != tt.want {
			t.Errorf("ToTimecode(%d @ %g) = %q, want %q", tt.frames, tt.rate, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, tc := range []string{"00:00:00:00", "00:59:59:23", "12:34:56:07"} {
		rt, err := FromTimecode(tc, 24)
		if err != nil {
			t.Fatalf("FromTimecode(%q): %v", tc, err)
		}
		if got := rt.ToTimecode(); got != tc {
			t.Errorf("round trip %q = %q", tc, got)
		}
	}
}

func TestArithmetic(t *testing.T) {
	a := FromFrames(100, 24)
	b := FromFrames(40, 24)

	if got := a.Add(b).ToFrames(); got != 140 {
		t.Errorf("Add = %d, want 140", got)
	}
	if got := a.Sub(b).ToFrames(); got != 60 {
		t.Errorf("Sub = %d, want 60", got)
	}
	if !b.Less(a) {
		t.Error("expected 40 < 100")
	}
	if !a.Greater(b) {
		t.Error("expected 100 > 40")
	}
	if !a.Equal(FromFrames(100, 24)) {
		t.Error("expected equality")
	}

	// Mixed rates rescale to the receiver's rate.
	c := FromFrames(30, 30) // one second
	sum := FromSeconds(1, 24).Add(c)
	if got := sum.ToFrames(); got != 48 {
		t.Errorf("mixed rate Add = %d frames, want 48", got)
	}
}

func TestRange(t *testing.T) {
	r := NewRange(FromFrames(10, 24), FromFrames(5, 24))
	if got := r.EndExclusive().ToFrames(); got != 15 {
		t.Errorf("EndExclusive = %d, want 15", got)
	}
	if got := r.EndInclusive().ToFrames(); got != 14 {
		t.Errorf("EndInclusive = %d, want 14", got)
	}

	ext := r.Extended(FromFrames(2, 24), FromFrames(3, 24))
	if got := ext.Start.ToFrames(); got != 8 {
		t.Errorf("Extended start = %d, want 8", got)
	}
	if got := ext.Duration.ToFrames(); got != 10 {
		t.Errorf("Extended duration = %d, want 10", got)
	}

	se := RangeFromStartEnd(FromFrames(10, 24), FromFrames(20, 24))
	if got := se.Duration.ToFrames(); got != 10 {
		t.Errorf("RangeFromStartEnd duration = %d, want 10", got)
	}
}
