package internal

import (
	"errors"
	"testing"
)

func TestParseTimecode(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"00:00:00,000", 0, false},
		{"00:01:30,500", 90500, false},
		{"01:23:45,123", 5025123, false},
		{"99:59:59,999", 359999999, false},
		{"0:01:30,500", 0, true},    // one-digit hours
		{"00:01:30.500", 0, true},   // wrong separator
		{"00:01:30,50", 0, true},    // two-digit milliseconds
		{"00:01:30", 0, true},       // missing milliseconds
		{"ab:cd:ef,ghi", 0, true},   // non-numeric
		{"00:01:30,500x", 0, true},  // trailing garbage
		{" 00:01:30,500", 0, true},  // leading whitespace
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimecode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimecode(%q) = %d, want error", tt.input, got)
				}
				if !errors.Is(err, ErrBadTimecode) {
					t.Errorf("ParseTimecode(%q) error = %v, want ErrBadTimecode", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimecode(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTimecode(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatTimecode(t *testing.T) {
	tests := []struct {
		ms   int
		want string
	}{
		{0, "00:00:00"},
		{90500, "00:01:30"},
		{5025123, "01:23:45"},
		{999, "00:00:00"},
		// Hours are not capped at two digits.
		{100 * 3600000, "100:00:00"},
	}

	for _, tt := range tests {
		got := FormatTimecode(tt.ms)
		if got != tt.want {
			t.Errorf("FormatTimecode(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

// FormatTimecode drops milliseconds, so a round trip through both functions
// is exact only modulo the sub-second part.
func TestTimecodeRoundTrip(t *testing.T) {
	for _, ms := range []int{0, 999, 90500, 5025123, 86399999} {
		formatted := FormatTimecode(ms) + ",000"
		back, err := ParseTimecode(formatted)
		if err != nil {
			t.Fatalf("ParseTimecode(%q) failed: %v", formatted, err)
		}
		if back != ms-(ms%1000) {
			t.Errorf("round trip of %d = %d, want %d", ms, back, ms-(ms%1000))
		}
	}
}
