package internal

import (
	"fmt"
	"regexp"
	"strconv"
)

var timecodeRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3})$`)

// ParseTimecode converts an SRT timecode (HH:MM:SS,mmm) to milliseconds.
// The match is fixed-width: wrong digit counts or separators fail, but
// there is no range validation (99:99:99,999 parses).
func ParseTimecode(timecode string) (int, error) {
	m := timecodeRe.FindStringSubmatch(timecode)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimecode, timecode)
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	milliseconds, _ := strconv.Atoi(m[4])
	return hours*3600000 + minutes*60000 + seconds*1000 + milliseconds, nil
}

// FormatTimecode converts milliseconds to a display timecode (HH:MM:SS).
// Milliseconds are intentionally dropped, so the conversion is lossy.
// Hours are not capped and grow past two digits for very long media.
func FormatTimecode(ms int) string {
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
