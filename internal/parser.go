package internal

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	blockSeparatorRe = regexp.MustCompile(`\n\s*\n`)
	timingLineRe     = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})`)
	htmlTagRe        = regexp.MustCompile(`<[^>]+>`)
)

// decodeSubtitle turns raw subtitle bytes into a string. Valid UTF-8 is
// used as-is; otherwise the charset is detected and decoded leniently,
// replacing undecodable bytes instead of failing.
func decodeSubtitle(raw []byte) string {
	raw = stripBOM(raw)
	if utf8.Valid(raw) {
		return string(raw)
	}

	detected, err := chardet.NewTextDetector().DetectBest(raw)
	if err == nil {
		if enc, err := htmlindex.Get(strings.ToLower(detected.Charset)); err == nil {
			if decoded, err := enc.NewDecoder().Bytes(raw); err == nil {
				return string(decoded)
			}
		}
	}

	// Last resort: keep the bytes, Go string iteration replaces invalid
	// sequences with U+FFFD.
	return string(raw)
}

func stripBOM(raw []byte) []byte {
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		return raw[3:]
	}
	return raw
}

// ParseSRT parses raw SRT file bytes into segments. It never fails:
// malformed blocks are skipped and well-formed blocks are kept in file
// order. VideoID is left unset for the caller to assign.
func ParseSRT(raw []byte) []Segment {
	content := decodeSubtitle(raw)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(content)

	blocks := blockSeparatorRe.Split(content, -1)
	segments := make([]Segment, 0, len(blocks))

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			continue
		}

		// Line 1 must be a non-negative sequence number; the value itself
		// is not used.
		seq, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil || seq < 0 {
			continue
		}

		m := timingLineRe.FindStringSubmatch(strings.TrimSpace(lines[1]))
		if m == nil {
			continue
		}
		startMs, err := ParseTimecode(m[1])
		if err != nil {
			continue
		}
		endMs, err := ParseTimecode(m[2])
		if err != nil {
			continue
		}

		// Remaining lines are the cue text: strip tag markup and collapse
		// all whitespace runs (including the joined newlines).
		text := strings.Join(lines[2:], "\n")
		text = htmlTagRe.ReplaceAllString(text, "")
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}

		segments = append(segments, Segment{
			StartMs: startMs,
			EndMs:   endMs,
			Text:    text,
		})
	}

	return segments
}
