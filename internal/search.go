package internal

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const snippetContextChars = 100

// Word characters are Unicode letters and digits; \w would be ASCII-only
// and drop non-Latin subtitle text entirely.
const wordClass = `\p{L}\p{N}_`

var (
	quotedPhraseRe = regexp.MustCompile(`"([^"]+)"`)
	// Query tokens keep a trailing * so prefix terms survive extraction.
	queryWordRe = regexp.MustCompile(`[` + wordClass + `]+\*?`)
	textWordRe  = regexp.MustCompile(`[` + wordClass + `]+`)
)

// prepareFTSQuery rewrites a raw user query into FTS5 syntax: quoted
// phrases pass through verbatim, OR stays an operator, and every other
// term (prefix terms included) is quote-wrapped so punctuation cannot be
// misread as syntax.
func prepareFTSQuery(query string) string {
	phrases := quotedPhraseRe.FindAllStringSubmatch(query, -1)
	remainder := quotedPhraseRe.ReplaceAllString(query, "")

	var parts []string
	for _, m := range phrases {
		parts = append(parts, `"`+m[1]+`"`)
	}

	for _, word := range strings.Fields(remainder) {
		if strings.EqualFold(word, "OR") {
			parts = append(parts, "OR")
			continue
		}
		parts = append(parts, `"`+word+`"`)
	}

	if len(parts) == 0 {
		return query
	}
	return strings.Join(parts, " ")
}

// Search runs a ranked, paginated query over all indexed segments. The
// primary strategy is the FTS index; an explicit fuzzy request or an FTS
// engine failure degrades to the edit-distance fallback exactly once.
func (a *App) Search(ctx context.Context, query, fileFilter string, offset, limit int, fuzzy bool) ([]SearchResult, int, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchResult{}, 0, nil
	}

	if fuzzy {
		return a.fuzzySearch(ctx, query, fileFilter, offset, limit)
	}

	ftsQuery := prepareFTSQuery(query)
	rows, total, err := a.querySegments(ctx, ftsQuery, fileFilter, offset, limit)
	if err != nil {
		// Engine-level failure (bad FTS syntax, missing module): degrade
		// to the fuzzy scan. A fuzzy failure is terminal.
		slog.Warn("fts query failed, falling back to fuzzy search", "query", query, "err", err)
		return a.fuzzySearch(ctx, query, fileFilter, offset, limit)
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, searchResultFromRow(row, query))
	}
	return results, total, nil
}

// fuzzySearch scores every stored segment against the query words by edit
// distance. This is a full scan, acceptable only as a fallback path.
func (a *App) fuzzySearch(ctx context.Context, query, fileFilter string, offset, limit int) ([]SearchResult, int, error) {
	FuzzySearches.Inc()

	queryWords := textWordRe.FindAllString(strings.ToLower(query), -1)
	if len(queryWords) == 0 {
		return []SearchResult{}, 0, nil
	}

	segments, err := a.scanSegments(ctx, fileFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("fuzzy search failed: %w", err)
	}

	type scoredRow struct {
		row   segmentRow
		score int
	}
	var matched []scoredRow
	for _, row := range segments {
		score := fuzzyScore(queryWords, row.Text)
		if score > 0 {
			matched = append(matched, scoredRow{row: row, score: score})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].row.StartMs < matched[j].row.StartMs
	})

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	results := make([]SearchResult, 0, end-offset)
	for _, m := range matched[offset:end] {
		results = append(results, searchResultFromRow(m.row, query))
	}
	return results, total, nil
}

// fuzzyScore sums, over all query words, 3 minus the best edit distance to
// any word of the segment text. Words shorter than 3 characters are
// ignored on both sides; the accepted distance is 1 for query words under
// 6 characters and 2 otherwise. Lengths are in runes, matching the rune
// granularity of the edit distance.
func fuzzyScore(queryWords []string, text string) int {
	textWords := textWordRe.FindAllString(strings.ToLower(text), -1)

	score := 0
	for _, word := range queryWords {
		if utf8.RuneCountInString(word) < 3 {
			continue
		}
		maxDist := 1
		if utf8.RuneCountInString(word) >= 6 {
			maxDist = 2
		}

		best := -1
		for _, textWord := range textWords {
			if utf8.RuneCountInString(textWord) < 3 {
				continue
			}
			dist := levenshtein.ComputeDistance(word, textWord)
			if dist <= maxDist && (best == -1 || dist < best) {
				best = dist
			}
		}
		if best != -1 {
			score += 3 - best
		}
	}
	return score
}

func searchResultFromRow(row segmentRow, query string) SearchResult {
	return SearchResult{
		VideoBasename: row.Basename,
		RelPath:       row.RelPath,
		Ext:           row.Ext,
		StartMs:       row.StartMs,
		EndMs:         row.EndMs,
		Timecode:      FormatTimecode(row.StartMs),
		SnippetHTML:   highlightSnippet(row.Text, query, snippetContextChars),
	}
}

// highlightSnippet extracts a window of 2*contextChars centered on the
// earliest occurrence of any query word and wraps every in-window
// occurrence with <mark>. Prefix words (trailing *) match and highlight
// whole words sharing the prefix; plain words match whole words only.
// The window is measured in runes, never splitting a multibyte character.
func highlightSnippet(text, query string, contextChars int) string {
	queryWords := queryWordRe.FindAllString(strings.ToLower(query), -1)
	runes := []rune(text)
	if len(queryWords) == 0 {
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return text
	}

	// Earliest occurrence of any query word decides the window center.
	textLower := strings.ToLower(text)
	firstMatchPos := len(runes)
	for _, word := range queryWords {
		word = strings.TrimSuffix(word, "*")
		pos := strings.Index(textLower, word)
		if pos == -1 {
			continue
		}
		if idx := utf8.RuneCountInString(textLower[:pos]); idx < firstMatchPos {
			firstMatchPos = idx
		}
	}

	snippetStart := 0
	if firstMatchPos < len(runes) {
		snippetStart = max(0, firstMatchPos-contextChars)
	}
	snippetEnd := min(len(runes), snippetStart+contextChars*2)
	snippet := string(runes[snippetStart:snippetEnd])

	if snippetStart > 0 {
		snippet = "..." + snippet
	}
	if snippetEnd < len(runes) {
		snippet = snippet + "..."
	}

	return markQueryWords(snippet, queryWords)
}

// markQueryWords wraps every whole word of the snippet matching a query
// word with <mark>. Tokenizing instead of a \b regexp keeps word
// boundaries Unicode-aware.
func markQueryWords(snippet string, queryWords []string) string {
	spans := textWordRe.FindAllStringIndex(snippet, -1)
	if len(spans) == 0 {
		return snippet
	}

	var b strings.Builder
	last := 0
	for _, span := range spans {
		token := snippet[span[0]:span[1]]
		if !matchesQueryWord(strings.ToLower(token), queryWords) {
			continue
		}
		b.WriteString(snippet[last:span[0]])
		b.WriteString("<mark>")
		b.WriteString(token)
		b.WriteString("</mark>")
		last = span[1]
	}
	b.WriteString(snippet[last:])
	return b.String()
}

func matchesQueryWord(token string, queryWords []string) bool {
	for _, word := range queryWords {
		if stem, ok := strings.CutSuffix(word, "*"); ok {
			if strings.HasPrefix(token, stem) {
				return true
			}
		} else if token == word {
			return true
		}
	}
	return false
}
