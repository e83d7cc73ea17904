package internal

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

var videoExtensions = map[string]struct{}{
	".mp4": {},
	".avi": {},
}

const subtitleExtension = ".srt"

// ScanRoot walks the media root and pairs every video file with its best
// subtitle candidate.
//
// Files are grouped by basename only; two videos sharing a basename in
// different directories collide and the last one scanned wins, matching the
// store's unique-basename constraint. Subtitle precedence: a subtitle with
// the same basename in the video's own directory wins, otherwise the first
// same-basename subtitle encountered during the walk is used.
func ScanRoot(root string) ([]MediaMatch, error) {
	videos := make(map[string]VideoFile)
	subtitles := make(map[string][]string)
	var order []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		basename := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		if _, ok := videoExtensions[ext]; ok {
			relPath, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if _, seen := videos[basename]; !seen {
				order = append(order, basename)
			}
			videos[basename] = VideoFile{AbsPath: path, RelPath: relPath, Ext: ext}
		} else if ext == subtitleExtension {
			subtitles[basename] = append(subtitles[basename], path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan media root: %w", err)
	}

	matches := make([]MediaMatch, 0, len(order))
	for _, basename := range order {
		video := videos[basename]
		matches = append(matches, MediaMatch{
			Basename:     basename,
			Video:        video,
			SubtitlePath: matchSubtitle(video, subtitles[basename]),
		})
	}
	return matches, nil
}

// matchSubtitle picks the subtitle from the same directory as the video
// when one exists, otherwise the first candidate in scan order.
func matchSubtitle(video VideoFile, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	videoDir := filepath.Dir(video.AbsPath)
	for _, path := range candidates {
		if filepath.Dir(path) == videoDir {
			return path
		}
	}
	return candidates[0]
}
