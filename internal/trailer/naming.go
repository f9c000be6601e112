package trailer

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/trailertube/internal/youtube"
)

// fallbackName is used when a title sanitizes to nothing.
const fallbackName = "trailer"

// unsafeRun matches runs of characters that are unsafe in file names plus
// whitespace.
var unsafeRun = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

// FileName derives the upload file name for a book title:
// "<title>_trailer.mp4" with unsafe characters collapsed to "_".
func FileName(title string) string {
	base := norm.NFC.String(strings.TrimSpace(title))
	if base == "" {
		base = fallbackName
	}

	cleaned := unsafeRun.ReplaceAllString(base, "_")
	if strings.Trim(cleaned, "_") == "" {
		cleaned = fallbackName
	}

	return cleaned + "_trailer.mp4"
}

// UploadMetadata builds the video metadata for a book trailer. Trailers start
// private; the owner publishes them later.
func UploadMetadata(title, author, category string) youtube.Metadata {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)

	videoTitle := "Trailer"
	if title != "" {
		videoTitle = title + " Trailer"
	}

	var tags []string

	for _, t := range []string{title, author} {
		if t != "" {
			tags = append(tags, t)
		}
	}

	return youtube.Metadata{
		Title:       videoTitle,
		Description: youtube.Ptr("Author: " + author),
		Tags:        tags,
		CategoryID:  category,
		Privacy:     youtube.PrivacyPrivate,
		Embeddable:  youtube.Ptr(true),
	}
}
