package youtube

import (
	"encoding/json"
	"strings"
)

// watchURLPrefix builds the public page of a video.
const watchURLPrefix = "https://www.youtube.com/watch?v="

// ExtractResourceID reads the "id" field of a terminal upload response.
// A blank body, invalid JSON, or a missing or non-string id yield ("", false):
// the upload succeeded but the caller has nothing to link to.
func ExtractResourceID(body string) (string, bool) {
	if strings.TrimSpace(body) == "" {
		return "", false
	}

	var res struct {
		ID *string `json:"id"`
	}

	if err := json.Unmarshal([]byte(body), &res); err != nil || res.ID == nil || *res.ID == "" {
		return "", false
	}

	return *res.ID, true
}

// WatchURL returns the watch page URL for a video ID, or "" for an empty ID.
func WatchURL(videoID string) string {
	if videoID == "" {
		return ""
	}

	return watchURLPrefix + videoID
}
