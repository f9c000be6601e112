package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

const videosPath = "/youtube/v3/videos"

// DeleteVideo permanently removes a video.
func (c *Client) DeleteVideo(ctx context.Context, videoID string) error {
	if videoID == "" {
		return fmt.Errorf("youtube: video ID must not be empty")
	}

	c.logger.Info("deleting video", slog.String("video_id", videoID))

	resp, err := c.Do(ctx, http.MethodDelete, videosPath+"?id="+url.QueryEscape(videoID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
		return fmt.Errorf("youtube: draining delete response: %w", drainErr)
	}

	return nil
}

type privacyUpdate struct {
	ID     string        `json:"id"`
	Status privacyStatus `json:"status"`
}

type privacyStatus struct {
	PrivacyStatus string `json:"privacyStatus"`
}

// UpdatePrivacy changes a video's privacy status. privacy is normalized
// with NormalizePrivacy first; the applied value is returned.
func (c *Client) UpdatePrivacy(ctx context.Context, videoID, privacy string) (string, error) {
	if videoID == "" {
		return "", fmt.Errorf("youtube: video ID must not be empty")
	}

	normalized, err := NormalizePrivacy(privacy)
	if err != nil {
		return "", err
	}

	c.logger.Info("updating video privacy",
		slog.String("video_id", videoID),
		slog.String("privacy", normalized),
	)

	body, err := json.Marshal(privacyUpdate{ID: videoID, Status: privacyStatus{PrivacyStatus: normalized}})
	if err != nil {
		return "", fmt.Errorf("youtube: encoding privacy update: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPut, videosPath+"?part=status", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
		return "", fmt.Errorf("youtube: draining privacy response: %w", drainErr)
	}

	return normalized, nil
}
