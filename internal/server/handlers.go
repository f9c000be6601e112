package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tonimelisma/trailertube/internal/uploadops"
	"github.com/tonimelisma/trailertube/internal/youtube"
)

// uploadMetadata is the "metadata" part of a multipart upload.
type uploadMetadata struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"categoryId"`
	Privacy     string   `json:"privacyStatus"`
	Embeddable  *bool    `json:"embeddable"`
	License     *string  `json:"license"`
}

// handleUpload accepts multipart form data with a "metadata" JSON part and a
// "file" part, and uploads the file.
func (s *Server) handleUpload(c *gin.Context) {
	var meta uploadMetadata

	raw := c.PostForm("metadata")
	if raw == "" {
		badRequest(c, `missing "metadata" part`)
		return
	}

	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		badRequest(c, fmt.Sprintf("invalid metadata: %v", err))
		return
	}

	if strings.TrimSpace(meta.Title) == "" {
		badRequest(c, "metadata.title is required")
		return
	}

	md, err := s.withDefaults(meta)
	if err != nil {
		abortWithError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, `missing "file" part`)
		return
	}

	f, err := fh.Open()
	if err != nil {
		abortWithError(c, fmt.Errorf("server: opening uploaded file: %w", err))
		return
	}

	payload := &uploadops.Payload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Length:      fh.Size,
		Body:        f,
	}

	res, err := s.deps.Uploads.Upload(c.Request.Context(), uploadops.Request{
		Account:  s.account(c),
		Metadata: md,
		Payload:  payload,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// withDefaults fills unset metadata from the [upload] section and
// normalizes the privacy value.
func (s *Server) withDefaults(m uploadMetadata) (youtube.Metadata, error) {
	cfg := s.deps.Config.Config().Upload

	out := youtube.Metadata{
		Title:       m.Title,
		Description: m.Description,
		Tags:        m.Tags,
		CategoryID:  m.CategoryID,
		Privacy:     m.Privacy,
		Embeddable:  m.Embeddable,
		License:     m.License,
	}

	if strings.TrimSpace(out.Privacy) == "" {
		out.Privacy = cfg.DefaultPrivacy
	}

	privacy, err := youtube.NormalizePrivacy(out.Privacy)
	if err != nil {
		return youtube.Metadata{}, err
	}

	out.Privacy = privacy

	if out.CategoryID == "" {
		out.CategoryID = cfg.DefaultCategory
	}

	if len(out.Tags) == 0 {
		out.Tags = cfg.DefaultTags
	}

	return out, nil
}

func (s *Server) handleDeleteVideo(c *gin.Context) {
	id := c.Param("id")

	if err := s.deps.Uploads.DeleteVideo(c.Request.Context(), s.account(c), id); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type privacyRequest struct {
	Privacy string `json:"privacyStatus"`
}

// handleUpdatePrivacy takes the new value from a JSON body or, failing
// that, from ?privacyStatus=.
func (s *Server) handleUpdatePrivacy(c *gin.Context) {
	id := c.Param("id")

	var req privacyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, fmt.Sprintf("invalid body: %v", err))
			return
		}
	}

	if req.Privacy == "" {
		req.Privacy = c.Query("privacyStatus")
	}

	if req.Privacy == "" {
		badRequest(c, "privacyStatus is required")
		return
	}

	applied, err := s.deps.Uploads.UpdatePrivacy(c.Request.Context(), s.account(c), id, req.Privacy)
	if err != nil {
		abortWithError(c, err)
		return
	}

	s.logger.Info("privacy updated", slog.String("video_id", id), slog.String("privacy", applied))

	c.JSON(http.StatusOK, gin.H{"video_id": id, "privacyStatus": applied})
}
