// Package sessionstore persists in-flight resumable upload sessions in a
// local SQLite database so a crash mid-transfer leaves an inspectable record.
package sessionstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned by Get for an unknown session ID.
var ErrSessionNotFound = errors.New("sessionstore: session not found")

// UploadSession is a point-in-time record of one resumable upload session.
// It is built once by NewUploadSession and never updated: transfer progress
// is not stored here.
type UploadSession struct {
	ID             string
	UploadURL      string
	FileName       string
	DeclaredLength int64
	ContentType    string
	OwnerID        string
	CreatedAt      time.Time
}

// NewUploadSession builds a session record with a fresh local ID.
func NewUploadSession(uploadURL, fileName string, length int64, contentType, ownerID string) (UploadSession, error) {
	if uploadURL == "" {
		return UploadSession{}, fmt.Errorf("sessionstore: upload URL must not be empty")
	}

	if length < 0 {
		return UploadSession{}, fmt.Errorf("sessionstore: negative declared length %d", length)
	}

	return UploadSession{
		ID:             uuid.NewString(),
		UploadURL:      uploadURL,
		FileName:       fileName,
		DeclaredLength: length,
		ContentType:    contentType,
		OwnerID:        ownerID,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Age returns how long ago the session was created.
func (s UploadSession) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
