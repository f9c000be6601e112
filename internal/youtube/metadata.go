package youtube

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Defaults applied by EncodeMetadata.
const (
	DefaultTitle   = "Untitled upload"
	DefaultPrivacy = PrivacyPrivate
)

// Privacy values accepted by the API.
const (
	PrivacyPublic   = "public"
	PrivacyPrivate  = "private"
	PrivacyUnlisted = "unlisted"
)

// Metadata describes the video resource created by an upload. Pointer
// fields are optional: nil means "not sent", which lets the server apply
// its own default.
type Metadata struct {
	Title       string
	Description *string
	Tags        []string
	CategoryID  string
	Privacy     string
	Embeddable  *bool
	License     *string
}

// videoResource is the JSON body of the session-initiation request.
type videoResource struct {
	Snippet snippet     `json:"snippet"`
	Status  videoStatus `json:"status"`
}

type snippet struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
}

type videoStatus struct {
	PrivacyStatus string  `json:"privacyStatus"`
	Embeddable    *bool   `json:"embeddable,omitempty"`
	License       *string `json:"license,omitempty"`
}

// EncodeMetadata builds the JSON resource sent when opening an upload
// session. A blank title becomes DefaultTitle and a blank privacy becomes
// DefaultPrivacy; any other privacy must pass NormalizePrivacy. Text fields are NFC-normalized so titles typed on macOS
// (NFD) render the same as everywhere else.
func EncodeMetadata(m Metadata) ([]byte, error) {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		title = DefaultTitle
	}

	privacy, err := NormalizePrivacy(m.Privacy)
	if err != nil {
		return nil, err
	}

	res := videoResource{
		Snippet: snippet{
			Title:      norm.NFC.String(title),
			CategoryID: m.CategoryID,
		},
		Status: videoStatus{
			PrivacyStatus: privacy,
			Embeddable:    m.Embeddable,
			License:       m.License,
		},
	}

	if m.Description != nil {
		desc := norm.NFC.String(*m.Description)
		res.Snippet.Description = &desc
	}

	if len(m.Tags) > 0 {
		res.Snippet.Tags = make([]string, 0, len(m.Tags))
		for _, t := range m.Tags {
			res.Snippet.Tags = append(res.Snippet.Tags, norm.NFC.String(t))
		}
	}

	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("youtube: encoding video metadata: %w", err)
	}

	return data, nil
}

// NormalizePrivacy lowercases p and checks it against the accepted values.
// Blank input means DefaultPrivacy.
func NormalizePrivacy(p string) (string, error) {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return DefaultPrivacy, nil
	}

	switch lower := strings.ToLower(trimmed); lower {
	case PrivacyPublic, PrivacyPrivate, PrivacyUnlisted:
		return lower, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidPrivacy, p)
	}
}

// Ptr returns a pointer to v. Handy for the optional Metadata fields.
func Ptr[T any](v T) *T {
	return &v
}
