package trailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/trailertube/internal/youtube"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Dune", "Dune_trailer.mp4"},
		{"spaces", "The Left Hand of Darkness", "The_Left_Hand_of_Darkness_trailer.mp4"},
		{"unsafe run collapses", `What? Why: A/B <Story>`, "What_Why_A_B_Story__trailer.mp4"},
		{"empty", "", "trailer_trailer.mp4"},
		{"blank", "   ", "trailer_trailer.mp4"},
		{"only unsafe", `?*:`, "trailer_trailer.mp4"},
		{"nfc", "Café", "Café_trailer.mp4"},
		{"unicode kept", "채식주의자", "채식주의자_trailer.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.title))
		})
	}
}

func TestUploadMetadata(t *testing.T) {
	m := UploadMetadata("Dune", "Frank Herbert", "27")

	assert.Equal(t, "Dune Trailer", m.Title)
	require.NotNil(t, m.Description)
	assert.Equal(t, "Author: Frank Herbert", *m.Description)
	assert.Equal(t, []string{"Dune", "Frank Herbert"}, m.Tags)
	assert.Equal(t, "27", m.CategoryID)
	assert.Equal(t, youtube.PrivacyPrivate, m.Privacy)
	require.NotNil(t, m.Embeddable)
	assert.True(t, *m.Embeddable)
}

func TestUploadMetadata_BlankFields(t *testing.T) {
	m := UploadMetadata("  ", "", "")

	assert.Equal(t, "Trailer", m.Title)
	assert.Equal(t, "Author: ", *m.Description)
	assert.Empty(t, m.Tags)
}
