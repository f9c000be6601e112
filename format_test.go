package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{262144, "256.0 KB"},
		{1536 * 1024, "1.5 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.bytes))
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", formatAge(now, now.Add(-10*time.Second)))
	assert.Equal(t, "5m", formatAge(now, now.Add(-5*time.Minute)))
	assert.Equal(t, "3h", formatAge(now, now.Add(-3*time.Hour)))
	assert.Equal(t, "8d", formatAge(now, now.Add(-8*24*time.Hour)))
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"ID", "FILE"}, [][]string{
		{"a1", "dune_trailer.mp4"},
		{"b22", "x.mp4"},
	})

	want := "ID   FILE\n" +
		"a1   dune_trailer.mp4\n" +
		"b22  x.mp4\n"

	assert.Equal(t, want, buf.String())
}

func TestProgressPrinter_NonTTYSteps(t *testing.T) {
	var buf bytes.Buffer

	p := &progressPrinter{w: &buf, last: make(map[string]int)}

	p.Report("a.mp4", 0, 1000)
	p.Report("a.mp4", 100, 1000)
	p.Report("a.mp4", 260, 1000)
	p.Report("a.mp4", 300, 1000)
	p.Report("a.mp4", 1000, 1000)

	assert.Equal(t,
		"a.mp4: 0% (0 B / 1000 B)\n"+
			"a.mp4: 25% (260 B / 1000 B)\n"+
			"a.mp4: 100% (1000 B / 1000 B)\n",
		buf.String())
}

func TestProgressPrinter_Quiet(t *testing.T) {
	var buf bytes.Buffer

	p := &progressPrinter{w: &buf, quiet: true, last: make(map[string]int)}
	p.Report("a.mp4", 10, 100)

	assert.Empty(t, buf.String())
}

func TestTruncateLabel(t *testing.T) {
	assert.Equal(t, "short.mp4", truncateLabel("short.mp4"))

	long := "a_very_long_book_title_that_keeps_going_and_going_trailer.mp4"
	got := truncateLabel(long)
	assert.Len(t, got, maxLabel)
	assert.Equal(t, "...", got[:3])
}
