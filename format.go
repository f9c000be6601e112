package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Flags.Quiet, format, args...)
}

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	switch {
	case bytes >= sizeGB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatAge returns how long ago t was, rounded for display ("3h", "2d").
func formatAge(now, t time.Time) string {
	d := now.Sub(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24)) //nolint:mnd // hours per day
	}
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// progressPrinter renders upload progress on stderr. On a terminal each
// file's line is redrawn in place; otherwise only 25% steps are printed so
// logs stay short.
type progressPrinter struct {
	w     io.Writer
	tty   bool
	quiet bool

	mu   sync.Mutex
	last map[string]int
}

func newProgressPrinter(quiet bool) *progressPrinter {
	return &progressPrinter{
		w:     os.Stderr,
		tty:   isatty.IsTerminal(os.Stderr.Fd()),
		quiet: quiet,
		last:  make(map[string]int),
	}
}

// quarter is the non-terminal reporting step in percent.
const quarter = 25

// Report is an uploadops progress callback labelled with the file name.
func (p *progressPrinter) Report(label string, acknowledged, total int64) {
	if p.quiet || total <= 0 {
		return
	}

	pct := int(acknowledged * 100 / total) //nolint:mnd // percent

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty {
		fmt.Fprintf(p.w, "\r%-40s %3d%%  %s / %s", truncateLabel(label), pct,
			formatSize(acknowledged), formatSize(total))

		if acknowledged >= total {
			fmt.Fprintln(p.w)
		}

		return
	}

	step := pct / quarter * quarter
	if prev, ok := p.last[label]; ok && step <= prev {
		return
	}

	p.last[label] = step
	fmt.Fprintf(p.w, "%s: %d%% (%s / %s)\n", label, step, formatSize(acknowledged), formatSize(total))
}

// maxLabel keeps the progress line on one terminal row.
const maxLabel = 40

func truncateLabel(s string) string {
	if len(s) <= maxLabel {
		return s
	}

	return "..." + s[len(s)-maxLabel+3:]
}
