// Package replay drives a recorded WebVTT caption track through a page's
// native caption container, so the engine can be exercised without a
// browser.
package replay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Cue is one timed caption.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

var (
	timestampRe = regexp.MustCompile(`((?:\d{2,}:)?\d{2}:\d{2}[.,]\d{3})\s*-->\s*((?:\d{2,}:)?\d{2}:\d{2}[.,]\d{3})`)
	tagRe       = regexp.MustCompile(`</?[a-z][^>]*>`)
)

// ParseVTT parses WebVTT content into cues. Cue settings after the end
// timestamp are ignored, and inline tags such as <v Speaker> or <i> are
// stripped from the text.
func ParseVTT(content string) []Cue {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var cues []Cue
	var current *Cue
	skipBlock := false

	flush := func() {
		if current != nil && current.Text != "" {
			cues = append(cues, *current)
		}
		current = nil
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" {
			flush()
			skipBlock = false
			continue
		}
		if skipBlock {
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") {
			continue
		}
		// NOTE, STYLE and REGION blocks carry no cue text.
		if current == nil && (strings.HasPrefix(line, "NOTE") || line == "STYLE" || line == "REGION") {
			skipBlock = true
			continue
		}

		if matches := timestampRe.FindStringSubmatch(line); len(matches) == 3 {
			flush()
			current = &Cue{
				Index: len(cues) + 1,
				Start: parseTimestamp(matches[1]),
				End:   parseTimestamp(matches[2]),
			}
			continue
		}

		// Cue identifiers precede the timing line.
		if current == nil {
			continue
		}

		text := strings.TrimSpace(tagRe.ReplaceAllString(line, ""))
		if text == "" {
			continue
		}
		if current.Text != "" {
			current.Text += "\n"
		}
		current.Text += text
	}
	flush()

	return cues
}

// FormatVTT renders cues as WebVTT, renumbering them from one.
func FormatVTT(cues []Cue) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, cue := range cues {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(cue.Start), formatTimestamp(cue.End))
		sb.WriteString(cue.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// parseTimestamp accepts hh:mm:ss.mmm and mm:ss.mmm.
func parseTimestamp(ts string) time.Duration {
	ts = strings.Replace(ts, ",", ".", 1)
	clock, frac, _ := strings.Cut(ts, ".")
	parts := strings.Split(clock, ":")

	var total time.Duration
	for _, p := range parts {
		n, _ := strconv.Atoi(p)
		total = total*60 + time.Duration(n)*time.Second
	}
	ms, _ := strconv.Atoi(frac)
	return total + time.Duration(ms)*time.Millisecond
}

func formatTimestamp(d time.Duration) string {
	totalMs := d.Milliseconds()
	h := totalMs / 3600000
	totalMs %= 3600000
	m := totalMs / 60000
	totalMs %= 60000
	s := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
