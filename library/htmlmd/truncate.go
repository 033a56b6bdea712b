package htmlmd

import (
	"strings"
	"unicode/utf8"
)

// maxUpcomingSections caps the heading list reported after a cut.
const maxUpcomingSections = 10

// truncateAtBoundary cuts s to at most max characters.
//
// The cut lands on the last line break inside the budget, falling back
// to the last space for a single oversized line, and to a hard cut on
// a rune boundary when the line has no spaces either. It returns the
// kept prefix, the offset continuation should resume from, and whether
// anything was cut.
func truncateAtBoundary(s string, max int) (string, int, bool) {
	if max <= 0 || len(s) <= max {
		return s, len(s), false
	}
	if idx := strings.LastIndexByte(s[:max+1], '\n'); idx > 0 {
		return s[:idx], idx + 1, true
	}
	if idx := strings.LastIndexByte(s[:max], ' '); idx > 0 {
		return s[:idx], idx + 1, true
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], cut, true
}

// normalizeWhitespace trims trailing spaces and collapses runs of
// blank lines outside fenced code blocks, which are kept verbatim.
func normalizeWhitespace(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	blankRun := 0

	for _, line := range lines {
		if isFenceLine(line) {
			inFence = !inFence
			out = append(out, strings.TrimRight(line, " \t"))
			blankRun = 0
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		line = strings.TrimRight(line, " \t")
		if line == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
		} else {
			blankRun = 0
		}
		out = append(out, line)
	}

	start := 0
	for start < len(out) && out[start] == "" {
		start++
	}
	end := len(out)
	for end > start && out[end-1] == "" {
		end--
	}
	return strings.Join(out[start:end], "\n")
}

// sectionContext locates the cut inside the document's heading tree.
//
// It returns the path of headings still open at the cut offset, joined
// with " > ", and the titles of headings that follow the cut.
func sectionContext(markdown string, cut int) (string, []string) {
	type heading struct {
		level int
		title string
	}
	var stack []heading
	var upcoming []string

	offset := 0
	inFence := false
	for _, line := range strings.Split(markdown, "\n") {
		lineStart := offset
		offset += len(line) + 1

		if isFenceLine(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		level, title := parseHeading(line)
		if level == 0 {
			continue
		}
		if lineStart < cut {
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, heading{level: level, title: title})
		} else if len(upcoming) < maxUpcomingSections {
			upcoming = append(upcoming, title)
		}
	}

	parts := make([]string, 0, len(stack))
	for _, h := range stack {
		parts = append(parts, h.title)
	}
	return strings.Join(parts, " > "), upcoming
}

// parseHeading reads an ATX heading line, returning level 0 otherwise.
func parseHeading(line string) (int, string) {
	trimmed := strings.TrimLeft(line, " \t")
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(trimmed) || trimmed[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(trimmed[level+1:])
}
