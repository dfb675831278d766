package narrative

import "strings"

// FormatList joins items as prose. Two or more items always take the serial
// comma, so a pair renders as "a, and b".
func FormatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	last := len(items) - 1
	return strings.Join(items[:last], ", ") + ", and " + items[last]
}

// TruncateAtSentence trims text and, when it is longer than limit characters,
// cuts it to limit, drops everything from the last '.' in that window on and
// appends "...". A window without a '.' is kept whole before the ellipsis.
func TruncateAtSentence(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	window := string(runes[:limit])
	if i := strings.LastIndex(window, "."); i >= 0 {
		window = window[:i]
	}
	return window + "..."
}

// firstLine returns the first line of text with surrounding whitespace
// removed, cut to limit characters.
func firstLine(text string, limit int) string {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	runes := []rune(strings.TrimSpace(line))
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes)
}
