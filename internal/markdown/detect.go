// Package markdown classifies outbound content as plain text or rich
// markup and derives display titles for rich messages. Detection is a
// set of lightweight pattern tests, not a full markdown parse: the
// platform renders the raw text either way, the classification only
// picks the message shape.
package markdown

import (
	"regexp"
	"strings"
)

// Format is the outbound content classification.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatMarkdown Format = "markdown"
)

// titleMaxRunes bounds the derived rich-message title length.
const titleMaxRunes = 20

// fallbackTitle is used when the first content line yields nothing.
const fallbackTitle = "消息"

// Ordered, independent pattern tests. Any match classifies the content
// as markdown.
var richPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#{1,6}\s+\S`),         // ATX heading
	regexp.MustCompile(`\*\*[^*\n]+\*\*`),          // bold emphasis
	regexp.MustCompile(`\[[^\]\n]+\]\([^)\n]+\)`),  // link
	regexp.MustCompile(`(?m)^\s*[-*+]\s+\S`),       // bulleted list
	regexp.MustCompile(`(?m)^\s*\d+\.\s+\S`),       // numbered list
	regexp.MustCompile(`(?m)^\s*>\s`),              // blockquote
	regexp.MustCompile("```"),                      // fenced code
	regexp.MustCompile("`[^`\n]+`"),                // inline code
}

// Detect classifies content. Pure and deterministic: the same input
// always yields the same classification.
func Detect(content string) Format {
	for _, p := range richPatterns {
		if p.MatchString(content) {
			return FormatMarkdown
		}
	}
	return FormatPlain
}

// Title derives a rich-message title: the first line with leading
// heading markers stripped, truncated to 20 runes. Falls back to a
// fixed placeholder when the result is empty.
func Title(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	line = strings.TrimSpace(strings.TrimLeft(line, "#"))
	if line == "" {
		return fallbackTitle
	}
	runes := []rune(line)
	if len(runes) > titleMaxRunes {
		line = string(runes[:titleMaxRunes])
	}
	return line
}
