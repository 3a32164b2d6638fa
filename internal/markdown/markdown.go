package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// wordsPerMinute is the reading speed used for read-time estimates
const wordsPerMinute = 200

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Render converts a markdown body to HTML
func Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// EstimateReadTime returns the reading time of a body in whole minutes,
// never less than 1 for non-empty content.
func EstimateReadTime(source string) int {
	words := len(strings.Fields(source))
	if words == 0 {
		return 0
	}
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	return minutes
}
