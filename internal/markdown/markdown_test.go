package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	html, err := Render("# Title\n\nSome **bold** text.")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
}

func TestEstimateReadTime(t *testing.T) {
	assert.Equal(t, 0, EstimateReadTime(""))
	assert.Equal(t, 1, EstimateReadTime("just a few words"))

	long := strings.Repeat("word ", 450)
	assert.Equal(t, 3, EstimateReadTime(long))
}
