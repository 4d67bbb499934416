package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBanner_PlainWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3\n")

	got := buf.String()
	assert.Contains(t, got, "v1.2.3")
	assert.Contains(t, got, bannerLines[0])
	assert.NotContains(t, got, "\x1b[", "a buffer gets no escape sequences")
	assert.Equal(t, len(bannerLines)+3, strings.Count(got, "\n"))
}
