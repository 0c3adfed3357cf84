package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeDropsScripts(t *testing.T) {
	out := Sanitize(`<p>hi</p><script>alert(1)</script>`)
	assert.Equal(t, "<p>hi</p>", out)
}

func TestSanitizeTextStripsMarkup(t *testing.T) {
	assert.Equal(t, "spam link", SanitizeText("  <b>spam</b> <a href=\"x\">link</a> "))
}
