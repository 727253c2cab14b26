package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsHTML(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Publisher: Macmillan", false},
		{"<p>Publisher: Macmillan</p>", true},
		{"Publisher: Macmillan<BR>Binder: Zaehnsdorf", true},
		{"size < 5 and > 2", false},
		{"<unknown>", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, containsHTML(tt.in))
		})
	}
}

func TestToMarkdown_PlainTextUnchanged(t *testing.T) {
	text := "Publisher: Macmillan\n  Binder: Zaehnsdorf  "
	assert.Equal(t, text, toMarkdown(text))
	assert.Empty(t, toMarkdown(""))
}

func TestExtract_HTML(t *testing.T) {
	text := `<h2>Assessment</h2>
<p><strong>Publisher:</strong> Macmillan &amp; Co.</p>
<ul><li>Bound by: Zaehnsdorf</li><li>Condition: fine</li></ul>`

	got := Extract(text)
	assert.Equal(t, "Macmillan & Co", got.Publisher)
	assert.Equal(t, "Zaehnsdorf", got.Binder)
	assert.Empty(t, got.Author)
}

func TestExtract_HTMLLineBreaks(t *testing.T) {
	got := Extract("Publisher: John Murray<br>Binder: Riviere &amp; Son<br/>")
	assert.Equal(t, "John Murray", got.Publisher)
	assert.Equal(t, "Riviere & Son", got.Binder)
}
