package analysis

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// htmlTagPattern detects block and inline tags a model or a web form is likely
// to wrap analysis text in.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|ul|ol|li|h[1-6]|table|tr|td|dl|dt|dd)[\s>/]`)

func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// toMarkdown converts HTML analysis text to markdown so labelled values land
// on their own lines. Text without HTML, or that fails to convert, is
// returned unchanged.
func toMarkdown(s string) string {
	if s == "" || !containsHTML(s) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}
