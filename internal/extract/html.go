package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// uploadURL is the base for resolving relative links in uploaded documents.
var uploadURL = &url.URL{Scheme: "file", Path: "/upload.html"}

// HTMLText returns the readable article text of an HTML document,
// prefixed with its title when one is found.
func HTMLText(data []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(data), uploadURL)
	if err != nil {
		return "", fmt.Errorf("extract article: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if title := strings.TrimSpace(article.Title); title != "" && !strings.HasPrefix(text, title) {
		text = title + "\n\n" + text
	}
	return text, nil
}
