// Package docsource loads the document the engine works on and keeps it in
// step with its file on disk.
package docsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/tooltip"
)

const maxDocumentBytes = 32 << 20 // 32 MB

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Read returns the raw markup of a file path or http(s) URL.
func Read(ctx context.Context, source string, client *http.Client) ([]byte, error) {
	if !IsRemote(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("docsource: read %s: %w", source, err)
		}
		return data, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("docsource: build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docsource: fetch %s: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("docsource: fetch %s: status %d", source, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("docsource: read body: %w", err)
	}
	return data, nil
}

// Replace swaps the body content of doc for the body content of markup,
// keeping tooltips in place. The change reaches observers as one structural
// mutation. It must run on the goroutine that owns doc.
func Replace(doc *dom.Document, markup []byte) error {
	fresh, err := dom.Parse(bytes.NewReader(markup))
	if err != nil {
		return err
	}
	body, src := doc.Body(), fresh.Body()
	if body == nil || src == nil {
		return fmt.Errorf("docsource: document has no body")
	}

	var removed []*html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if !dom.HasClass(c, tooltip.Class) {
			removed = append(removed, c)
		}
	}
	var added []*html.Node
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		added = append(added, c)
		c = next
	}
	doc.ReplaceChildren(body, removed, added...)
	return nil
}
