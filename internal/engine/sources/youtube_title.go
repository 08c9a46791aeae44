package sources

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
)

// FetchTitle scrapes the og:title meta tag from a video's watch page.
// Returns "" on any failure — titles are cosmetic, never fatal.
func (y *YouTube) FetchTitle(ctx context.Context, videoID string) string {
	body, err := y.fetchWatchPage(ctx, videoID)
	if err != nil {
		return ""
	}
	return titleFromHTML(body)
}

// titleFromHTML walks the document for <meta property="og:title"> and
// falls back to the <title> element.
func titleFromHTML(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var title, fallback string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var prop, content string
				for _, a := range n.Attr {
					switch a.Key {
					case "property", "name":
						prop = a.Val
					case "content":
						content = a.Val
					}
				}
				if prop == "og:title" && content != "" {
					title = content
					return
				}
			case "title":
				if n.FirstChild != nil && fallback == "" {
					fallback = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title != "" {
		return title
	}
	return strings.TrimSuffix(fallback, " - YouTube")
}
