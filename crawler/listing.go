package crawler

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// link is one <a href> of a directory listing.
type link struct {
	href string
	name string
}

// parseError is a page that is not a usable HTML listing. Retrying won't help.
type parseError struct {
	err error
}

func (e *parseError) Error() string {
	return fmt.Sprintf("failed to parse listing: %v", e.err)
}

func (e *parseError) Unwrap() error {
	return e.err
}

// parseListing extracts entry links from an autoindex page. Sort-order links
// ("?C=N;O=D"), anchors and parent links are dropped, as are repeated hrefs.
func parseListing(r io.Reader) ([]link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &parseError{err: err}
	}

	var links []link
	seen := make(map[string]struct{})

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := strings.TrimSpace(getAttr(n, "href"))
			if keepHref(href) {
				if _, dup := seen[href]; !dup {
					seen[href] = struct{}{}
					links = append(links, link{href: href, name: strings.TrimSpace(textContent(n))})
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			traverse(child)
		}
	}
	traverse(doc)

	return links, nil
}

func keepHref(href string) bool {
	if href == "" || href == "../" || href == ".." {
		return false
	}
	if strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") {
		return false
	}
	return true
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			traverse(child)
		}
	}
	traverse(n)
	return sb.String()
}
