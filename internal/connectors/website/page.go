package website

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/custodia-labs/kb-engine/internal/chunker"
)

// page is the extracted view of one fetched HTML document.
type page struct {
	title   string
	section string
	blocks  []chunker.Block
	links   []string
}

// contentSelectors are probed in order for the main-content root. The
// first match wins; if none match the whole body is used.
var contentSelectors = []func(*html.Node) bool{
	func(n *html.Node) bool { return n.Data == "main" },
	func(n *html.Node) bool { return n.Data == "article" },
	func(n *html.Node) bool { return attrValue(n, "role") == "main" },
	func(n *html.Node) bool { return attrValue(n, "id") == "content" },
	func(n *html.Node) bool { return hasClass(n, "content") },
}

// binaryExtensions are link targets that are never HTML pages.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".ico": true, ".pdf": true, ".zip": true, ".gz": true, ".tar": true,
	".mp3": true, ".mp4": true, ".webm": true, ".woff": true, ".woff2": true,
	".css": true, ".js": true, ".json": true, ".xml": true,
}

// parsePage extracts title, section, content blocks, and same-origin
// links from an HTML document. pageURL is the fetched page's normalized
// URL, used to resolve relative links.
func parsePage(pageURL *url.URL, root *html.Node) *page {
	p := &page{
		title: textOf(find(root, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "title"
		})),
		section: breadcrumbSection(root),
	}

	content := mainContent(root)
	if content != nil {
		p.blocks = collectBlocks(content)
	}
	p.links = collectLinks(root, pageURL)
	return p
}

// mainContent returns the most specific content container found, or the
// body when no known container exists.
func mainContent(root *html.Node) *html.Node {
	for _, match := range contentSelectors {
		if n := find(root, func(n *html.Node) bool {
			return n.Type == html.ElementNode && match(n)
		}); n != nil {
			return n
		}
	}
	return find(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "body"
	})
}

// breadcrumbSection derives a section label from a breadcrumb trail,
// joining crumb texts in order. Returns "" when the page has none.
func breadcrumbSection(root *html.Node) string {
	nav := find(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		return strings.EqualFold(attrValue(n, "aria-label"), "breadcrumb") ||
			hasClass(n, "breadcrumb") || hasClass(n, "breadcrumbs")
	})
	if nav == nil {
		return ""
	}

	var crumbs []string
	walk(nav, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" {
			if t := textOf(n); t != "" {
				crumbs = append(crumbs, t)
			}
			return false
		}
		return true
	})
	return strings.Join(crumbs, " / ")
}

// collectBlocks walks the content root in document order, classifying
// elements into chunker blocks.
func collectBlocks(content *html.Node) []chunker.Block {
	var blocks []chunker.Block

	walk(content, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			blocks = append(blocks, chunker.Block{
				Kind:  chunker.KindHeading,
				Level: int(n.Data[1] - '0'),
				Text:  textOf(n),
			})
			return false
		case "p", "blockquote":
			blocks = append(blocks, chunker.Block{Kind: chunker.KindParagraph, Text: textOf(n)})
			return false
		case "ul", "ol":
			var items []string
			walk(n, func(li *html.Node) bool {
				if li.Type == html.ElementNode && li.Data == "li" {
					if t := textOf(li); t != "" {
						items = append(items, "- "+t)
					}
					return false
				}
				return true
			})
			if len(items) > 0 {
				blocks = append(blocks, chunker.Block{Kind: chunker.KindList, Text: strings.Join(items, "\n")})
			}
			return false
		case "pre":
			blocks = append(blocks, chunker.Block{Kind: chunker.KindCode, Text: textOf(n)})
			return false
		case "table":
			var rows [][]string
			walk(n, func(tr *html.Node) bool {
				if tr.Type == html.ElementNode && tr.Data == "tr" {
					var cells []string
					walk(tr, func(td *html.Node) bool {
						if td.Type == html.ElementNode && (td.Data == "td" || td.Data == "th") {
							cells = append(cells, textOf(td))
							return false
						}
						return true
					})
					if len(cells) > 0 {
						rows = append(rows, cells)
					}
					return false
				}
				return true
			})
			if len(rows) > 0 {
				blocks = append(blocks, chunker.Block{Kind: chunker.KindTable, Rows: rows})
			}
			return false
		case "script", "style", "nav", "header", "footer", "aside":
			return false
		}
		return true
	})
	return blocks
}

// collectLinks extracts same-origin outbound links, normalized with
// query and fragment stripped. Binary and non-HTTP targets are dropped.
func collectLinks(root *html.Node, pageURL *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}
		href := attrValue(n, "href")
		if href == "" || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := pageURL.ResolveReference(ref)
		if resolved.Scheme != pageURL.Scheme || resolved.Host != pageURL.Host {
			return true
		}
		if binaryExtensions[strings.ToLower(path.Ext(resolved.Path))] {
			return true
		}
		normalized := normalizeURL(resolved)
		if !seen[normalized] {
			seen[normalized] = true
			links = append(links, normalized)
		}
		return true
	})
	return links
}

// normalizeURL strips query and fragment, keeping scheme+host+path.
func normalizeURL(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" {
		c.Path = "/"
	}
	return c.String()
}

// find returns the first node in document order satisfying match.
func find(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk visits nodes in document order; visit returning false skips the
// node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// textOf returns the trimmed, whitespace-collapsed text content of n.
func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// hasClass reports whether the node's class attribute contains name.
func hasClass(n *html.Node, name string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == name {
			return true
		}
	}
	return false
}
