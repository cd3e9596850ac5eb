package extractor

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
	"github.com/mugulhan/smart-crawler/internal/pkg/urlutil"
)

const maxAnchorTextLen = 500

// Elements considered when describing where on the page a link lives.
var landmarkTags = map[string]bool{
	"header":  true,
	"footer":  true,
	"nav":     true,
	"main":    true,
	"section": true,
	"article": true,
	"aside":   true,
}

// Extractor resolves and classifies anchors against the crawl's seed host.
type Extractor struct {
	seedHost string
}

// New builds an extractor for a job. The seed host decides the
// internal/external split for every page of the crawl.
func New(seedURL string) (*Extractor, error) {
	host, err := urlutil.Host(seedURL)
	if err != nil {
		return nil, err
	}
	return &Extractor{seedHost: host}, nil
}

// Extract parses the body and returns every usable anchor as a Link,
// deduplicated by normalized target within the page, preserving first-seen
// order. Malformed hrefs and non-http(s) schemes are dropped silently;
// broken markup never fails the page.
func (e *Extractor) Extract(pageURL string, body []byte) []types.Link {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []types.Link
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		target, err := urlutil.Resolve(base, href)
		if err != nil {
			return
		}
		if seen[target] {
			return
		}
		seen[target] = true

		linkType := types.LinkExternal
		targetHost, err := urlutil.Host(target)
		if err == nil && targetHost == e.seedHost {
			linkType = types.LinkInternal
		}

		links = append(links, types.Link{
			Source:        pageURL,
			Target:        target,
			Type:          linkType,
			AnchorText:    anchorText(sel),
			ParentElement: parentPath(sel),
		})
	})

	return links
}

func anchorText(sel *goquery.Selection) string {
	text := strings.Join(strings.Fields(sel.Text()), " ")
	runes := []rune(text)
	if len(runes) > maxAnchorTextLen {
		return string(runes[:maxAnchorTextLen])
	}
	return text
}

// parentPath walks up from the anchor and names the landmark elements that
// contain it, outermost first ("header > nav"). An id or first class is
// appended for context when present. Anchors outside any landmark get "body".
func parentPath(sel *goquery.Selection) string {
	if len(sel.Nodes) == 0 {
		return "body"
	}
	var parts []string
	for current := sel.Nodes[0].Parent; current != nil; current = current.Parent {
		if current.Type != html.ElementNode {
			continue
		}
		if current.Data == "body" {
			break
		}
		if landmarkTags[current.Data] {
			parts = append(parts, describeElement(current))
		}
	}
	if len(parts) == 0 {
		return "body"
	}
	// Collected innermost to outermost; present them outermost first.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func describeElement(node *html.Node) string {
	var id, class string
	for _, attr := range node.Attr {
		switch strings.ToLower(attr.Key) {
		case "id":
			id = attr.Val
		case "class":
			fields := strings.Fields(attr.Val)
			if len(fields) > 0 {
				class = fields[0]
			}
		}
	}
	if id != "" {
		return node.Data + "#" + id
	}
	if class != "" {
		return node.Data + "." + class
	}
	return node.Data
}
