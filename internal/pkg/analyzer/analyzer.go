package analyzer

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
)

// Heading is one h1-h6 element in document order.
type Heading struct {
	Level int
	Text  string
}

// Analysis is everything the analyzer derives from one HTML body.
type Analysis struct {
	Title           string
	TitleCount      int
	MetaDescription string
	HasMetaDesc     bool
	HasCanonical    bool
	HasViewport     bool
	HasDoctype      bool
	HasCharset      bool
	RobotsNoindex   bool
	Headings        []Heading
	H1Count         int
	SkippedLevels   int
	Landmarks       map[string]bool
	ImageCount      int
	ImagesNoAlt     int
	MixedResources  int
	Structure       *types.StructureNode
	SchemaBlocks    []types.SchemaBlock
}

// Tags kept in the semantic structure tree.
var structureTags = map[string]bool{
	"html": true, "head": true, "body": true,
	"header": true, "footer": true, "nav": true, "main": true,
	"section": true, "article": true, "aside": true, "div": true,
}

// Landmark regions tracked as accessibility signals.
var landmarkTags = map[string]bool{
	"header": true, "nav": true, "main": true,
	"footer": true, "article": true, "section": true,
}

const maxStructureDepth = 4

const jsonLDQuery = `//script[@type="application/ld+json"]`

// Analyze parses the body once and walks it for every structural and SEO
// signal. Parsing is tolerant: broken markup produces a best-effort tree,
// never an error. pageURL is only consulted for its scheme (mixed content).
func Analyze(pageURL string, body []byte) *Analysis {
	a := &Analysis{Landmarks: make(map[string]bool)}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		// html.Parse only fails on reader errors; a bytes.Reader has none,
		// but keep the page usable regardless.
		return a
	}

	isHTTPS := strings.HasPrefix(strings.ToLower(pageURL), "https://")
	a.walk(doc, isHTTPS)
	a.SkippedLevels = countSkippedLevels(a.Headings)
	a.Structure = buildStructure(findElement(doc, "body"), 0)
	a.SchemaBlocks = extractSchemaBlocks(doc)
	return a
}

func (a *Analysis) walk(node *html.Node, isHTTPS bool) {
	switch node.Type {
	case html.DoctypeNode:
		a.HasDoctype = true
	case html.ElementNode:
		a.visitElement(node, isHTTPS)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		a.walk(child, isHTTPS)
	}
}

func (a *Analysis) visitElement(node *html.Node, isHTTPS bool) {
	tag := node.Data
	switch tag {
	case "title":
		a.TitleCount++
		if a.Title == "" {
			a.Title = strings.TrimSpace(nodeText(node))
		}
	case "meta":
		a.visitMeta(node)
	case "link":
		if strings.EqualFold(attr(node, "rel"), "canonical") && attr(node, "href") != "" {
			a.HasCanonical = true
		}
		a.countMixed(node, "href", isHTTPS)
	case "img":
		a.ImageCount++
		if strings.TrimSpace(attr(node, "alt")) == "" {
			a.ImagesNoAlt++
		}
		a.countMixed(node, "src", isHTTPS)
	case "script":
		a.countMixed(node, "src", isHTTPS)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(tag[1] - '0')
		if level == 1 {
			a.H1Count++
		}
		a.Headings = append(a.Headings, Heading{
			Level: level,
			Text:  strings.TrimSpace(nodeText(node)),
		})
	}
	if landmarkTags[tag] {
		a.Landmarks[tag] = true
	}
}

func (a *Analysis) visitMeta(node *html.Node) {
	name := strings.ToLower(attr(node, "name"))
	content := attr(node, "content")
	switch name {
	case "description":
		a.MetaDescription = strings.TrimSpace(content)
		a.HasMetaDesc = a.MetaDescription != ""
	case "viewport":
		a.HasViewport = true
	case "robots":
		if strings.Contains(strings.ToLower(content), "noindex") {
			a.RobotsNoindex = true
		}
	}
	if attr(node, "charset") != "" || strings.EqualFold(attr(node, "http-equiv"), "content-type") {
		a.HasCharset = true
	}
}

// Plain http:// resources on an https page count as mixed content.
func (a *Analysis) countMixed(node *html.Node, attrName string, isHTTPS bool) {
	if !isHTTPS {
		return
	}
	if strings.HasPrefix(strings.ToLower(attr(node, attrName)), "http://") {
		a.MixedResources++
	}
}

// A skipped level is a heading more than one level deeper than the heading
// before it (h2 followed by h4). The first heading sets the baseline.
func countSkippedLevels(headings []Heading) int {
	skipped := 0
	for i := 1; i < len(headings); i++ {
		if headings[i].Level > headings[i-1].Level+1 {
			skipped++
		}
	}
	return skipped
}

// buildStructure mirrors the semantic outline of the page: landmark and
// container elements only, to a fixed depth, with per-tag counts of direct
// element children.
func buildStructure(node *html.Node, depth int) *types.StructureNode {
	if node == nil || depth > maxStructureDepth || !structureTags[node.Data] {
		return nil
	}

	sn := &types.StructureNode{Tag: node.Data}
	for _, attribute := range node.Attr {
		switch strings.ToLower(attribute.Key) {
		case "id":
			sn.ID = attribute.Val
		case "class":
			sn.Classes = strings.Fields(attribute.Val)
		}
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if sn.ChildCounts == nil {
			sn.ChildCounts = make(map[string]int)
		}
		sn.ChildCounts[child.Data]++
		if childNode := buildStructure(child, depth+1); childNode != nil {
			sn.Children = append(sn.Children, childNode)
		}
	}
	return sn
}

// extractSchemaBlocks collects every JSON-LD script. A block that is not
// valid JSON keeps its parse error; the rest of the page is unaffected.
func extractSchemaBlocks(doc *html.Node) []types.SchemaBlock {
	nodes, err := htmlquery.QueryAll(doc, jsonLDQuery)
	if err != nil {
		return nil
	}

	var blocks []types.SchemaBlock
	for _, node := range nodes {
		raw := strings.TrimSpace(htmlquery.InnerText(node))
		if raw == "" {
			blocks = append(blocks, types.SchemaBlock{Err: "empty block"})
			continue
		}
		if !json.Valid([]byte(raw)) {
			var probe any
			err := json.Unmarshal([]byte(raw), &probe)
			blocks = append(blocks, types.SchemaBlock{Err: err.Error()})
			continue
		}
		blocks = append(blocks, types.SchemaBlock{Raw: json.RawMessage(raw)})
	}
	return blocks
}

func findElement(node *html.Node, tag string) *html.Node {
	if node.Type == html.ElementNode && node.Data == tag {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func attr(node *html.Node, key string) string {
	for _, attribute := range node.Attr {
		if strings.EqualFold(attribute.Key, key) {
			return attribute.Val
		}
	}
	return ""
}

func nodeText(node *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(node)
	return sb.String()
}

// Signals converts an analysis plus fetch facts into the scorer's input.
func (a *Analysis) Signals(pageURL string, statusCode int, fetchMillis int64, pageSize int) types.PageSignals {
	return types.PageSignals{
		StatusCode:     statusCode,
		HTTPS:          strings.HasPrefix(strings.ToLower(pageURL), "https://"),
		FetchMillis:    fetchMillis,
		PageSize:       pageSize,
		Title:          a.Title,
		TitleCount:     a.TitleCount,
		MetaDesc:       a.MetaDescription,
		HasMetaDesc:    a.HasMetaDesc,
		HasCanonical:   a.HasCanonical,
		HasViewport:    a.HasViewport,
		HasDoctype:     a.HasDoctype,
		HasCharset:     a.HasCharset,
		RobotsNoindex:  a.RobotsNoindex,
		ImageCount:     a.ImageCount,
		ImagesNoAlt:    a.ImagesNoAlt,
		H1Count:        a.H1Count,
		SkippedLevels:  a.SkippedLevels,
		Landmarks:      a.Landmarks,
		SchemaCount:    len(a.SchemaBlocks),
		SchemaErrors:   countSchemaErrors(a.SchemaBlocks),
		MixedResources: a.MixedResources,
	}
}

func countSchemaErrors(blocks []types.SchemaBlock) int {
	errors := 0
	for _, block := range blocks {
		if block.Err != "" {
			errors++
		}
	}
	return errors
}
