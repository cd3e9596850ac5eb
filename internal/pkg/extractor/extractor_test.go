package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
)

const seedPage = `<html><body>
<header id="top"><nav><a href="/about">About us</a></nav></header>
<main>
  <a href="/contact">Contact</a>
  <a href="http://other.com/">Elsewhere</a>
</main>
</body></html>`

func TestExtractSeedScenario(t *testing.T) {
	e, err := New("http://example.com/")
	require.NoError(t, err)

	links := e.Extract("http://example.com/", []byte(seedPage))
	require.Len(t, links, 3)

	assert.Equal(t, "http://example.com/about", links[0].Target)
	assert.Equal(t, types.LinkInternal, links[0].Type)
	assert.Equal(t, "About us", links[0].AnchorText)
	assert.Equal(t, "header#top > nav", links[0].ParentElement)

	assert.Equal(t, "http://example.com/contact", links[1].Target)
	assert.Equal(t, types.LinkInternal, links[1].Type)
	assert.Equal(t, "main", links[1].ParentElement)

	assert.Equal(t, "http://other.com/", links[2].Target)
	assert.Equal(t, types.LinkExternal, links[2].Type)

	internal, external := 0, 0
	for _, link := range links {
		assert.Equal(t, "http://example.com/", link.Source)
		if link.Type == types.LinkInternal {
			internal++
		} else {
			external++
		}
	}
	assert.Equal(t, 2, internal)
	assert.Equal(t, 1, external)
}

func TestExtractDeduplicatesWithinPage(t *testing.T) {
	e, err := New("http://example.com/")
	require.NoError(t, err)

	page := `<a href="/a">one</a><a href="/a#frag">two</a><a href="/a/">three</a><a href="/b">four</a>`
	links := e.Extract("http://example.com/", []byte(page))
	require.Len(t, links, 2)
	assert.Equal(t, "http://example.com/a", links[0].Target)
	assert.Equal(t, "one", links[0].AnchorText, "first occurrence wins")
	assert.Equal(t, "http://example.com/b", links[1].Target)
}

func TestExtractDropsUnusableHrefs(t *testing.T) {
	e, err := New("http://example.com/")
	require.NoError(t, err)

	page := `<a href="mailto:x@example.com">mail</a>
<a href="javascript:void(0)">js</a>
<a href="ftp://example.com/f">ftp</a>
<a href="/kept">kept</a>`
	links := e.Extract("http://example.com/", []byte(page))
	require.Len(t, links, 1)
	assert.Equal(t, "http://example.com/kept", links[0].Target)
}

func TestExtractWWWInsensitiveClassification(t *testing.T) {
	e, err := New("http://www.example.com/")
	require.NoError(t, err)

	page := `<a href="http://example.com/page">no www</a>`
	links := e.Extract("http://www.example.com/", []byte(page))
	require.Len(t, links, 1)
	assert.Equal(t, types.LinkInternal, links[0].Type)
}

func TestExtractToleratesBrokenMarkup(t *testing.T) {
	e, err := New("http://example.com/")
	require.NoError(t, err)

	page := `<html><body><div><a href="/ok">ok</a><p><b><a href="/also">also`
	links := e.Extract("http://example.com/", []byte(page))
	assert.Len(t, links, 2)
}

func TestExtractRelativeResolution(t *testing.T) {
	e, err := New("http://example.com/")
	require.NoError(t, err)

	page := `<a href="sibling">s</a><a href="../up">u</a>`
	links := e.Extract("http://example.com/docs/page", []byte(page))
	require.Len(t, links, 2)
	assert.Equal(t, "http://example.com/docs/sibling", links[0].Target)
	assert.Equal(t, "http://example.com/up", links[1].Target)
}
