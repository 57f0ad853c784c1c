package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="description" content="A sample storefront">
<meta name="keywords" content="shop, demo, sample">
<meta property="og:title" content="Sample Shop">
<meta property="og:image" content="/og.png">
<link rel="icon" href="/favicon.ico">
<title>Sample Shop</title>
<style>
.hero { background-color: #336699; color: #fff; }
.accent { color: rgb(255, 87, 34); }
</style>
</head>
<body>
<header class="site-header">
  <nav class="main-menu">
    <ul>
      <li><a href="/products">Products</a>
        <ul><li><a href="/products/new">New</a></li></ul>
      </li>
      <li><a href="/about">About</a></li>
      <li><a href="https://example.com/contact">Contact</a></li>
    </ul>
  </nav>
</header>
<main>
  <div class="column" style="color:#112233">
    <h1>Welcome</h1>
    <p>Intro paragraph.</p>
    <div class="card item">First</div>
    <div class="card item">Second</div>
  </div>
  <section class="content-block">
    <h2>Featured</h2>
    <p>More text.</p>
    <img src="/a.png">
    <a class="btn primary" href="/buy">Buy now</a>
    <button>Subscribe</button>
  </section>
</main>
<div class="slider"><img src="/s1.png"></div>
<form action="/signup">
  <input type="email" name="email">
  <input type="text" name="name">
  <textarea name="note"></textarea>
</form>
<footer>
  <p>© Sample</p>
  <a href="/about">About us</a>
  <a href="#top">Top</a>
  <a href="https://partner.example.net/promo">Partner</a>
</footer>
</body>
</html>`

func TestAnalyze(t *testing.T) {
	a, err := Analyze(samplePage, "https://example.com")
	require.NoError(t, err)

	t.Run("metadata", func(t *testing.T) {
		assert.Equal(t, "Sample Shop", a.Metadata.Title)
		assert.Equal(t, "A sample storefront", a.Metadata.Description)
		assert.Equal(t, []string{"shop", "demo", "sample"}, a.Metadata.Keywords)
		assert.Equal(t, "Sample Shop", a.Metadata.OGTitle)
		assert.Equal(t, "/og.png", a.Metadata.OGImage)
		assert.Equal(t, "/favicon.ico", a.Metadata.Favicon)
	})

	t.Run("menu", func(t *testing.T) {
		require.Len(t, a.Menu, 3)
		assert.Equal(t, "Products", a.Menu[0].Title)
		assert.Equal(t, "https://example.com/products", a.Menu[0].URL)
		assert.True(t, a.Menu[0].HasSubmenu)
		require.Len(t, a.Menu[0].Children, 1)
		assert.Equal(t, "New", a.Menu[0].Children[0].Title)
		assert.Equal(t, 2, a.Menu[0].Children[0].Depth)
		assert.False(t, a.Menu[1].HasSubmenu)
	})

	t.Run("colors", func(t *testing.T) {
		hexes := make(map[string]string)
		for _, c := range a.Colors {
			hexes[c.Hex] = c.Category
		}
		assert.Contains(t, hexes, "#336699")
		assert.Contains(t, hexes, "#ffffff")
		assert.Contains(t, hexes, "#ff5722")
		assert.Contains(t, hexes, "#112233")
		assert.Equal(t, "light", hexes["#ffffff"])
	})

	t.Run("layout", func(t *testing.T) {
		assert.True(t, a.Layout.Header)
		assert.True(t, a.Layout.Footer)
		assert.False(t, a.Layout.Sidebar)
		assert.Equal(t, 2, a.Layout.Columns)
		assert.Equal(t, "responsive", a.Layout.Width)
		assert.Equal(t, 1, a.Layout.ContentSections)
	})

	t.Run("components", func(t *testing.T) {
		byType := make(map[string]Component)
		for _, c := range a.Components {
			byType[c.Type] = c
		}
		assert.Equal(t, 2, byType["button"].Count)
		assert.Equal(t, 3, byType["form"].Fields)
		assert.Equal(t, []string{"email", "text", "textarea"}, byType["form"].InputTypes)
		assert.Equal(t, 2, byType["card"].Count)
		assert.Equal(t, 1, byType["slider"].Count)
		assert.Equal(t, 1, byType["navigation"].Count)
	})

	t.Run("content structure", func(t *testing.T) {
		assert.Equal(t, 1, a.Content.Headings["h1"])
		assert.Equal(t, 1, a.Content.Headings["h2"])
		assert.Equal(t, 3, a.Content.Paragraphs)
		assert.Equal(t, 2, a.Content.Images)
		assert.Equal(t, 1, a.Content.Forms)
	})

	t.Run("pages", func(t *testing.T) {
		require.Len(t, a.Pages, 6)
		assert.Equal(t, Page{URL: "https://example.com", Title: "Sample Shop"}, a.Pages[0])
		assert.Equal(t, Page{URL: "https://example.com/products", Title: "Products"}, a.Pages[1])
		assert.Equal(t, Page{URL: "https://example.com/products/new", Title: "New"}, a.Pages[2])
		assert.Equal(t, Page{URL: "https://example.com/about", Title: "About"}, a.Pages[3])
		assert.Equal(t, Page{URL: "https://example.com/contact", Title: "Contact"}, a.Pages[4])
		assert.Equal(t, Page{URL: "https://example.com/buy", Title: "Buy now"}, a.Pages[5])

		// Off-domain, fragment-only and duplicate links are excluded.
		for _, page := range a.Pages {
			assert.NotContains(t, page.URL, "partner.example.net")
			assert.NotContains(t, page.URL, "#")
		}
	})
}

func TestAnalyzeEmpty(t *testing.T) {
	_, err := Analyze("   ", "https://example.com")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}
