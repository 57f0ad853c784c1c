package plandoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/cloneplan/internal/analyzer"
)

func sampleAnalysis() *analyzer.Analysis {
	return &analyzer.Analysis{
		Metadata: analyzer.Metadata{
			Title:       "Sample Shop",
			Description: "A sample storefront",
		},
		Menu: []analyzer.MenuItem{
			{Title: "Products", URL: "https://example.com/products", HasSubmenu: true},
			{Title: "About", URL: "https://example.com/about"},
		},
		Colors: []analyzer.Color{
			{Hex: "#336699", Category: "blue", Count: 3},
			{Hex: "#ffffff", Category: "light", Count: 2},
		},
		Layout: analyzer.Layout{
			Header:          true,
			Footer:          true,
			Columns:         2,
			Width:           "responsive",
			ContentSections: 4,
		},
		Components: []analyzer.Component{
			{Type: "button", Count: 5, Variants: 2},
			{Type: "form", Count: 1, Fields: 3, InputTypes: []string{"email", "text"}},
			{Type: "card", Count: 6},
		},
		Content: analyzer.ContentStructure{
			Headings:   map[string]int{"h1": 1, "h2": 3},
			Paragraphs: 12,
			Images:     4,
			Links:      20,
		},
	}
}

func TestGenerate(t *testing.T) {
	doc := Generate(Input{
		URL:      "https://example.com/",
		Analysis: sampleAnalysis(),
		Insights: "Clean, grid-based design.",
		Ideas:    []string{"Idea one", "Idea two"},
		Mockups:  map[string]string{"main page": "https://img.example.com/mock.png"},
	})

	t.Run("has every section", func(t *testing.T) {
		for _, heading := range []string{
			"# Sample Shop Clone Plan",
			"## 1. Project Overview",
			"## 2. Site Structure",
			"## 3. Design Analysis",
			"## 4. Content Statistics",
			"## 5. AI Insights",
			"## 6. Business Ideas",
			"## 7. Mockups",
		} {
			assert.Contains(t, doc, heading)
		}
	})

	t.Run("navigation and pages", func(t *testing.T) {
		assert.Contains(t, doc, "- Products (has submenu)")
		assert.Contains(t, doc, "- About\n")
		assert.Contains(t, doc, "**Home**")
	})

	t.Run("design details", func(t *testing.T) {
		assert.Contains(t, doc, "**Color 1**: #336699 (blue)")
		assert.Contains(t, doc, "**Buttons**: 5 (2 variants)")
		assert.Contains(t, doc, "**Form**: 3 fields (email, text)")
		assert.Contains(t, doc, "**Responsive**: yes")
	})

	t.Run("key features from layout", func(t *testing.T) {
		assert.Contains(t, doc, "Top header navigation")
		assert.Contains(t, doc, "Card-based content display")
	})

	t.Run("generated sections", func(t *testing.T) {
		assert.Contains(t, doc, "Clean, grid-based design.")
		assert.Contains(t, doc, "- Idea one")
		assert.Contains(t, doc, "![main page](https://img.example.com/mock.png)")
	})
}

func TestGenerateSparseAnalysis(t *testing.T) {
	doc := Generate(Input{
		URL:      "https://bare.example.com/",
		Analysis: &analyzer.Analysis{},
	})

	assert.True(t, strings.HasPrefix(doc, "# Website Clone Plan"))
	assert.Contains(t, doc, "No navigation structure could be identified.")
	assert.Contains(t, doc, "No colors could be extracted.")
	assert.Contains(t, doc, "Simple design")
	assert.NotContains(t, doc, "## 5. AI Insights")
	assert.NotContains(t, doc, "## 6. Business Ideas")
	assert.NotContains(t, doc, "## 7. Mockups")
}
