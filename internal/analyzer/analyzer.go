// Package analyzer inspects website HTML and extracts the structural facts a
// clone planning document is built from: metadata, navigation, color palette,
// layout shape, UI components and content statistics.
//
// Extraction is heuristic tag and attribute inspection over the parsed tree;
// there is no rendering or script execution.
package analyzer

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/fyrsmithlabs/cloneplan/internal/fetcher"
)

// ErrEmptyDocument indicates the fetched page had no parseable HTML.
var ErrEmptyDocument = errors.New("empty html document")

// Metadata holds the page's head-level descriptors.
type Metadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords,omitempty"`
	OGTitle       string   `json:"og_title,omitempty"`
	OGDescription string   `json:"og_description,omitempty"`
	OGImage       string   `json:"og_image,omitempty"`
	Favicon       string   `json:"favicon,omitempty"`
}

// Layout describes the page's macro structure.
type Layout struct {
	Header          bool   `json:"header"`
	Footer          bool   `json:"footer"`
	Sidebar         bool   `json:"sidebar"`
	Columns         int    `json:"columns"`
	Width           string `json:"width"`
	ContentSections int    `json:"content_sections"`
}

// ContentStructure counts the page's content primitives.
type ContentStructure struct {
	Headings   map[string]int `json:"headings"`
	Paragraphs int            `json:"paragraphs"`
	Images     int            `json:"images"`
	Links      int            `json:"links"`
	Lists      int            `json:"lists"`
	Tables     int            `json:"tables"`
	Forms      int            `json:"forms"`
}

// Page is one discovered page of the target site.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Analysis is the complete structural extraction for one page.
type Analysis struct {
	Metadata   Metadata         `json:"metadata"`
	Menu       []MenuItem       `json:"menu"`
	Colors     []Color          `json:"colors"`
	Layout     Layout           `json:"layout"`
	Components []Component      `json:"components"`
	Content    ContentStructure `json:"content_structure"`
	Pages      []Page           `json:"pages"`
}

var (
	headerRe  = regexp.MustCompile(`(?i)header`)
	footerRe  = regexp.MustCompile(`(?i)footer`)
	sidebarRe = regexp.MustCompile(`(?i)sidebar|side`)
	sectionRe = regexp.MustCompile(`(?i)section|block`)
)

// Analyze parses HTML content and runs every extractor over the tree.
// baseURL resolves relative links in the navigation structure.
func Analyze(content, baseURL string) (*Analysis, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	a := &Analysis{
		Metadata:   extractMetadata(root),
		Menu:       extractMenu(root, baseURL),
		Colors:     extractColors(root),
		Layout:     analyzeLayout(root),
		Components: identifyComponents(root),
		Content:    analyzeContent(root),
	}
	a.Pages = extractPages(root, baseURL, a.Metadata.Title)

	return a, nil
}

// maxPages caps the discovered page list at the analyzed page plus the first
// same-domain links.
const maxPages = 10

// extractPages collects the site's pages: the analyzed page first, then every
// distinct same-domain link found in the document, in document order.
func extractPages(root *html.Node, baseURL, title string) []Page {
	pages := []Page{{URL: baseURL, Title: title}}

	base, err := url.Parse(baseURL)
	if err != nil {
		return pages
	}

	seen := map[string]struct{}{baseURL: {}}
	for _, a := range findAll(root, byTag("a")) {
		href := attr(a, "href")
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""
		link := resolved.String()

		if !fetcher.SameDomain(baseURL, link) {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}

		pages = append(pages, Page{URL: link, Title: textContent(a)})
		if len(pages) >= maxPages {
			break
		}
	}

	return pages
}

// extractMetadata pulls title, meta description/keywords, OpenGraph tags and
// the favicon link.
func extractMetadata(root *html.Node) Metadata {
	var md Metadata

	if title := findFirst(root, byTag("title")); title != nil {
		md.Title = textContent(title)
	}

	for _, meta := range findAll(root, byTag("meta")) {
		content := attr(meta, "content")
		switch attr(meta, "name") {
		case "description":
			md.Description = content
		case "keywords":
			for _, kw := range strings.Split(content, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					md.Keywords = append(md.Keywords, kw)
				}
			}
		}
		switch attr(meta, "property") {
		case "og:title":
			md.OGTitle = content
		case "og:description":
			md.OGDescription = content
		case "og:image":
			md.OGImage = content
		}
	}

	for _, link := range findAll(root, byTag("link")) {
		rel := strings.ToLower(attr(link, "rel"))
		if rel == "icon" || rel == "shortcut icon" {
			md.Favicon = attr(link, "href")
			break
		}
	}

	return md
}

// analyzeLayout detects header/footer/sidebar presence, estimates the column
// count (capped at 4) and classifies the page as responsive or fixed width.
func analyzeLayout(root *html.Node) Layout {
	layout := Layout{Columns: 1, Width: "fixed"}

	layout.Header = findFirst(root, byTag("header")) != nil ||
		findFirst(root, func(n *html.Node) bool { return n.Data == "div" && attrMatches(n, headerRe) }) != nil
	layout.Footer = findFirst(root, byTag("footer")) != nil ||
		findFirst(root, func(n *html.Node) bool { return n.Data == "div" && attrMatches(n, footerRe) }) != nil
	layout.Sidebar = findFirst(root, byTag("aside")) != nil ||
		findFirst(root, func(n *html.Node) bool { return n.Data == "div" && attrMatches(n, sidebarRe) }) != nil

	main := findFirst(root, byTag("main"))
	if main == nil {
		main = findFirst(root, func(n *html.Node) bool {
			return n.Data == "div" && (attr(n, "id") == "content" || attr(n, "class") == "content")
		})
	}
	if main != nil {
		if columns := len(directChildren(main, "div", "section")); columns > 1 {
			layout.Columns = min(columns, 4)
		}
	}

	layout.ContentSections = countAll(root, "section") +
		len(findAll(root, func(n *html.Node) bool { return n.Data == "div" && sectionRe.MatchString(attr(n, "class")) }))

	for _, meta := range findAll(root, byTag("meta")) {
		if attr(meta, "name") == "viewport" && strings.Contains(attr(meta, "content"), "width=device-width") {
			layout.Width = "responsive"
			break
		}
	}

	return layout
}

// analyzeContent builds a histogram of headings plus counts of the remaining
// content primitives.
func analyzeContent(root *html.Node) ContentStructure {
	cs := ContentStructure{Headings: make(map[string]int)}

	for i := 1; i <= 6; i++ {
		tag := fmt.Sprintf("h%d", i)
		if count := countAll(root, tag); count > 0 {
			cs.Headings[tag] = count
		}
	}
	cs.Paragraphs = countAll(root, "p")
	cs.Images = countAll(root, "img")
	cs.Links = len(findAll(root, func(n *html.Node) bool { return n.Data == "a" && attr(n, "href") != "" }))
	cs.Lists = countAll(root, "ul", "ol")
	cs.Tables = countAll(root, "table")
	cs.Forms = countAll(root, "form")

	return cs
}
