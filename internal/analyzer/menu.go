package analyzer

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// MenuItem is one entry in the site's navigation tree.
type MenuItem struct {
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Depth      int        `json:"depth"`
	HasSubmenu bool       `json:"has_submenu"`
	Children   []MenuItem `json:"children"`
}

var menuAttrRe = regexp.MustCompile(`(?i)menu|navigation|nav|gnb|main-menu|top-menu|header`)

// extractMenu finds the most link-dense navigation candidate and extracts its
// item tree. Candidates are nav elements and div/ul containers whose id or
// class looks navigational.
func extractMenu(root *html.Node, baseURL string) []MenuItem {
	candidates := findAll(root, func(n *html.Node) bool {
		if n.Data == "nav" {
			return true
		}
		if n.Data == "div" || n.Data == "ul" {
			return attrMatches(n, menuAttrRe)
		}
		return false
	})

	var menuElement *html.Node
	maxLinks := 0
	for _, candidate := range candidates {
		links := countAll(candidate, "a")
		if links > maxLinks {
			menuElement = candidate
			maxLinks = links
		}
	}
	if menuElement == nil {
		return nil
	}

	return extractMenuLevel(menuElement, baseURL, 1)
}

// extractMenuLevel walks one container level. List items are the common
// structure; bare anchors and nested lists inside generic containers are
// handled as a fallback.
func extractMenuLevel(element *html.Node, baseURL string, depth int) []MenuItem {
	var items []MenuItem

	if element.Data == "ul" {
		for _, li := range directChildren(element, "li") {
			if item := extractListItem(li, baseURL, depth); item != nil {
				items = append(items, *item)
			}
		}
		return items
	}

	for _, a := range directChildren(element, "a") {
		if item := makeMenuItem(a, baseURL, depth); item != nil {
			items = append(items, *item)
		}
	}
	for _, child := range directChildren(element, "ul", "nav", "div") {
		items = append(items, extractMenuLevel(child, baseURL, depth)...)
	}

	return items
}

// extractListItem extracts a menu entry from an li, descending into a nested
// ul as its submenu.
func extractListItem(li *html.Node, baseURL string, depth int) *MenuItem {
	a := findFirst(li, func(n *html.Node) bool { return n.Data == "a" && attr(n, "href") != "" })
	if a == nil {
		return nil
	}

	item := makeMenuItem(a, baseURL, depth)
	if item == nil {
		return nil
	}

	if submenu := findFirst(li, byTag("ul")); submenu != nil {
		item.HasSubmenu = true
		item.Children = extractMenuLevel(submenu, baseURL, depth+1)
	}

	return item
}

// makeMenuItem builds an item from an anchor, resolving relative links
// against the site base.
func makeMenuItem(a *html.Node, baseURL string, depth int) *MenuItem {
	href := attr(a, "href")
	title := textContent(a)
	if title == "" {
		return nil
	}

	if href != "" && !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") &&
		!strings.HasPrefix(href, "javascript:") {
		if base, err := url.Parse(baseURL); err == nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
	}

	return &MenuItem{
		Title:    title,
		URL:      href,
		Depth:    depth,
		Children: []MenuItem{},
	}
}
