package analyzer

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// walk visits n and all of its descendants in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// findAll returns every descendant element matching the predicate.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			found = append(found, n)
		}
	})
	return found
}

// findFirst returns the first descendant element matching the predicate.
func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	nodes := findAll(root, match)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// byTag matches elements with the given tag name.
func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// attrMatches reports whether the id or class attribute matches re.
func attrMatches(n *html.Node, re *regexp.Regexp) bool {
	return re.MatchString(attr(n, "id")) || re.MatchString(attr(n, "class"))
}

// textContent returns the concatenated trimmed text of n's subtree.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return strings.TrimSpace(sb.String())
}

// directChildren returns n's element children with the given tag.
func directChildren(n *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		for _, tag := range tags {
			if c.Data == tag {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// countAll counts descendant elements with any of the given tags.
func countAll(root *html.Node, tags ...string) int {
	count := 0
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		for _, tag := range tags {
			if n.Data == tag {
				count++
				return
			}
		}
	})
	return count
}
