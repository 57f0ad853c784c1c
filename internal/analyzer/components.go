package analyzer

import (
	"regexp"
	"sort"

	"golang.org/x/net/html"
)

// Component is one identified UI component family.
type Component struct {
	Type       string   `json:"type"`
	Count      int      `json:"count"`
	Variants   int      `json:"variants,omitempty"`
	Fields     int      `json:"fields,omitempty"`
	InputTypes []string `json:"input_types,omitempty"`
}

var (
	buttonRe = regexp.MustCompile(`(?i)btn|button`)
	cardRe   = regexp.MustCompile(`(?i)card|box|item`)
	sliderRe = regexp.MustCompile(`(?i)slider|carousel|slideshow`)
)

// identifyComponents finds the common UI component families: buttons, forms,
// cards, sliders and navigation blocks.
func identifyComponents(root *html.Node) []Component {
	var components []Component

	buttons := findAll(root, func(n *html.Node) bool {
		if n.Data == "button" {
			return true
		}
		return (n.Data == "a" || n.Data == "div") && buttonRe.MatchString(attr(n, "class"))
	})
	if len(buttons) > 0 {
		variants := make(map[string]struct{})
		for _, b := range buttons {
			variants[attr(b, "class")] = struct{}{}
		}
		components = append(components, Component{
			Type:     "button",
			Count:    len(buttons),
			Variants: min(len(variants), 3),
		})
	}

	for _, form := range findAll(root, byTag("form")) {
		inputs := findAll(form, func(n *html.Node) bool {
			return n.Data == "input" || n.Data == "textarea" || n.Data == "select"
		})
		if len(inputs) == 0 {
			continue
		}
		typeSet := make(map[string]struct{})
		for _, input := range inputs {
			if input.Data == "input" {
				t := attr(input, "type")
				if t == "" {
					t = "text"
				}
				typeSet[t] = struct{}{}
			} else {
				typeSet[input.Data] = struct{}{}
			}
		}
		types := make([]string, 0, len(typeSet))
		for t := range typeSet {
			types = append(types, t)
		}
		sort.Strings(types)
		components = append(components, Component{
			Type:       "form",
			Count:      1,
			Fields:     len(inputs),
			InputTypes: types,
		})
	}

	cards := findAll(root, func(n *html.Node) bool {
		return (n.Data == "div" || n.Data == "article") && cardRe.MatchString(attr(n, "class"))
	})
	if len(cards) > 0 {
		components = append(components, Component{Type: "card", Count: len(cards)})
	}

	if findFirst(root, func(n *html.Node) bool { return n.Data == "div" && attrMatches(n, sliderRe) }) != nil {
		components = append(components, Component{Type: "slider", Count: 1})
	}

	if navs := countAll(root, "nav"); navs > 0 {
		components = append(components, Component{Type: "navigation", Count: navs})
	}

	return components
}
