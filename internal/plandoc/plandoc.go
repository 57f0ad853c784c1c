// Package plandoc renders the markdown clone planning document from an
// analysis and the AI-generated narrative sections.
package plandoc

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/cloneplan/internal/analyzer"
)

// Input bundles everything the document is rendered from.
type Input struct {
	URL      string
	Analysis *analyzer.Analysis
	Insights string
	Ideas    []string
	Mockups  map[string]string
}

// Generate renders the planning document as markdown.
func Generate(in Input) string {
	a := in.Analysis
	title := a.Metadata.Title
	if title == "" {
		title = "Website"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s Clone Plan\n\n", title)

	sb.WriteString("## 1. Project Overview\n\n")
	sb.WriteString("### 1.1 Target\n")
	fmt.Fprintf(&sb, "- **Site**: %s\n", title)
	fmt.Fprintf(&sb, "- **URL**: %s\n", in.URL)
	fmt.Fprintf(&sb, "- **Analyzed**: %s\n\n", time.Now().Format("2006-01-02"))

	if a.Metadata.Description != "" {
		sb.WriteString("### 1.2 Description\n")
		fmt.Fprintf(&sb, "%s\n\n", a.Metadata.Description)
	}

	sb.WriteString("### 1.3 Key Features\n")
	for _, feature := range keyFeatures(a) {
		fmt.Fprintf(&sb, "- %s\n", feature)
	}
	sb.WriteString("\n")

	sb.WriteString("## 2. Site Structure\n\n")
	sb.WriteString("### 2.1 Navigation\n")
	if len(a.Menu) == 0 {
		sb.WriteString("- No navigation structure could be identified.\n")
	}
	for _, item := range a.Menu {
		suffix := ""
		if item.HasSubmenu {
			suffix = " (has submenu)"
		}
		fmt.Fprintf(&sb, "- %s%s\n", item.Title, suffix)
	}
	sb.WriteString("\n### 2.2 Main Pages\n")
	sb.WriteString("- **Home**: main content and primary introduction\n")
	for i, item := range a.Menu {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&sb, "- **%s**: content related to %s\n", item.Title, item.Title)
	}
	sb.WriteString("\n")

	sb.WriteString("## 3. Design Analysis\n\n")
	sb.WriteString("### 3.1 Layout\n")
	fmt.Fprintf(&sb, "- **Header**: %s\n", yesNo(a.Layout.Header))
	fmt.Fprintf(&sb, "- **Footer**: %s\n", yesNo(a.Layout.Footer))
	fmt.Fprintf(&sb, "- **Sidebar**: %s\n", yesNo(a.Layout.Sidebar))
	fmt.Fprintf(&sb, "- **Columns**: %d\n", a.Layout.Columns)
	fmt.Fprintf(&sb, "- **Responsive**: %s\n", yesNo(a.Layout.Width == "responsive"))
	fmt.Fprintf(&sb, "- **Content sections**: %d\n\n", a.Layout.ContentSections)

	sb.WriteString("### 3.2 Color Palette\n")
	if len(a.Colors) == 0 {
		sb.WriteString("- No colors could be extracted.\n")
	}
	for i, color := range a.Colors {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "- **Color %d**: %s (%s)\n", i+1, color.Hex, color.Category)
	}
	sb.WriteString("\n### 3.3 UI Components\n")
	if len(a.Components) == 0 {
		sb.WriteString("- No recurring components were identified.\n")
	}
	for _, component := range a.Components {
		switch component.Type {
		case "button":
			fmt.Fprintf(&sb, "- **Buttons**: %d (%d variants)\n", component.Count, component.Variants)
		case "form":
			fmt.Fprintf(&sb, "- **Form**: %d fields (%s)\n", component.Fields, strings.Join(component.InputTypes, ", "))
		default:
			fmt.Fprintf(&sb, "- **%s**: %d\n", titleCase(component.Type), component.Count)
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## 4. Content Statistics\n\n")
	writeContentStats(&sb, a.Content)

	if in.Insights != "" {
		sb.WriteString("\n## 5. AI Insights\n\n")
		sb.WriteString(in.Insights)
		sb.WriteString("\n")
	}

	if len(in.Ideas) > 0 {
		sb.WriteString("\n## 6. Business Ideas\n\n")
		for _, idea := range in.Ideas {
			fmt.Fprintf(&sb, "- %s\n", idea)
		}
	}

	if len(in.Mockups) > 0 {
		sb.WriteString("\n## 7. Mockups\n\n")
		names := make([]string, 0, len(in.Mockups))
		for name := range in.Mockups {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "![%s](%s)\n", name, in.Mockups[name])
		}
	}

	return sb.String()
}

// keyFeatures derives the overview bullet list from layout and components.
func keyFeatures(a *analyzer.Analysis) []string {
	var features []string
	if a.Layout.Header {
		features = append(features, "Top header navigation")
	}
	if a.Layout.Footer {
		features = append(features, "Footer information block")
	}
	if a.Layout.Sidebar {
		features = append(features, "Sidebar menu")
	}
	if a.Layout.Width == "responsive" {
		features = append(features, "Responsive layout")
	}
	for _, component := range a.Components {
		switch {
		case component.Type == "slider":
			features = append(features, "Image slider/carousel")
		case component.Type == "form" && component.Fields > 3:
			features = append(features, "Multi-field input form")
		case component.Type == "card" && component.Count > 3:
			features = append(features, "Card-based content display")
		}
	}
	if len(features) == 0 {
		features = []string{"Simple design", "Information-centric layout"}
	}
	return features
}

func writeContentStats(sb *strings.Builder, cs analyzer.ContentStructure) {
	if len(cs.Headings) > 0 {
		levels := make([]string, 0, len(cs.Headings))
		for level := range cs.Headings {
			levels = append(levels, level)
		}
		sort.Strings(levels)
		parts := make([]string, 0, len(levels))
		for _, level := range levels {
			parts = append(parts, fmt.Sprintf("%s ×%d", level, cs.Headings[level]))
		}
		fmt.Fprintf(sb, "- **Headings**: %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(sb, "- **Paragraphs**: %d\n", cs.Paragraphs)
	fmt.Fprintf(sb, "- **Images**: %d\n", cs.Images)
	fmt.Fprintf(sb, "- **Links**: %d\n", cs.Links)
	fmt.Fprintf(sb, "- **Lists**: %d\n", cs.Lists)
	fmt.Fprintf(sb, "- **Tables**: %d\n", cs.Tables)
	fmt.Fprintf(sb, "- **Forms**: %d\n", cs.Forms)
}

// titleCase capitalizes the first letter of an ASCII component type name.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
