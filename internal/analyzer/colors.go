package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Color is one extracted palette entry.
type Color struct {
	Hex      string `json:"hex"`
	RGB      [3]int `json:"rgb"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

var (
	hexColorRe  = regexp.MustCompile(`#([0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)
	rgbColorRe  = regexp.MustCompile(`rgb\((\d+),\s*(\d+),\s*(\d+)\)`)
	colorPropRe = regexp.MustCompile(`(?:color|background|background-color|border-color):\s*([^;]+)`)
)

// maxPaletteSize caps the returned palette at the most frequent colors.
const maxPaletteSize = 10

// extractColors scans style elements and inline style attributes for hex and
// rgb() colors, deduplicates them and returns the palette sorted by
// frequency.
func extractColors(root *html.Node) []Color {
	var sources []string

	for _, style := range findAll(root, byTag("style")) {
		sources = append(sources, textOf(style))
	}
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if style := attr(n, "style"); style != "" {
			for _, m := range colorPropRe.FindAllStringSubmatch(style, -1) {
				sources = append(sources, m[1])
			}
		}
	})

	counts := make(map[string]*Color)
	record := func(hex string) {
		hex = strings.ToLower(hex)
		if existing, ok := counts[hex]; ok {
			existing.Count++
			return
		}
		r, g, b, ok := hexToRGB(hex)
		if !ok {
			return
		}
		counts[hex] = &Color{
			Hex:      hex,
			RGB:      [3]int{r, g, b},
			Category: categorizeColor(r, g, b),
			Count:    1,
		}
	}

	for _, src := range sources {
		for _, m := range hexColorRe.FindAllStringSubmatch(src, -1) {
			record("#" + expandHex(m[1]))
		}
		for _, m := range rgbColorRe.FindAllStringSubmatch(src, -1) {
			r, _ := strconv.Atoi(m[1])
			g, _ := strconv.Atoi(m[2])
			b, _ := strconv.Atoi(m[3])
			if r > 255 || g > 255 || b > 255 {
				continue
			}
			record(fmt.Sprintf("#%02x%02x%02x", r, g, b))
		}
	}

	palette := make([]Color, 0, len(counts))
	for _, c := range counts {
		palette = append(palette, *c)
	}
	sort.Slice(palette, func(i, j int) bool {
		if palette[i].Count != palette[j].Count {
			return palette[i].Count > palette[j].Count
		}
		return palette[i].Hex < palette[j].Hex
	})

	if len(palette) > maxPaletteSize {
		palette = palette[:maxPaletteSize]
	}
	return palette
}

// textOf returns the raw text inside a node without trimming, for CSS blocks.
func textOf(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}

// expandHex turns 3-digit shorthand into 6 digits.
func expandHex(hex string) string {
	if len(hex) != 3 {
		return hex
	}
	var sb strings.Builder
	for _, r := range hex {
		sb.WriteRune(r)
		sb.WriteRune(r)
	}
	return sb.String()
}

func hexToRGB(hex string) (r, g, b int, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	rv, err1 := strconv.ParseInt(hex[0:2], 16, 0)
	gv, err2 := strconv.ParseInt(hex[2:4], 16, 0)
	bv, err3 := strconv.ParseInt(hex[4:6], 16, 0)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, 0, 0, false
	}
	return int(rv), int(gv), int(bv), true
}

// categorizeColor buckets a color by HSV: brightness first (dark/light),
// then saturation (neutral), then hue.
func categorizeColor(r, g, b int) string {
	h, s, v := rgbToHSV(float64(r)/255, float64(g)/255, float64(b)/255)

	if v < 0.2 {
		return "dark"
	}
	if v > 0.8 {
		return "light"
	}
	if s < 0.2 {
		return "neutral"
	}

	switch {
	case h < 0.05 || h >= 0.95:
		return "red"
	case h < 0.11:
		return "orange"
	case h < 0.191:
		return "yellow"
	case h < 0.37:
		return "green"
	case h < 0.55:
		return "cyan"
	case h < 0.75:
		return "blue"
	case h < 0.83:
		return "purple"
	default:
		return "magenta"
	}
}

// rgbToHSV converts normalized RGB (0..1) to HSV with hue in 0..1.
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	maxC := max(r, max(g, b))
	minC := min(r, min(g, b))
	v = maxC

	delta := maxC - minC
	if maxC > 0 {
		s = delta / maxC
	}
	if delta == 0 {
		return 0, s, v
	}

	switch maxC {
	case r:
		h = (g - b) / delta
		if h < 0 {
			h += 6
		}
	case g:
		h = (b-r)/delta + 2
	default:
		h = (r-g)/delta + 4
	}
	return h / 6, s, v
}
