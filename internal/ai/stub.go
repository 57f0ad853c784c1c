package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
)

// Stub is an offline backend producing deterministic output. It serves tests
// and keyless deployments.
type Stub struct{}

// NewStub creates the offline backend.
func NewStub() *Stub {
	return &Stub{}
}

// GenerateText returns canned prose derived from the prompt so repeated runs
// for the same site stay stable.
func (s *Stub) GenerateText(ctx context.Context, taskID, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if strings.Contains(strings.ToLower(prompt), "business idea") {
		return strings.Join([]string{
			"Offer a subscription tier built around the site's most visited section.",
			"Add a localized version targeting the site's secondary audience.",
			"Package the site's core workflow as an embeddable widget for partners.",
		}, "\n"), nil
	}

	return fmt.Sprintf(
		"The site follows modern design conventions with a clear visual hierarchy. "+
			"Navigation is discoverable and the color palette is applied consistently. "+
			"A clone should preserve the existing layout skeleton while simplifying "+
			"secondary content blocks. (profile %08x)",
		hashOf(prompt)), nil
}

// GenerateImage returns a placeholder image URL labeled with the prompt's
// leading words.
func (s *Stub) GenerateImage(ctx context.Context, taskID, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	words := strings.Fields(prompt)
	if len(words) > 4 {
		words = words[:4]
	}
	label := url.QueryEscape(strings.Join(words, " "))
	return fmt.Sprintf("https://placehold.co/1024x768?text=%s", label), nil
}

func hashOf(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
