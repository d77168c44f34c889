package catalog

import (
	"sort"
	"strings"
)

// maxExtractedItems bounds how many bullet points a readme section
// contributes to a summary payload.
const maxExtractedItems = 10

// ExtractCapabilities pulls capability bullet points out of a task readme.
// It prefers bullets under a heading mentioning capabilities or features and
// falls back to the first bullets in the document.
func ExtractCapabilities(readme string) []string {
	if items := bulletsUnderHeading(readme, "capabilit", "feature"); len(items) > 0 {
		return items
	}
	return firstBullets(readme)
}

// ExtractUseCases pulls use-case bullet points out of a task readme.
func ExtractUseCases(readme string) []string {
	return bulletsUnderHeading(readme, "use case", "usecase", "scenario")
}

// ExtractPurpose returns the first sentence of a task description as a
// short purpose statement.
func ExtractPurpose(description string) string {
	text := strings.TrimSpace(description)
	if text == "" {
		return ""
	}
	if idx := strings.IndexAny(text, ".\n"); idx > 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

// CategorizeByTags groups task names by their catalog tags.
func CategorizeByTags(tasks []Task) map[string][]string {
	categories := make(map[string][]string)
	for i := range tasks {
		for _, tag := range tasks[i].Tags {
			categories[tag] = append(categories[tag], tasks[i].Name)
		}
	}
	for tag := range categories {
		sort.Strings(categories[tag])
	}
	return categories
}

func bulletsUnderHeading(readme string, keywords ...string) []string {
	var items []string
	inSection := false
	for _, line := range strings.Split(readme, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			heading := strings.ToLower(trimmed)
			inSection = false
			for _, keyword := range keywords {
				if strings.Contains(heading, keyword) {
					inSection = true
					break
				}
			}
			continue
		}
		if !inSection {
			continue
		}
		if item, ok := bulletText(trimmed); ok {
			items = append(items, item)
			if len(items) >= maxExtractedItems {
				break
			}
		}
	}
	return items
}

func firstBullets(readme string) []string {
	var items []string
	for _, line := range strings.Split(readme, "\n") {
		if item, ok := bulletText(strings.TrimSpace(line)); ok {
			items = append(items, item)
			if len(items) >= maxExtractedItems {
				break
			}
		}
	}
	return items
}

func bulletText(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, prefix) {
			text := strings.TrimSpace(strings.TrimPrefix(line, prefix))
			if text != "" {
				return text, true
			}
		}
	}
	return "", false
}
