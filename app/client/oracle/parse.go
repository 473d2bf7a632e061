package oracle

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?i)```([a-z]*)\\s*([\\s\\S]*?)\\s*```")

// ExtractFenced returns the content of the first fenced block tagged with lang
// (or any fenced block when lang is empty). Returns "" when no block matches.
func ExtractFenced(text, lang string) string {
	for _, match := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		if lang == "" || strings.EqualFold(match[1], lang) {
			return strings.TrimSpace(match[2])
		}
	}

	return ""
}

// StripFences removes surrounding backticks and a leading language tag, the
// usual decoration around model output that is supposed to be raw JSON.
func StripFences(text string) string {
	result := strings.TrimSpace(text)
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimPrefix(result, "sparql")

	return strings.TrimSpace(result)
}
