// Package fuzzy folds music titles into plain search terms.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// bracketed upload noise such as "(Official Video)" or "[Lyrics]"
	noiseRegex = regexp.MustCompile(`(?i)[\(\[][^\)\]]*\b(?:official|video|audio|lyrics?|visuali[sz]er|hd|hq|4k|mv|m/v|live)\b[^\)\]]*[\)\]]`)
	// featured artists, bracketed or trailing
	featRegex = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]|\s+(?:feat\.?|ft\.?|featuring)\s+.*$`)
	// release variants that do not change the work
	versionRegex    = regexp.MustCompile(`(?i)[\(\[][^\)\]]*\b(?:remaster(?:ed)?|deluxe|extended|radio edit|clean|explicit)\b[^\)\]]*[\)\]]`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// CleanTitle strips upload noise, featured artists and release variants from
// title and folds the rest. A title made only of noise is folded as is.
func CleanTitle(title string) string {
	cleaned := noiseRegex.ReplaceAllString(title, " ")
	cleaned = featRegex.ReplaceAllString(cleaned, " ")
	cleaned = versionRegex.ReplaceAllString(cleaned, " ")

	if folded := Fold(cleaned); folded != "" {
		return folded
	}
	return Fold(title)
}

// Fold removes accents and punctuation, collapses whitespace and lowercases.
func Fold(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}

	text = punctRegex.ReplaceAllString(result.String(), " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	return strings.ToLower(strings.TrimSpace(text))
}
