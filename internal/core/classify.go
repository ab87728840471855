package core

import (
	"sort"
	"strings"
)

// nonCopyrightKeywords mark an upload as free to use when found in any text field.
var nonCopyrightKeywords = []string{
	"no-copyright",
	"copyright-free",
	"royalty free",
	"creative commons",
	"public domain",
}

// Classify derives the copyright verdict from the merged result. First match wins:
// a free-use keyword, then the YouTube Creative Commons license, then Copyrighted.
func Classify(res *Result) Verdict {
	if res == nil {
		return VerdictCopyrighted
	}

	if ContainsNonCopyrightTerms(signalText(res)) {
		return VerdictNonCopyright
	}

	if res.YouTube != nil && res.YouTube.License == YouTubeLicenseCreativeCommon {
		return VerdictCreativeCommons
	}

	return VerdictCopyrighted
}

// ContainsNonCopyrightTerms reports whether text carries a free-use keyword, ignoring case.
func ContainsNonCopyrightTerms(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, term := range nonCopyrightKeywords {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// signalText joins title, description and the file tag values in tag-name order.
func signalText(res *Result) string {
	var parts []string
	if res.YouTube != nil {
		parts = append(parts, res.YouTube.Title, res.YouTube.Description)
	}

	if res.File != nil && len(res.File.Tags) > 0 {
		names := make([]string, 0, len(res.File.Tags))
		for name := range res.File.Tags {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			parts = append(parts, res.File.Tags[name])
		}
	}

	return strings.Join(parts, " ")
}
