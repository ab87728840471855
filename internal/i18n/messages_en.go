package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Section headings
	"section.spotify": "Spotify Metadata",
	"section.youtube": "YouTube Info",
	"section.google":  "Google License Search",
	"section.scrape":  "Creative Commons Scrape",
	"section.file":    "Audio File Tags",
	"section.nlp":     "NLP Classification of Description",
	"section.verdict": "Copyright Status",

	// Field labels
	"field.name":          "Name",
	"field.artists":       "Artists",
	"field.album":         "Album",
	"field.release_date":  "Release date",
	"field.url":           "URL",
	"field.video_id":      "Video ID",
	"field.title":         "Title",
	"field.author":        "Author",
	"field.published":     "Published",
	"field.license":       "License",
	"field.upload_status": "Upload status",
	"field.description":   "Description",
	"field.link":          "Link",
	"field.endpoint":      "Endpoint",
	"field.status":        "Status",
	"field.matched":       "Creative Commons",
	"field.evidence":      "Evidence",
	"field.path":          "Path",
	"field.format":        "Format",
	"field.tag":           "Tag",
	"field.value":         "Value",
	"field.label":         "Label",
	"field.score":         "Score",
	"field.term":          "Term",

	// Format helpers
	"format.yes":          "yes",
	"format.no":           "no",
	"format.empty":        "no data available",
	"format.from_cache":   "(served from cache)",
	"format.request":      "Request: %s",
	"format.batch_header": "Result %d of %d",
	"format.duplicate":    "duplicate of an earlier entry",
}
