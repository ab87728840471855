package i18n

// berneseGermanMessages contains all Bernese Swiss German (Bärndütsch) translations
var berneseGermanMessages = map[string]string{
	// Section headings
	"section.spotify": "Spotify-Metadate",
	"section.youtube": "YouTube-Infos",
	"section.google":  "Google-Lizänzsuechi",
	"section.scrape":  "Creative-Commons-Suechi",
	"section.file":    "Tags vor Audiodatei",
	"section.nlp":     "NLP-Iistufig vor Beschribig",
	"section.verdict": "Urhäberrächt-Status",

	// Field labels
	"field.name":          "Name",
	"field.artists":       "Künschtler",
	"field.album":         "Album",
	"field.release_date":  "Usecho am",
	"field.url":           "URL",
	"field.video_id":      "Video-ID",
	"field.title":         "Titu",
	"field.author":        "Ufelader",
	"field.published":     "Veröffentlicht",
	"field.license":       "Lizänz",
	"field.upload_status": "Upload-Status",
	"field.description":   "Beschribig",
	"field.link":          "Link",
	"field.endpoint":      "Adrässe",
	"field.status":        "Status",
	"field.matched":       "Creative Commons",
	"field.evidence":      "Bewiis",
	"field.path":          "Pfad",
	"field.format":        "Format",
	"field.tag":           "Tag",
	"field.value":         "Wärt",
	"field.label":         "Label",
	"field.score":         "Wärtig",
	"field.term":          "Suechbegriff",

	// Format helpers
	"format.yes":          "ja",
	"format.no":           "nei",
	"format.empty":        "keni Date vorhande",
	"format.from_cache":   "(us em Cache)",
	"format.request":      "Aafrag: %s",
	"format.batch_header": "Resultat %d vo %d",
	"format.duplicate":    "doppelt, glich wie ne früecheri Zile",
}
