package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"homoxion/internal/core"
	"homoxion/pkg/text"
)

// KeyPrefix namespaces every cache key.
const KeyPrefix = "homoxion:"

// keyFields is serialized in declaration order, which fixes the key layout.
type keyFields struct {
	Kind    core.Kind `json:"kind"`
	Query   string    `json:"query"`
	ID      string    `json:"id"`
	File    string    `json:"file"`
	NoCache bool      `json:"no_cache"`
}

// Key returns the cache key of req. Query text is case folded for the search
// kinds; IDs stay verbatim because Spotify and YouTube IDs are case sensitive.
func Key(req core.Request) string {
	fields := keyFields{
		Kind:    req.Kind,
		Query:   text.NormalizeText(req.Query),
		ID:      req.ID,
		File:    req.FilePath,
		NoCache: req.NoCache,
	}
	if req.Kind == core.KindYouTubeQuery || req.Kind == core.KindBulk {
		fields.Query = text.NormalizeKey(req.Query)
	}

	// Marshalling a struct of strings and a bool cannot fail.
	payload, _ := json.Marshal(fields)
	sum := sha256.Sum256(payload)
	return KeyPrefix + hex.EncodeToString(sum[:])
}
