package fuzzy

import "testing"

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Old March", "old march"},
		{"official video", "Old March (Official Video)", "old march"},
		{"lyrics and hd", "Old March [Lyrics] [HD]", "old march"},
		{"bracketed feat", "Song (feat. Someone)", "song"},
		{"trailing feat", "Song ft. Someone Else", "song"},
		{"remaster", "Song - Remastered (2011 Remaster)", "song remastered"},
		{"accents", "Café del Mar", "cafe del mar"},
		{"only noise", "(Official Video)", "official video"},
		{"keeps other brackets", "Song (Acoustic)", "song acoustic"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanTitle(tt.input); got != tt.expected {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"The Beatles", "the beatles"},
		{"P!nk", "p nk"},
		{"  Björk  ", "bjork"},
		{"AC/DC, Queen", "ac dc queen"},
	}

	for _, tt := range tests {
		if got := Fold(tt.input); got != tt.expected {
			t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
