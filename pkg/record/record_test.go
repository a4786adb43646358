package record

import "testing"

func TestSplitComposite(t *testing.T) {
	tests := []struct {
		name       string
		composite  string
		wantArtist string
		wantTitle  string
	}{
		{
			name:       "simple composite",
			composite:  "Jeff Mills - The Bells",
			wantArtist: "Jeff Mills",
			wantTitle:  "The Bells",
		},
		{
			name:       "splits on first separator only",
			composite:  "Orbital - Halcyon - On And On",
			wantArtist: "Orbital",
			wantTitle:  "Halcyon - On And On",
		},
		{
			name:       "trims whitespace",
			composite:  "  Aphex Twin  -  Xtal  ",
			wantArtist: "Aphex Twin",
			wantTitle:  "Xtal",
		},
		{
			name:       "no separator keeps whole field",
			composite:  "Untitled",
			wantArtist: "Untitled",
			wantTitle:  "Untitled",
		},
		{
			name:       "hyphen without spaces is not a separator",
			composite:  "Boards-of-Canada",
			wantArtist: "Boards-of-Canada",
			wantTitle:  "Boards-of-Canada",
		},
		{
			name:       "empty field",
			composite:  "",
			wantArtist: "",
			wantTitle:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artist, title := SplitComposite(tt.composite)
			if artist != tt.wantArtist {
				t.Errorf("artist = %q, want %q", artist, tt.wantArtist)
			}
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
		})
	}
}

func TestNormalizeArtist(t *testing.T) {
	if got := NormalizeArtist("  Jeff Mills "); got != "Jeff Mills" {
		t.Errorf("NormalizeArtist = %q, want %q", got, "Jeff Mills")
	}
}
