package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Importer turns an external playlist reference (e.g. a video platform
// playlist URL) into song metadata. Implementations live outside the engine;
// the fixture importer below exists for offline play and tests.
type Importer interface {
	Import(ctx context.Context, ref string) (Playlist, error)
}

// FixtureImporter serves a built-in playlist regardless of the requested ref.
type FixtureImporter struct {
	Name  string
	Songs []Song
}

// NewFixtureImporter returns an importer backed by a static set of well-known
// songs spanning several decades, enough for a full game with up to four
// players at the default round count.
func NewFixtureImporter() *FixtureImporter {
	return &FixtureImporter{Name: "Fixture Mix", Songs: fixtureSongs()}
}

func (f *FixtureImporter) Import(_ context.Context, ref string) (Playlist, error) {
	p := Playlist{ID: uuid.NewString(), Name: f.Name, Songs: make([]Song, len(f.Songs))}
	if ref != "" {
		p.Name = ref
	}
	copy(p.Songs, f.Songs)
	for i := range p.Songs {
		if p.Songs[i].ID == "" {
			p.Songs[i].ID = uuid.NewString()
		}
	}
	return p, nil
}

func fixtureSongs() []Song {
	type row struct {
		name, artist string
		year, dur    int
	}
	rows := []row{
		{"Johnny B. Goode", "Chuck Berry", 1958, 161},
		{"Respect", "Aretha Franklin", 1967, 147},
		{"Superstition", "Stevie Wonder", 1972, 266},
		{"Bohemian Rhapsody", "Queen", 1975, 354},
		{"Heart of Glass", "Blondie", 1978, 274},
		{"Billie Jean", "Michael Jackson", 1982, 294},
		{"Take On Me", "a-ha", 1985, 225},
		{"Sweet Child O' Mine", "Guns N' Roses", 1987, 356},
		{"Smells Like Teen Spirit", "Nirvana", 1991, 301},
		{"Wonderwall", "Oasis", 1995, 258},
		{"...Baby One More Time", "Britney Spears", 1998, 211},
		{"Ms. Jackson", "OutKast", 2000, 270},
		{"Hey Ya!", "OutKast", 2003, 235},
		{"Crazy", "Gnarls Barkley", 2006, 178},
		{"Rolling in the Deep", "Adele", 2010, 228},
		{"Get Lucky", "Daft Punk", 2013, 248},
		{"Uptown Funk", "Mark Ronson", 2014, 270},
		{"Blinding Lights", "The Weeknd", 2019, 200},
		{"drivers license", "Olivia Rodrigo", 2021, 242},
		{"Flowers", "Miley Cyrus", 2023, 200},
	}
	songs := make([]Song, 0, len(rows))
	for _, r := range rows {
		songs = append(songs, Song{
			ID:              uuid.NewString(),
			Name:            r.name,
			Artist:          r.artist,
			ReleaseYear:     r.year,
			DurationSeconds: r.dur,
			VideoRef:        "fixture:" + r.name,
		})
	}
	return songs
}
