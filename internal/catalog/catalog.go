package catalog

import (
	"errors"
	"math/rand"
	"sync"
)

var (
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrSongNotFound     = errors.New("song not found")
)

// Song is an immutable catalog entry. The engine never mutates songs; metadata
// corrections happen upstream in the importer.
type Song struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Artist          string `json:"artist"`
	ReleaseYear     int    `json:"releaseYear"`
	DurationSeconds int    `json:"durationSeconds"`
	VideoRef        string `json:"videoRef"`
}

// Playlist is a named set of songs produced by an importer.
type Playlist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Songs []Song `json:"songs"`
}

// Catalog holds imported playlists in memory.
type Catalog struct {
	mu        sync.RWMutex
	playlists map[string]*Playlist
}

func New() *Catalog {
	return &Catalog{playlists: make(map[string]*Playlist)}
}

// Add stores a playlist, replacing any previous playlist with the same ID.
func (c *Catalog) Add(p Playlist) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := p
	cp.Songs = append([]Song(nil), p.Songs...)
	c.playlists[p.ID] = &cp
}

// Playlist returns a copy of the playlist with the given ID.
func (c *Catalog) Playlist(id string) (Playlist, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.playlists[id]
	if p == nil {
		return Playlist{}, ErrPlaylistNotFound
	}
	out := *p
	out.Songs = append([]Song(nil), p.Songs...)
	return out, nil
}

// Song looks a song up across all playlists.
func (c *Catalog) Song(id string) (Song, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.playlists {
		for _, s := range p.Songs {
			if s.ID == id {
				return s, nil
			}
		}
	}
	return Song{}, ErrSongNotFound
}

// ClipWindow picks a clip start offset that avoids the first 30 seconds of a
// song (intro) and the last 10 (outro). Songs too short for that window play
// from the beginning.
func ClipWindow(durationSeconds, clipSeconds int, rng *rand.Rand) (start, end int) {
	const safeStart = 30
	safeEnd := durationSeconds - clipSeconds - 10
	if safeEnd <= safeStart {
		return 0, clipSeconds
	}
	start = safeStart + rng.Intn(safeEnd-safeStart)
	return start, start + clipSeconds
}
