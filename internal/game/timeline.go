package game

import "sync"

// Timeline is one player's ordered song collection. All mutation goes through
// Insert, which serializes concurrent inserts for the same player and is
// idempotent per song, so duplicate resolution attempts (network retries,
// concurrent contest processing) cannot produce duplicate entries or
// position gaps.
type Timeline struct {
	mu      sync.Mutex
	entries []TimelineEntry
	songs   map[string]bool
}

func NewTimeline() *Timeline {
	return &Timeline{songs: make(map[string]bool)}
}

// Insert places a song at index, shifting later entries up by one. Inserting
// a song already on the timeline is a no-op reported as inserted=false, so
// callers keying side effects (scoring) off an insert never double-apply
// them. An out-of-range index returns ErrIndexOutOfRange.
func (t *Timeline) Insert(songID string, releaseYear, index, addedInRound int) (inserted bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.songs[songID] {
		return false, nil
	}
	if index < 0 || index > len(t.entries) {
		return false, ErrIndexOutOfRange
	}
	entry := TimelineEntry{
		SongID:       songID,
		ReleaseYear:  releaseYear,
		Position:     index,
		AddedInRound: addedInRound,
	}
	t.entries = append(t.entries, TimelineEntry{})
	copy(t.entries[index+1:], t.entries[index:])
	t.entries[index] = entry
	for i := index + 1; i < len(t.entries); i++ {
		t.entries[i].Position = i
	}
	t.songs[songID] = true
	return true, nil
}

// Entries returns a copy of the timeline ordered by position.
func (t *Timeline) Entries() []TimelineEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TimelineEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Count returns the number of songs on the timeline.
func (t *Timeline) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Years returns the release years in timeline order, the shape the placement
// judge consumes.
func (t *Timeline) Years() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.ReleaseYear
	}
	return out
}

// Contains reports whether the song is already on the timeline.
func (t *Timeline) Contains(songID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.songs[songID]
}

// InsertIndexByYear returns the first index whose entry's year is greater
// than year, i.e. the slot where a song of that year lands after any
// equal-year entries. Used to land a winning contester's copy of the song
// correctly in their own chronology.
func (t *Timeline) InsertIndexByYear(year int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e.ReleaseYear > year {
			return i
		}
	}
	return len(t.entries)
}
