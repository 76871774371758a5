package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hitline/internal/catalog"
	"hitline/internal/metrics"
)

// Archiver records finished games somewhere durable. The engine treats it as
// best-effort: a nil Archiver or a failing one never affects play.
type Archiver interface {
	ArchiveGame(ctx context.Context, rec GameArchive) error
}

// GameArchive is the flattened record of a finished game handed to the
// archiver.
type GameArchive struct {
	GameID      string
	RoomCode    string
	PlaylistID  string
	TotalRounds int
	StartedAt   time.Time
	EndedAt     time.Time
	WinnerID    string
	Tied        bool
	FinalScores []FinalScore
	Rounds      []RoundArchive
}

// RoundArchive is one completed round within a GameArchive.
type RoundArchive struct {
	RoundID     string
	RoundNumber int
	SongID      string
	Guesses     []Guess
}

// Game is one playthrough of a room. A single mutex serializes all round
// operations, which also enforces the one-non-completed-round-at-a-time
// invariant; per-player timelines carry their own locks.
type Game struct {
	ID              string     `json:"id"`
	RoomID          string     `json:"roomId"`
	PlaylistID      string     `json:"playlistId"`
	TotalRounds     int        `json:"totalRounds"`
	CurrentRound    int        `json:"currentRound"`
	CurrentPlayerID string     `json:"currentPlayerId"`
	Status          GameStatus `json:"status"`
	StartedAt       time.Time  `json:"startedAt"`

	rounds    []*Round
	room      *Room
	songs     map[string]catalog.Song
	timelines map[string]*Timeline

	matcher Matcher
	emitter Emitter
	rec     *metrics.Recorder
	archive Archiver
	opts    Options
	now     func() time.Time

	mu sync.Mutex
}

// StartGame builds the full round schedule and starts the first turn. Host
// only, room must be WAITING, and the playlist must hold at least
// totalRounds + playerCount distinct songs: one per round plus a disjoint
// starting song per player. turnsPerPlayer <= 0 uses the configured default.
func (m *Manager) StartGame(roomCode, hostUserID, playlistID string, turnsPerPlayer int) (*Game, error) {
	r, err := m.Room(roomCode)
	if err != nil {
		return nil, err
	}
	if turnsPerPlayer <= 0 {
		turnsPerPlayer = m.opts.TurnsPerPlayer
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.HostUserID != hostUserID {
		return nil, ErrNotHost
	}
	if r.Status != RoomWaiting {
		return nil, ErrRoomNotWaiting
	}
	if len(r.players) < 1 {
		return nil, ErrNoPlayers
	}

	playlist, err := m.catalog.Playlist(playlistID)
	if err != nil {
		return nil, err
	}
	totalRounds := turnsPerPlayer * len(r.players)
	if len(playlist.Songs) < totalRounds+len(r.players) {
		return nil, ErrNotEnoughSongs
	}

	// rng is guarded by m.mu; hold it across the shuffle and the clip draws.
	shuffled := make([]catalog.Song, len(playlist.Songs))
	copy(shuffled, playlist.Songs)
	m.mu.Lock()
	m.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	clips := make([][2]int, totalRounds)
	for i := 0; i < totalRounds; i++ {
		start, end := catalog.ClipWindow(shuffled[i].DurationSeconds, r.ClipDuration, m.rng)
		clips[i] = [2]int{start, end}
	}
	m.mu.Unlock()

	roundSongs := shuffled[:totalRounds]
	startingSongs := shuffled[totalRounds : totalRounds+len(r.players)]

	g := &Game{
		ID:              uuid.NewString(),
		RoomID:          r.ID,
		PlaylistID:      playlistID,
		TotalRounds:     totalRounds,
		CurrentRound:    1,
		CurrentPlayerID: r.players[0].ID,
		Status:          GameActive,
		StartedAt:       m.now().UTC(),
		room:            r,
		songs:           make(map[string]catalog.Song, totalRounds+len(r.players)),
		timelines:       make(map[string]*Timeline, len(r.players)),
		matcher:         m.matcher,
		emitter:         m.emitter,
		rec:             m.rec,
		archive:         m.archive,
		opts:            m.opts,
		now:             m.now,
	}

	for i, song := range roundSongs {
		g.songs[song.ID] = song
		g.rounds = append(g.rounds, &Round{
			ID:            uuid.NewString(),
			RoundNumber:   i + 1,
			SongID:        song.ID,
			ClipStartTime: clips[i][0],
			ClipEndTime:   clips[i][1],
			Status:        RoundPending,
			guesses:       make(map[string]*Guess),
		})
	}

	// Everyone begins with a non-empty timeline.
	for i, p := range r.players {
		song := startingSongs[i]
		g.songs[song.ID] = song
		tl := NewTimeline()
		if _, err := tl.Insert(song.ID, song.ReleaseYear, 0, 0); err != nil {
			return nil, err
		}
		g.timelines[p.ID] = tl
	}

	r.Status = RoomActive
	r.GameID = g.ID

	m.mu.Lock()
	m.games[g.ID] = g
	m.mu.Unlock()

	m.rec.GameStarted()
	m.emitter.Emit(roomChannel(r.Code), EventGameStarted, GameStartedEvent{GameID: g.ID})
	log.Info().Str("game", g.ID).Str("code", r.Code).Int("rounds", totalRounds).Msg("game started")
	return g, nil
}

// Round returns the round with the given 1-based number.
func (g *Game) Round(number int) (*Round, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.roundByNumber(number)
}

func (g *Game) roundByNumber(number int) (*Round, error) {
	if number < 1 || number > len(g.rounds) {
		return nil, ErrRoundNotFound
	}
	return g.rounds[number-1], nil
}

func (g *Game) roundByID(id string) (*Round, error) {
	for _, r := range g.rounds {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrRoundNotFound
}

// Progress returns the current round number and acting player id. Both fields
// advance under g.mu, so concurrent readers (the ws handlers) go through here.
func (g *Game) Progress() (round int, playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.CurrentRound, g.CurrentPlayerID
}

// Timeline returns the given player's timeline entries.
func (g *Game) Timeline(playerID string) []TimelineEntry {
	g.mu.Lock()
	tl := g.timelines[playerID]
	g.mu.Unlock()
	if tl == nil {
		return nil
	}
	return tl.Entries()
}

// Song returns a song from the game's schedule.
func (g *Game) Song(id string) (catalog.Song, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.songs[id]
	return s, ok
}

// advance moves to the next turn or ends the game. Called with g.mu held.
func (g *Game) advance(completedRoundNumber int) {
	players := g.room.Players()

	// Consistent snapshot of all timeline lengths before the terminal branch.
	counts := make(map[string]int, len(players))
	reachedThreshold := false
	for _, p := range players {
		n := 0
		if tl := g.timelines[p.ID]; tl != nil {
			n = tl.Count()
		}
		counts[p.ID] = n
		if n >= g.opts.WinThreshold {
			reachedThreshold = true
		}
	}

	if reachedThreshold || completedRoundNumber >= g.TotalRounds {
		g.finish(players, counts)
		return
	}

	idx := 0
	for i, p := range players {
		if p.ID == g.CurrentPlayerID {
			idx = i
			break
		}
	}
	next := players[(idx+1)%len(players)]
	g.CurrentRound = completedRoundNumber + 1
	g.CurrentPlayerID = next.ID

	g.emitter.Emit(gameChannel(g.ID), EventTurnChange, TurnChangeEvent{
		CurrentPlayerID: next.ID,
		RoundNumber:     g.CurrentRound,
	})
	log.Info().Str("game", g.ID).Int("round", g.CurrentRound).Str("player", next.ID).Msg("turn change")
}

// finish ends the game, ranks players by timeline length descending, and
// flags ties instead of silently picking one winner.
func (g *Game) finish(players []Player, counts map[string]int) {
	g.Status = GameFinished
	g.room.mu.Lock()
	g.room.Status = RoomFinished
	g.room.mu.Unlock()

	scores := make([]FinalScore, 0, len(players))
	for _, p := range players {
		scores = append(scores, FinalScore{
			PlayerID:      p.ID,
			DisplayName:   p.DisplayName,
			TimelineCount: counts[p.ID],
			Score:         p.Score,
			Tokens:        p.Tokens,
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TimelineCount > scores[j].TimelineCount
	})

	winner := scores[0]
	var tiedIDs []string
	for _, s := range scores {
		if s.TimelineCount == winner.TimelineCount {
			tiedIDs = append(tiedIDs, s.PlayerID)
		}
	}
	tied := len(tiedIDs) > 1
	if !tied {
		tiedIDs = nil
	}

	g.emitter.Emit(gameChannel(g.ID), EventGameEnded, GameEndedEvent{
		Winner:      winner,
		Tied:        tied,
		TiedPlayers: tiedIDs,
		FinalScores: scores,
	})
	g.rec.GameFinished()
	log.Info().Str("game", g.ID).Str("winner", winner.PlayerID).Bool("tied", tied).Msg("game ended")

	if g.archive != nil {
		rec := GameArchive{
			GameID:      g.ID,
			RoomCode:    g.room.Code,
			PlaylistID:  g.PlaylistID,
			TotalRounds: g.TotalRounds,
			StartedAt:   g.StartedAt,
			EndedAt:     g.now().UTC(),
			WinnerID:    winner.PlayerID,
			Tied:        tied,
			FinalScores: scores,
		}
		for _, r := range g.rounds {
			if r.Status != RoundCompleted {
				continue
			}
			ra := RoundArchive{RoundID: r.ID, RoundNumber: r.RoundNumber, SongID: r.SongID}
			for _, guess := range r.guesses {
				ra.Guesses = append(ra.Guesses, *guess)
			}
			rec.Rounds = append(rec.Rounds, ra)
		}
		go func() {
			if err := g.archive.ArchiveGame(context.Background(), rec); err != nil {
				log.Warn().Err(err).Str("game", rec.GameID).Msg("archive failed")
			}
		}()
	}
}
