package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hitline/internal/catalog"
)

func importFixture(t *testing.T, m *Manager) string {
	t.Helper()
	playlist, err := catalog.NewFixtureImporter().Import(context.Background(), "")
	if err != nil {
		t.Fatalf("import fixture: %v", err)
	}
	m.catalog.Add(playlist)
	return playlist.ID
}

func TestStartGameValidation(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	room, _ := m.CreateRoom("user-1", "Alice", 0, 0)
	if _, _, err := m.JoinRoom(room.Code, "user-2", "Bob"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	playlistID := importFixture(t, m)

	if _, err := m.StartGame(room.Code, "user-2", playlistID, 2); !errors.Is(err, ErrNotHost) {
		t.Fatalf("got %v, want ErrNotHost", err)
	}
	if _, err := m.StartGame(room.Code, "user-1", "no-such-playlist", 2); !errors.Is(err, catalog.ErrPlaylistNotFound) {
		t.Fatalf("got %v, want ErrPlaylistNotFound", err)
	}

	// The fixture holds 20 songs; 2 players x 10 turns needs 22.
	if _, err := m.StartGame(room.Code, "user-1", playlistID, 10); !errors.Is(err, ErrNotEnoughSongs) {
		t.Fatalf("got %v, want ErrNotEnoughSongs", err)
	}

	g, err := m.StartGame(room.Code, "user-1", playlistID, 2)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if g.TotalRounds != 4 {
		t.Fatalf("totalRounds %d, want turnsPerPlayer*playerCount = 4", g.TotalRounds)
	}

	// A second start on the same room is rejected.
	if _, err := m.StartGame(room.Code, "user-1", playlistID, 2); !errors.Is(err, ErrRoomNotWaiting) {
		t.Fatalf("got %v, want ErrRoomNotWaiting", err)
	}
}

func TestStartGameSchedule(t *testing.T) {
	m, emitter := newTestManager(t, Options{})
	room, host := m.CreateRoom("user-1", "Alice", 0, 0)
	_, bob, err := m.JoinRoom(room.Code, "user-2", "Bob")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	playlistID := importFixture(t, m)

	g, err := m.StartGame(room.Code, "user-1", playlistID, 3)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	if room.Status != RoomActive {
		t.Fatalf("room status %s, want ACTIVE", room.Status)
	}
	if g.CurrentRound != 1 || g.CurrentPlayerID != host.ID {
		t.Fatalf("game should open on round 1 with the host acting, got round=%d player=%s", g.CurrentRound, g.CurrentPlayerID)
	}
	if len(g.rounds) != 6 {
		t.Fatalf("expected 6 scheduled rounds, got %d", len(g.rounds))
	}

	// Round songs and starting songs are disjoint and distinct.
	seen := make(map[string]bool)
	for _, r := range g.rounds {
		if seen[r.SongID] {
			t.Fatalf("song %s scheduled twice", r.SongID)
		}
		seen[r.SongID] = true
		if r.Status != RoundPending {
			t.Fatalf("round %d status %s, want PENDING", r.RoundNumber, r.Status)
		}
		if r.ClipEndTime <= r.ClipStartTime {
			t.Fatalf("round %d has an empty clip window", r.RoundNumber)
		}
	}
	for _, p := range []*Player{host, bob} {
		tl := g.Timeline(p.ID)
		if len(tl) != 1 {
			t.Fatalf("player %s should start with one song, got %d", p.ID, len(tl))
		}
		if seen[tl[0].SongID] {
			t.Fatalf("starting song %s is also a round song", tl[0].SongID)
		}
		seen[tl[0].SongID] = true
	}

	if emitter.count(EventGameStarted) != 1 {
		t.Fatal("expected a game-started event")
	}
}

// playRound drives one full turn where the acting player names the song per
// the manager's matcher and places it correctly, so no contest window opens.
func playRound(t *testing.T, g *Game) {
	t.Helper()
	acting := g.CurrentPlayerID
	number := g.CurrentRound
	r, err := g.StartRound(acting, number)
	if err != nil {
		t.Fatalf("StartRound %d: %v", number, err)
	}
	if _, err := g.SubmitSongGuess(r.ID, acting, "some guess"); err != nil {
		t.Fatalf("SubmitSongGuess %d: %v", number, err)
	}
	song, ok := g.Song(r.SongID)
	if !ok {
		t.Fatalf("round %d song missing", number)
	}
	index := g.timelines[acting].InsertIndexByYear(song.ReleaseYear)
	out, err := g.SubmitPlacement(r.ID, acting, index)
	if err != nil {
		t.Fatalf("SubmitPlacement %d: %v", number, err)
	}
	if !out.Correct {
		t.Fatalf("round %d: placement at %d should be correct", number, index)
	}
	if err := g.ContinueGame(r.ID, acting); err != nil {
		t.Fatalf("ContinueGame %d: %v", number, err)
	}
}

func TestTurnRotation(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	room, host := m.CreateRoom("user-1", "Alice", 0, 0)
	_, bob, _ := m.JoinRoom(room.Code, "user-2", "Bob")
	_, cleo, _ := m.JoinRoom(room.Code, "user-3", "Cleo")
	playlistID := importFixture(t, m)

	g, err := m.StartGame(room.Code, "user-1", playlistID, 2)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	want := []string{host.ID, bob.ID, cleo.ID, host.ID, bob.ID, cleo.ID}
	for i := 0; i < len(want); i++ {
		if g.CurrentPlayerID != want[i] {
			t.Fatalf("round %d: acting player %s, want %s", i+1, g.CurrentPlayerID, want[i])
		}
		playRound(t, g)
	}
	if g.Status != GameFinished {
		t.Fatal("game should finish after the last scheduled round")
	}
}

func TestLeaveRoomMidGame(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	room, host := m.CreateRoom("user-1", "Alice", 0, 0)
	_, bob, _ := m.JoinRoom(room.Code, "user-2", "Bob")
	_, _, _ = m.JoinRoom(room.Code, "user-3", "Cleo")
	playlistID := importFixture(t, m)
	g, err := m.StartGame(room.Code, "user-1", playlistID, 2)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	playRound(t, g) // round 1, Alice

	// A non-acting player may walk out of an active game; their seat is
	// removed and rotation continues over the remaining players.
	if err := m.LeaveRoom(room.Code, "user-3"); err != nil {
		t.Fatalf("LeaveRoom: %v", err)
	}
	if got := len(room.Players()); got != 2 {
		t.Fatalf("expected 2 seats left, got %d", got)
	}

	want := []string{bob.ID, host.ID, bob.ID, host.ID, bob.ID}
	for _, id := range want {
		if g.CurrentPlayerID != id {
			t.Fatalf("acting player %s, want %s", g.CurrentPlayerID, id)
		}
		playRound(t, g)
	}
	if g.Status != GameFinished {
		t.Fatal("game should still run to completion after a mid-game leave")
	}
}

func TestGameEndsByRoundExhaustionAndFlagsTie(t *testing.T) {
	m, emitter := newTestManager(t, Options{})
	room, _ := m.CreateRoom("user-1", "Alice", 0, 0)
	_, _, _ = m.JoinRoom(room.Code, "user-2", "Bob")
	playlistID := importFixture(t, m)

	// turnsPerPlayer=5 with 2 players: 10 rounds, nobody can reach the
	// default threshold of 10 (1 starting song + 5 adds = 6).
	g, err := m.StartGame(room.Code, "user-1", playlistID, 5)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if g.TotalRounds != 10 {
		t.Fatalf("totalRounds %d, want 10", g.TotalRounds)
	}
	for g.Status == GameActive {
		playRound(t, g)
	}

	if room.Status != RoomFinished {
		t.Fatalf("room status %s, want FINISHED", room.Status)
	}
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	for _, e := range emitter.events {
		if e.Event != EventGameEnded {
			continue
		}
		payload, ok := e.Payload.(GameEndedEvent)
		if !ok {
			t.Fatalf("game-ended payload has type %T", e.Payload)
		}
		if len(payload.FinalScores) != 2 {
			t.Fatalf("expected 2 final scores, got %d", len(payload.FinalScores))
		}
		for _, fs := range payload.FinalScores {
			if fs.TimelineCount != 6 {
				t.Fatalf("player %s timeline count %d, want 6", fs.PlayerID, fs.TimelineCount)
			}
		}
		if !payload.Tied || len(payload.TiedPlayers) != 2 {
			t.Fatalf("equal counts must be flagged as a tie: %+v", payload)
		}
		return
	}
	t.Fatal("no game-ended event emitted")
}

func TestGameEndsByWinThreshold(t *testing.T) {
	m, _ := newTestManager(t, Options{WinThreshold: 3})
	room, host := m.CreateRoom("user-1", "Alice", 0, 0)
	_, _, _ = m.JoinRoom(room.Code, "user-2", "Bob")
	playlistID := importFixture(t, m)

	g, err := m.StartGame(room.Code, "user-1", playlistID, 5)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	rounds := 0
	for g.Status == GameActive {
		playRound(t, g)
		rounds++
	}
	// Alice acts in rounds 1 and 3, reaching 3 timeline entries there.
	if rounds != 3 {
		t.Fatalf("game should end after round 3, played %d", rounds)
	}
	if n := len(g.Timeline(host.ID)); n != 3 {
		t.Fatalf("winner timeline length %d, want 3", n)
	}
}

// Readers polling room and game snapshots while a game runs to completion,
// the shape of a reconnect racing a finishing game.
func TestSnapshotsSafeDuringPlay(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	room, _ := m.CreateRoom("user-1", "Alice", 0, 0)
	_, _, _ = m.JoinRoom(room.Code, "user-2", "Bob")
	playlistID := importFixture(t, m)
	g, err := m.StartGame(room.Code, "user-1", playlistID, 2)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				status, gameID := room.State()
				if status == RoomActive && gameID != g.ID {
					t.Error("active room should reference its game")
					return
				}
				round, actingID := g.Progress()
				if round < 1 || actingID == "" {
					t.Errorf("inconsistent progress: round=%d acting=%q", round, actingID)
					return
				}
			}
		}()
	}

	for g.Status == GameActive {
		playRound(t, g)
	}
	close(stop)
	wg.Wait()

	if status, _ := room.State(); status != RoomFinished {
		t.Fatalf("room status %s, want FINISHED", status)
	}
}

// stubArchiver captures the archive call for inspection.
type stubArchiver struct {
	mu   sync.Mutex
	recs []GameArchive
	done chan struct{}
}

func (a *stubArchiver) ArchiveGame(_ context.Context, rec GameArchive) error {
	a.mu.Lock()
	a.recs = append(a.recs, rec)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func TestFinishedGameIsArchived(t *testing.T) {
	m, _ := newTestManager(t, Options{WinThreshold: 2})
	arch := &stubArchiver{done: make(chan struct{}, 1)}
	m.SetArchiver(arch)
	room, _ := m.CreateRoom("user-1", "Alice", 0, 0)
	playlistID := importFixture(t, m)

	g, err := m.StartGame(room.Code, "user-1", playlistID, 5)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	for g.Status == GameActive {
		playRound(t, g)
	}
	<-arch.done

	arch.mu.Lock()
	defer arch.mu.Unlock()
	if len(arch.recs) != 1 {
		t.Fatalf("expected 1 archive record, got %d", len(arch.recs))
	}
	rec := arch.recs[0]
	if rec.GameID != g.ID || rec.RoomCode != room.Code {
		t.Fatalf("archive record mismatched: %+v", rec)
	}
	if len(rec.FinalScores) != 1 {
		t.Fatalf("expected 1 final score, got %d", len(rec.FinalScores))
	}
	if len(rec.Rounds) == 0 {
		t.Fatal("archive should carry the completed rounds")
	}
	for _, r := range rec.Rounds {
		if len(r.Guesses) == 0 {
			t.Fatalf("round %d archived without guesses", r.RoundNumber)
		}
	}
}

func TestAdvanceSnapshotsAllTimelines(t *testing.T) {
	// Regression guard for the win check: the snapshot is taken before the
	// terminal branch, so a player who reaches the threshold mid-round wins
	// even when another player's timeline mutates in the same reveal.
	g, _, _ := testGame(t, matchAll)
	g.opts.WinThreshold = 4

	runToPlacing(t, g)
	if _, err := g.SubmitPlacement("round-1", "p0", 2); err != nil {
		t.Fatalf("SubmitPlacement: %v", err)
	}
	if err := g.ContinueGame("round-1", "p0"); err != nil {
		t.Fatalf("ContinueGame: %v", err)
	}
	if g.Status != GameFinished {
		t.Fatalf("p0 reached 4 entries; game status %s, want FINISHED", g.Status)
	}
}

// Guards the last-round edge: ContinueGame on the final scheduled round ends
// the game even when playRound's early return was never hit.
func TestRoundNumbersAreGlobal(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	room, _ := m.CreateRoom("user-1", "Alice", 0, 0)
	_, _, _ = m.JoinRoom(room.Code, "user-2", "Bob")
	playlistID := importFixture(t, m)
	g, err := m.StartGame(room.Code, "user-1", playlistID, 1)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	for i := 1; i <= 2; i++ {
		if g.CurrentRound != i {
			t.Fatalf("expected global round number %d, got %d", i, g.CurrentRound)
		}
		playRound(t, g)
	}
	if g.Status != GameFinished {
		t.Fatal("two-round game should be finished")
	}
}
