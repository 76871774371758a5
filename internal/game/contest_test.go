package game

import (
	"errors"
	"testing"
	"time"
)

// openContest drives round 1 into CONTESTING with the acting player claiming
// the given (wrong) index.
func openContest(t *testing.T, g *Game, index int) {
	t.Helper()
	runToPlacing(t, g)
	out, err := g.SubmitPlacement("round-1", "p0", index)
	if err != nil {
		t.Fatalf("SubmitPlacement: %v", err)
	}
	if !out.Contested {
		t.Fatal("expected a contest window")
	}
}

func TestContestWinWithSongAlreadyOwnedScoresNothing(t *testing.T) {
	g, _, clock := testGame(t, matchNone)
	// p1 already owns the round's song from an earlier game state.
	if _, err := g.timelines["p1"].Insert("song-1", 2012, 1, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}
	openContest(t, g, 0)

	if err := g.SubmitContestGuess("round-1", "p1", 2); err != nil {
		t.Fatalf("SubmitContestGuess: %v", err)
	}
	clock.Advance(16 * time.Second)
	if _, err := g.RevealResults("round-1", "p0"); err != nil {
		t.Fatalf("RevealResults: %v", err)
	}

	// The winning verdict stands, but the duplicate insert no-ops, so the
	// score must not outgrow the timeline.
	p := g.room.playersByID["p1"]
	if p.Score != 0 {
		t.Fatalf("score %d, want 0 for a duplicate-song win", p.Score)
	}
	if got := g.timelines["p1"].Count(); got != 2 {
		t.Fatalf("timeline count %d, want 2", got)
	}
}

func TestContestRequiresToken(t *testing.T) {
	g, _, _ := testGame(t, matchNone, 0, 1)
	openContest(t, g, 0)
	if err := g.SubmitContestGuess("round-1", "p1", 2); !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("got %v, want ErrInsufficientTokens", err)
	}
}

func TestContestRejectsSameIndexAsOriginal(t *testing.T) {
	g, _, _ := testGame(t, matchNone)
	openContest(t, g, 0)
	if err := g.SubmitContestGuess("round-1", "p1", 0); !errors.Is(err, ErrSameAsOriginal) {
		t.Fatalf("got %v, want ErrSameAsOriginal", err)
	}
	// A rejected bid costs nothing.
	if p := g.room.playersByID["p1"]; p.Tokens != 1 {
		t.Fatalf("tokens %d, want 1", p.Tokens)
	}
}

func TestContestOncePerPlayer(t *testing.T) {
	g, _, _ := testGame(t, matchNone, 2, 1)
	openContest(t, g, 0)
	if err := g.SubmitContestGuess("round-1", "p1", 2); err != nil {
		t.Fatalf("SubmitContestGuess: %v", err)
	}
	if err := g.SubmitContestGuess("round-1", "p1", 3); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("got %v, want ErrAlreadySubmitted", err)
	}
	// Only the first bid spent a token.
	if p := g.room.playersByID["p1"]; p.Tokens != 1 {
		t.Fatalf("tokens %d, want 1", p.Tokens)
	}
}

func TestContestFromActingPlayerRejected(t *testing.T) {
	g, _, _ := testGame(t, matchNone)
	openContest(t, g, 0)
	if err := g.SubmitContestGuess("round-1", "p0", 2); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("got %v, want ErrNotYourTurn", err)
	}
}

func TestContestWindowClosesAfterGrace(t *testing.T) {
	g, _, clock := testGame(t, matchNone)
	openContest(t, g, 0)

	// Inside the 2s grace buffer a late bid still counts.
	clock.Advance(16 * time.Second)
	if err := g.SubmitContestGuess("round-1", "p1", 2); err != nil {
		t.Fatalf("bid within grace should be accepted: %v", err)
	}

	clock.Advance(2 * time.Second)
	if err := g.SubmitContestGuess("round-1", "p2", 2); !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("got %v, want ErrWindowClosed", err)
	}
	// The rejected player keeps their token.
	if p := g.room.playersByID["p2"]; p.Tokens != 1 {
		t.Fatalf("tokens %d, want 1", p.Tokens)
	}
}

// TestContestResolutionScenario is the canonical reveal: the acting player
// claims a wrong slot, contester p1 bids a correct one, contester p2 a wrong
// one. p1 gains the song in their own chronology, p2 gains nothing, the
// acting timeline is untouched, and both contesters paid one token.
func TestContestResolutionScenario(t *testing.T) {
	g, emitter, clock := testGame(t, matchNone)
	openContest(t, g, 1)

	if err := g.SubmitContestGuess("round-1", "p1", 2); err != nil {
		t.Fatalf("p1 contest: %v", err)
	}
	if err := g.SubmitContestGuess("round-1", "p2", 0); err != nil {
		t.Fatalf("p2 contest: %v", err)
	}
	clock.Advance(16 * time.Second)

	result, err := g.RevealResults("round-1", "p0")
	if err != nil {
		t.Fatalf("RevealResults: %v", err)
	}

	if result.PlacementCorrect {
		t.Fatal("acting placement at index 1 is wrong for 2012")
	}
	if len(result.ContestResults) != 3 {
		t.Fatalf("expected 3 participant outcomes, got %d", len(result.ContestResults))
	}
	for _, out := range result.ContestResults {
		switch out.PlayerID {
		case "p0":
			if !out.IsOriginal || out.IsCorrect {
				t.Fatalf("acting outcome wrong: %+v", out)
			}
		case "p1":
			if out.IsOriginal || !out.IsCorrect {
				t.Fatalf("p1 outcome wrong: %+v", out)
			}
		case "p2":
			if out.IsOriginal || out.IsCorrect {
				t.Fatalf("p2 outcome wrong: %+v", out)
			}
		}
	}

	if got := g.Timeline("p0"); len(got) != 3 {
		t.Fatalf("acting timeline must be unchanged, got %d entries", len(got))
	}
	// p1's copy lands after their single 2000 entry.
	p1tl := g.Timeline("p1")
	if len(p1tl) != 2 {
		t.Fatalf("p1 timeline should have 2 entries, got %d", len(p1tl))
	}
	if p1tl[1].SongID != "song-1" || p1tl[1].ReleaseYear != 2012 {
		t.Fatalf("p1 gained the wrong entry: %+v", p1tl[1])
	}
	if got := g.Timeline("p2"); len(got) != 1 {
		t.Fatalf("p2 timeline must be unchanged, got %d entries", len(got))
	}

	// Token conservation: one token gone each, win or lose.
	if p := g.room.playersByID["p1"]; p.Tokens != 0 || p.Score != 1 {
		t.Fatalf("p1 tokens=%d score=%d, want 0/1", p.Tokens, p.Score)
	}
	if p := g.room.playersByID["p2"]; p.Tokens != 0 || p.Score != 0 {
		t.Fatalf("p2 tokens=%d score=%d, want 0/0", p.Tokens, p.Score)
	}
	if emitter.count(EventRoundResult) != 1 {
		t.Fatal("expected a single round-result event")
	}
}

// TestContestIsolation: both contesters are judged against the placement-time
// snapshot, so the first winner's insert cannot perturb the second verdict.
func TestContestIsolation(t *testing.T) {
	g, _, clock := testGame(t, matchNone)
	openContest(t, g, 0)

	// For 2012 on [2005 2010 2015] only index 2 is valid. p1 bids index 2,
	// p2 bids index 3, and p2 submits first so resolution order differs from
	// submission order.
	if err := g.SubmitContestGuess("round-1", "p2", 3); err != nil {
		t.Fatalf("p2 contest: %v", err)
	}
	if err := g.SubmitContestGuess("round-1", "p1", 2); err != nil {
		t.Fatalf("p1 contest: %v", err)
	}
	clock.Advance(16 * time.Second)
	result, err := g.RevealResults("round-1", "p0")
	if err != nil {
		t.Fatalf("RevealResults: %v", err)
	}
	for _, out := range result.ContestResults {
		switch out.PlayerID {
		case "p1":
			if !out.IsCorrect {
				t.Fatal("p1's verdict must come from the shared snapshot")
			}
		case "p2":
			if out.IsCorrect {
				t.Fatal("p2's verdict must come from the shared snapshot")
			}
		}
	}
}

// TestContestVerdictHiddenUntilReveal: the contest-submitted event announces
// the bid but not whether it was right.
func TestContestVerdictHiddenUntilReveal(t *testing.T) {
	g, emitter, _ := testGame(t, matchNone)
	openContest(t, g, 0)
	if err := g.SubmitContestGuess("round-1", "p1", 2); err != nil {
		t.Fatalf("SubmitContestGuess: %v", err)
	}
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	for _, e := range emitter.events {
		if e.Event != EventContestSubmitted {
			continue
		}
		payload, ok := e.Payload.(ContestSubmittedEvent)
		if !ok {
			t.Fatalf("contest-submitted payload has type %T", e.Payload)
		}
		if payload.ContesterID != "p1" || payload.ClaimedIndex != 2 || payload.NewTokenCount != 0 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
		return
	}
	t.Fatal("no contest-submitted event emitted")
}

// TestDeferredTokenAward: only the guess state at reveal matters, so a player
// who corrects a wrong guess before placing still earns the token, exactly
// once.
func TestDeferredTokenAward(t *testing.T) {
	match := matcherFunc(func(guess, actual string) bool { return guess == "right" })
	g, _, _ := testGame(t, match, 0, 0)
	if _, err := g.StartRound("p0", 1); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if _, err := g.SubmitSongGuess("round-1", "p0", "wrong"); err != nil {
		t.Fatalf("first guess: %v", err)
	}
	if _, err := g.SubmitSongGuess("round-1", "p0", "right"); err != nil {
		t.Fatalf("second guess: %v", err)
	}
	if _, err := g.SubmitPlacement("round-1", "p0", 2); err != nil {
		t.Fatalf("SubmitPlacement: %v", err)
	}
	p := g.room.playersByID["p0"]
	if p.Tokens != 1 {
		t.Fatalf("tokens %d, want exactly 1", p.Tokens)
	}
}
