package game

import (
	"github.com/rs/zerolog/log"
)

// StartRound begins the acting player's turn: PENDING -> PLAYING_CLIP. The
// round-start event carries the clip window and media reference but never the
// song's name or artist.
func (g *Game) StartRound(playerID string, roundNumber int) (*Round, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, err := g.roundByNumber(roundNumber)
	if err != nil {
		return nil, err
	}
	// Rounds start strictly in schedule order; a future round stays PENDING
	// until ContinueGame advances CurrentRound past its predecessor.
	if r.RoundNumber != g.CurrentRound {
		return nil, ErrInvalidState
	}
	if playerID != g.CurrentPlayerID {
		return nil, ErrNotYourTurn
	}
	if r.Status != RoundPending {
		return nil, ErrInvalidState
	}
	r.Status = RoundPlayingClip

	song := g.songs[r.SongID]
	g.emitter.Emit(gameChannel(g.ID), EventRoundStart, RoundStartEvent{
		RoundID:         r.ID,
		RoundNumber:     r.RoundNumber,
		CurrentPlayerID: g.CurrentPlayerID,
		ClipStartTime:   r.ClipStartTime,
		ClipEndTime:     r.ClipEndTime,
		MediaRef:        song.VideoRef,
	})
	g.rec.RoundStarted()
	log.Info().Str("game", g.ID).Int("round", r.RoundNumber).Msg("round started")
	return r, nil
}

// SubmitSongGuess records the acting player's name guess and moves the round
// to PLACING. Resubmitting before placement overwrites the guess text and
// recomputes correctness; the token for a correct guess is only awarded at
// reveal, from whatever the guess record says then.
func (g *Game) SubmitSongGuess(roundID, playerID, guessText string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, err := g.roundByID(roundID)
	if err != nil {
		return false, err
	}
	if playerID != g.CurrentPlayerID {
		return false, ErrNotYourTurn
	}
	switch r.Status {
	case RoundPlayingClip, RoundGuessing, RoundPlacing:
	default:
		return false, ErrInvalidState
	}

	song := g.songs[r.SongID]
	correct := g.matcher.Match(guessText, song.Name)

	guess := r.guesses[playerID]
	if guess == nil {
		guess = &Guess{PlayerID: playerID}
		r.guesses[playerID] = guess
	}
	text := guessText
	guess.SongNameGuess = &text
	guess.SongNameCorrect = &correct

	r.Status = RoundPlacing
	g.emitter.Emit(gameChannel(g.ID), EventRoundPhase, RoundPhaseEvent{Phase: RoundPlacing})
	g.rec.GuessSubmitted()
	return correct, nil
}

// SubmitPlacement records where the acting player claims the song belongs on
// their own timeline. If no other player holds a spendable token the round
// resolves immediately; otherwise a contest window opens. A duplicate call
// after the round moved on returns the earlier outcome as a no-op.
func (g *Game) SubmitPlacement(roundID, playerID string, index int) (*PlacementOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, err := g.roundByID(roundID)
	if err != nil {
		return nil, err
	}
	if playerID != g.CurrentPlayerID {
		return nil, ErrNotYourTurn
	}
	switch r.Status {
	case RoundContesting, RoundRevealing, RoundCompleted:
		// Network retry after the placement already went through.
		out := &PlacementOutcome{AlreadyProcessed: true, Contested: r.Status == RoundContesting}
		if guess := r.guesses[playerID]; guess != nil && guess.PlacementCorrect != nil {
			out.Correct = *guess.PlacementCorrect
		}
		out.ContestDeadline = r.ContestDeadline
		out.Result = r.result
		return out, nil
	case RoundPlacing:
	default:
		return nil, ErrInvalidState
	}

	tl := g.timelines[playerID]
	snapshot := tl.Years()
	correct, err := ValidPlacement(snapshot, index, g.songs[r.SongID].ReleaseYear)
	if err != nil {
		return nil, err
	}

	guess := r.guesses[playerID]
	if guess == nil {
		guess = &Guess{PlayerID: playerID}
		r.guesses[playerID] = guess
	}
	pos := index
	guess.PlacementPosition = &pos
	guess.PlacementCorrect = &correct

	r.claimedIndex = index
	r.snapshot = snapshot

	// A correct placement leaves nothing to contest, and with no token
	// holders a window would be pointless; either way resolve on the spot.
	if correct || !g.anyContesterEligible(playerID) {
		result := g.resolve(r)
		return &PlacementOutcome{Correct: correct, Result: result}, nil
	}

	r.Status = RoundContesting
	r.ContestDeadline = g.now().Add(g.opts.ContestWindow)
	g.emitter.Emit(gameChannel(g.ID), EventRoundPhase, RoundPhaseEvent{Phase: RoundContesting})
	g.emitter.Emit(gameChannel(g.ID), EventContestWindow, ContestWindowEvent{
		RoundID:         r.ID,
		CurrentPlayerID: playerID,
		Timeline:        tl.Entries(),
		ClaimedIndex:    index,
		Deadline:        r.ContestDeadline,
	})
	log.Info().Str("game", g.ID).Int("round", r.RoundNumber).Int("index", index).Msg("contest window open")
	return &PlacementOutcome{Correct: correct, Contested: true, ContestDeadline: r.ContestDeadline}, nil
}

// anyContesterEligible reports whether any non-acting player holds a token.
func (g *Game) anyContesterEligible(actingID string) bool {
	g.room.mu.Lock()
	defer g.room.mu.Unlock()
	for _, p := range g.room.players {
		if p.ID != actingID && p.Tokens >= 1 {
			return true
		}
	}
	return false
}

// SubmitContestGuess spends one of the contester's tokens on a bid for a
// different slot on the acting player's timeline. The verdict is computed now
// against the placement-time snapshot but stays hidden until reveal. The
// token is spent win or lose.
func (g *Game) SubmitContestGuess(roundID, contesterID string, index int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, err := g.roundByID(roundID)
	if err != nil {
		return err
	}
	if contesterID == g.CurrentPlayerID {
		return ErrNotYourTurn
	}
	if r.Status != RoundContesting {
		return ErrInvalidState
	}
	if g.now().After(r.ContestDeadline.Add(g.opts.ContestGrace)) {
		return ErrWindowClosed
	}
	if _, exists := r.guesses[contesterID]; exists {
		return ErrAlreadySubmitted
	}
	if index == r.claimedIndex {
		return ErrSameAsOriginal
	}

	g.room.mu.Lock()
	p := g.room.playersByID[contesterID]
	if p == nil {
		g.room.mu.Unlock()
		return ErrNotInRoom
	}
	if p.Tokens < 1 {
		g.room.mu.Unlock()
		return ErrInsufficientTokens
	}
	// Eligibility check and spend are one critical section so a contester
	// cannot double-spend a single token across concurrent submissions.
	p.Tokens--
	tokens := p.Tokens
	name := p.DisplayName
	g.room.mu.Unlock()

	correct, err := ValidPlacement(r.snapshot, index, g.songs[r.SongID].ReleaseYear)
	if err != nil {
		// Refund: the bid never existed.
		g.room.mu.Lock()
		p.Tokens++
		g.room.mu.Unlock()
		return err
	}

	pos := index
	r.guesses[contesterID] = &Guess{
		PlayerID:          contesterID,
		PlacementPosition: &pos,
		PlacementCorrect:  &correct,
		IsContest:         true,
	}

	g.emitter.Emit(gameChannel(g.ID), EventContestSubmitted, ContestSubmittedEvent{
		ContesterID:   contesterID,
		ContesterName: name,
		ClaimedIndex:  index,
		NewTokenCount: tokens,
	})
	g.rec.ContestSubmitted()
	log.Info().Str("game", g.ID).Int("round", r.RoundNumber).Str("contester", contesterID).Msg("contest submitted")
	return nil
}

// RevealResults closes the contest window and resolves the round. Only the
// acting player may reveal, and only once the deadline has passed. Repeat
// calls return the already-computed result without re-scoring.
func (g *Game) RevealResults(roundID, playerID string) (*RoundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, err := g.roundByID(roundID)
	if err != nil {
		return nil, err
	}
	if playerID != g.CurrentPlayerID {
		return nil, ErrNotYourTurn
	}
	switch r.Status {
	case RoundRevealing, RoundCompleted:
		return r.result, nil
	case RoundContesting:
	default:
		return nil, ErrInvalidState
	}
	if g.now().Before(r.ContestDeadline) {
		return nil, ErrWindowNotElapsed
	}
	return g.resolve(r), nil
}

// ContinueGame completes a revealed round and hands control to the
// orchestrator's turn advance.
func (g *Game) ContinueGame(roundID, playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, err := g.roundByID(roundID)
	if err != nil {
		return err
	}
	if playerID != g.CurrentPlayerID {
		return ErrNotYourTurn
	}
	if r.Status != RoundRevealing {
		return ErrInvalidState
	}
	r.Status = RoundCompleted
	g.advance(r.RoundNumber)
	return nil
}
