package game

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// resolve is the single resolution point for a round: it locks in every
// participant's verdict from the placement-time snapshot, then applies the
// timeline and score mutations. Called with g.mu held, exactly once per
// round; the stored result makes repeat reveals idempotent.
//
// All verdicts were computed against the same snapshot of the acting
// player's timeline, so contest bids never see each other and several
// contesters can win the same round independently, each gaining their own
// copy of the song.
func (g *Game) resolve(r *Round) *RoundResult {
	song := g.songs[r.SongID]
	acting := r.guesses[g.CurrentPlayerID]

	// Verdicts first, mutations second. Sorted for a stable reveal display.
	outcomes := make([]ContestOutcome, 0, len(r.guesses))
	for id, guess := range r.guesses {
		if guess.PlacementPosition == nil {
			continue
		}
		outcomes = append(outcomes, ContestOutcome{
			PlayerID:     id,
			IsOriginal:   id == g.CurrentPlayerID,
			ClaimedIndex: *guess.PlacementPosition,
			IsCorrect:    guess.PlacementCorrect != nil && *guess.PlacementCorrect,
		})
	}
	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].IsOriginal != outcomes[j].IsOriginal {
			return outcomes[i].IsOriginal
		}
		return outcomes[i].PlayerID < outcomes[j].PlayerID
	})

	nameCorrect := acting != nil && acting.SongNameCorrect != nil && *acting.SongNameCorrect
	placementCorrect := acting != nil && acting.PlacementCorrect != nil && *acting.PlacementCorrect

	for _, out := range outcomes {
		if !out.IsCorrect {
			continue
		}
		var inserted bool
		var err error
		if out.IsOriginal {
			// The acting player's song lands exactly where they claimed.
			inserted, err = g.timelines[out.PlayerID].Insert(song.ID, song.ReleaseYear, out.ClaimedIndex, r.RoundNumber)
		} else {
			// A winning contester framed their bid against the acting
			// player's timeline; their copy lands at the chronologically
			// correct slot of their own.
			tl := g.timelines[out.PlayerID]
			inserted, err = tl.Insert(song.ID, song.ReleaseYear, tl.InsertIndexByYear(song.ReleaseYear), r.RoundNumber)
		}
		if err != nil {
			log.Error().Err(err).Str("game", g.ID).Int("round", r.RoundNumber).Str("player", out.PlayerID).Msg("timeline insert failed")
			continue
		}
		// Score tracks timeline growth; a duplicate no-op insert earns nothing.
		if !inserted {
			continue
		}
		g.room.mu.Lock()
		if p := g.room.playersByID[out.PlayerID]; p != nil {
			p.Score++
		}
		g.room.mu.Unlock()
	}

	tokenEarned := false
	playerTokens := 0
	g.room.mu.Lock()
	if p := g.room.playersByID[g.CurrentPlayerID]; p != nil {
		if nameCorrect {
			p.Tokens++
			tokenEarned = true
		}
		playerTokens = p.Tokens
	}
	g.room.mu.Unlock()

	var guessText *string
	if acting != nil {
		guessText = acting.SongNameGuess
	}
	actingTL := g.timelines[g.CurrentPlayerID]
	result := &RoundResult{
		RoundID:          r.ID,
		PlayerID:         g.CurrentPlayerID,
		SongNameGuess:    guessText,
		SongNameCorrect:  nameCorrect,
		PlacementCorrect: placementCorrect,
		ClaimedIndex:     r.claimedIndex,
		TimelineCount:    actingTL.Count(),
		TokenEarned:      tokenEarned,
		PlayerTokens:     playerTokens,
		ActualSong:       song,
		ContestResults:   outcomes,
		Timeline:         actingTL.Entries(),
	}

	r.result = result
	r.Status = RoundRevealing
	g.emitter.Emit(gameChannel(g.ID), EventRoundPhase, RoundPhaseEvent{Phase: RoundRevealing})
	g.emitter.Emit(gameChannel(g.ID), EventRoundResult, result)
	log.Info().
		Str("game", g.ID).
		Int("round", r.RoundNumber).
		Bool("placementCorrect", placementCorrect).
		Bool("nameCorrect", nameCorrect).
		Int("contests", len(outcomes)-1).
		Msg("round resolved")
	return result
}
