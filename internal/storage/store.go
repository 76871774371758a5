// Package storage archives finished games. The engine plays entirely from
// memory; this is a best-effort side channel for history and stats, and a
// nil Store no-ops everywhere.
package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hitline/internal/game"
)

// Store wraps a gorm DB and persists finished games.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store helper from a gorm DB.
func NewStore(db *gorm.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// ErrNotFound is returned when a record is not found.
var ErrNotFound = gorm.ErrRecordNotFound

// ArchiveGame writes a finished game with its ranking, rounds and guesses.
// Re-archiving the same game id is a no-op.
func (s *Store) ArchiveGame(ctx context.Context, rec game.GameArchive) error {
	if s == nil {
		return nil
	}
	row := GameRecord{
		ID:          rec.GameID,
		RoomCode:    rec.RoomCode,
		PlaylistID:  rec.PlaylistID,
		TotalRounds: rec.TotalRounds,
		WinnerID:    rec.WinnerID,
		Tied:        rec.Tied,
		StartedAt:   rec.StartedAt,
		EndedAt:     rec.EndedAt,
	}
	for _, fs := range rec.FinalScores {
		row.Scores = append(row.Scores, ScoreRecord{
			PlayerID:      fs.PlayerID,
			DisplayName:   fs.DisplayName,
			TimelineCount: fs.TimelineCount,
			Score:         fs.Score,
			Tokens:        fs.Tokens,
		})
	}
	for _, r := range rec.Rounds {
		rr := RoundRecord{
			ID:          r.RoundID,
			RoundNumber: r.RoundNumber,
			SongID:      r.SongID,
		}
		for _, gu := range r.Guesses {
			rr.Guesses = append(rr.Guesses, GuessRecord{
				PlayerID:          gu.PlayerID,
				SongNameGuess:     gu.SongNameGuess,
				SongNameCorrect:   gu.SongNameCorrect,
				PlacementPosition: gu.PlacementPosition,
				PlacementCorrect:  gu.PlacementCorrect,
				IsContest:         gu.IsContest,
			})
		}
		row.Rounds = append(row.Rounds, rr)
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// LoadGame fetches an archived game with its scores and rounds.
func (s *Store) LoadGame(ctx context.Context, id string) (*GameRecord, error) {
	if s == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var rec GameRecord
	if err := s.db.WithContext(ctx).
		Preload("Scores").
		Preload("Rounds").
		Preload("Rounds.Guesses").
		First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Stats aggregates archive counts for the home page.
type Stats struct {
	GamesPlayed int64 `json:"gamesPlayed"`
	TiedGames   int64 `json:"tiedGames"`
}

func (s *Store) FetchStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if s == nil {
		return stats, nil
	}
	if err := s.db.WithContext(ctx).Model(&GameRecord{}).Count(&stats.GamesPlayed).Error; err != nil {
		return stats, err
	}
	if err := s.db.WithContext(ctx).Model(&GameRecord{}).Where("tied = ?", true).Count(&stats.TiedGames).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
