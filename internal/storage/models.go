package storage

import "time"

// GameRecord is one finished playthrough.
type GameRecord struct {
	ID          string `gorm:"primaryKey"`
	RoomCode    string `gorm:"index"`
	PlaylistID  string
	TotalRounds int
	WinnerID    string
	Tied        bool
	StartedAt   time.Time
	EndedAt     time.Time
	CreatedAt   time.Time
	Scores      []ScoreRecord `gorm:"constraint:OnDelete:CASCADE;foreignKey:GameID"`
	Rounds      []RoundRecord `gorm:"constraint:OnDelete:CASCADE;foreignKey:GameID"`
}

// ScoreRecord is one row of a game's final ranking.
type ScoreRecord struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	GameID        string `gorm:"index"`
	PlayerID      string
	DisplayName   string
	TimelineCount int
	Score         int
	Tokens        int
}

// RoundRecord is one completed round of a finished game.
type RoundRecord struct {
	ID          string `gorm:"primaryKey"`
	GameID      string `gorm:"index"`
	RoundNumber int
	SongID      string
	Guesses     []GuessRecord `gorm:"constraint:OnDelete:CASCADE;foreignKey:RoundID"`
}

// GuessRecord is one participant's action in a round.
type GuessRecord struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	RoundID           string `gorm:"index"`
	PlayerID          string
	SongNameGuess     *string
	SongNameCorrect   *bool
	PlacementPosition *int
	PlacementCorrect  *bool
	IsContest         bool
}
