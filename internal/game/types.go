package game

import (
	"time"

	"hitline/internal/catalog"
)

// RoomStatus is the lobby lifecycle of a room.
type RoomStatus string

const (
	RoomWaiting   RoomStatus = "WAITING"
	RoomActive    RoomStatus = "ACTIVE"
	RoomFinished  RoomStatus = "FINISHED"
	RoomAbandoned RoomStatus = "ABANDONED"
)

// RoundStatus is the phase of a single turn.
type RoundStatus string

const (
	RoundPending     RoundStatus = "PENDING"
	RoundPlayingClip RoundStatus = "PLAYING_CLIP"
	RoundGuessing    RoundStatus = "GUESSING"
	RoundPlacing     RoundStatus = "PLACING"
	RoundContesting  RoundStatus = "CONTESTING"
	RoundRevealing   RoundStatus = "REVEALING"
	RoundCompleted   RoundStatus = "COMPLETED"
)

// GameStatus is the lifecycle of one playthrough.
type GameStatus string

const (
	GameActive   GameStatus = "ACTIVE"
	GameFinished GameStatus = "FINISHED"
)

// Player is one participant in a room. Score counts songs successfully added
// to the player's own timeline; tokens are the contest currency earned from
// correct song name guesses.
type Player struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	Tokens      int       `json:"tokens"`
	IsHost      bool      `json:"isHost"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// TimelineEntry is one song slot in a player's timeline. Positions form a
// contiguous 0..N-1 sequence ordered by the referenced song's release year.
type TimelineEntry struct {
	SongID       string `json:"songId"`
	ReleaseYear  int    `json:"releaseYear"`
	Position     int    `json:"position"`
	AddedInRound int    `json:"addedInRound"`
}

// Guess is the per-(round, player) record of what a participant did: the
// acting player's name guess and placement, or a contester's bid. Nullable
// fields stay nil until that step happens.
type Guess struct {
	PlayerID          string  `json:"playerId"`
	SongNameGuess     *string `json:"songNameGuess"`
	SongNameCorrect   *bool   `json:"songNameCorrect"`
	PlacementPosition *int    `json:"placementPosition"`
	PlacementCorrect  *bool   `json:"placementCorrect"`
	IsContest         bool    `json:"isContest"`
}

// Round is one turn. Status is mutated only by the round state machine and is
// terminal at COMPLETED.
type Round struct {
	ID            string      `json:"id"`
	RoundNumber   int         `json:"roundNumber"`
	SongID        string      `json:"songId"`
	ClipStartTime int         `json:"clipStartTime"`
	ClipEndTime   int         `json:"clipEndTime"`
	Status        RoundStatus `json:"status"`

	// ContestDeadline is zero unless the round entered CONTESTING.
	ContestDeadline time.Time `json:"contestDeadline"`

	claimedIndex int
	// snapshot of the acting player's timeline years taken at placement time;
	// every correctness verdict this round is judged against it.
	snapshot []int
	guesses  map[string]*Guess
	result   *RoundResult
}

// ContestOutcome is one participant's verdict in the reveal display. It has
// no effect on scoring.
type ContestOutcome struct {
	PlayerID     string `json:"playerId"`
	IsOriginal   bool   `json:"isOriginal"`
	ClaimedIndex int    `json:"claimedIndex"`
	IsCorrect    bool   `json:"isCorrect"`
}

// RoundResult is the authoritative outcome of a round, computed exactly once
// at reveal.
type RoundResult struct {
	RoundID          string           `json:"roundId"`
	PlayerID         string           `json:"playerId"`
	SongNameGuess    *string          `json:"songNameGuess"`
	SongNameCorrect  bool             `json:"songNameCorrect"`
	PlacementCorrect bool             `json:"placementCorrect"`
	ClaimedIndex     int              `json:"claimedIndex"`
	TimelineCount    int              `json:"timelineCount"`
	TokenEarned      bool             `json:"tokenEarned"`
	PlayerTokens     int              `json:"playerTokens"`
	ActualSong       catalog.Song     `json:"actualSong"`
	ContestResults   []ContestOutcome `json:"contestResults"`
	Timeline         []TimelineEntry  `json:"currentPlayerTimeline"`
}

// PlacementOutcome is what submitPlacement reports back to the acting player.
// When the round skipped the contest window it carries the full result.
type PlacementOutcome struct {
	Correct          bool         `json:"correct"`
	Contested        bool         `json:"contested"`
	ContestDeadline  time.Time    `json:"contestDeadline,omitempty"`
	Result           *RoundResult `json:"result,omitempty"`
	AlreadyProcessed bool         `json:"alreadyProcessed"`
}

// FinalScore is one row of the end-of-game ranking.
type FinalScore struct {
	PlayerID      string `json:"playerId"`
	DisplayName   string `json:"displayName"`
	TimelineCount int    `json:"timelineCount"`
	Score         int    `json:"score"`
	Tokens        int    `json:"tokens"`
}
