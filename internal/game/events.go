package game

import "time"

// Event names broadcast on the room channel ("room-<code>").
const (
	EventPlayerJoined    = "player-joined"
	EventPlayerLeft      = "player-left"
	EventSettingsUpdated = "settings-updated"
	EventRoomClosed      = "room-closed"
	EventGameStarted     = "game-started"
)

// Event names broadcast on the game channel ("game-<id>").
const (
	EventRoundStart       = "round-start"
	EventRoundPhase       = "round-phase"
	EventContestWindow    = "contest-window"
	EventContestSubmitted = "contest-submitted"
	EventRoundResult      = "round-result"
	EventTurnChange       = "turn-change"
	EventGameEnded        = "game-ended"
)

// Emitter delivers named events to everyone subscribed to a channel.
// Delivery is best-effort, at-least-once, ordered per channel; the engine
// never depends on an event arriving.
type Emitter interface {
	Emit(channel, event string, payload any)
}

// NopEmitter drops all events. Used in tests and as the default when no
// transport is attached.
type NopEmitter struct{}

func (NopEmitter) Emit(string, string, any) {}

func roomChannel(code string) string { return "room-" + code }
func gameChannel(id string) string   { return "game-" + id }

type PlayerJoinedEvent struct {
	Player Player `json:"player"`
}

type PlayerLeftEvent struct {
	PlayerID string `json:"playerId"`
}

type SettingsUpdatedEvent struct {
	ClipDuration int `json:"clipDuration"`
	MaxPlayers   int `json:"maxPlayers"`
}

type RoomClosedEvent struct {
	Reason string `json:"reason"`
}

type GameStartedEvent struct {
	GameID string `json:"gameId"`
}

// RoundStartEvent carries everything needed for clip playback and nothing
// that identifies the song.
type RoundStartEvent struct {
	RoundID         string `json:"roundId"`
	RoundNumber     int    `json:"roundNumber"`
	CurrentPlayerID string `json:"currentPlayerId"`
	ClipStartTime   int    `json:"clipStartTime"`
	ClipEndTime     int    `json:"clipEndTime"`
	MediaRef        string `json:"mediaRef"`
}

type RoundPhaseEvent struct {
	Phase RoundStatus `json:"phase"`
}

type ContestWindowEvent struct {
	RoundID         string          `json:"roundId"`
	CurrentPlayerID string          `json:"currentPlayerId"`
	Timeline        []TimelineEntry `json:"currentPlayerTimeline"`
	ClaimedIndex    int             `json:"claimedIndex"`
	Deadline        time.Time       `json:"deadline"`
}

// ContestSubmittedEvent announces a bid without its verdict.
type ContestSubmittedEvent struct {
	ContesterID   string `json:"contesterId"`
	ContesterName string `json:"contesterName"`
	ClaimedIndex  int    `json:"claimedIndex"`
	NewTokenCount int    `json:"newTokenCount"`
}

type TurnChangeEvent struct {
	CurrentPlayerID string `json:"currentPlayerId"`
	RoundNumber     int    `json:"roundNumber"`
}

type GameEndedEvent struct {
	Winner      FinalScore   `json:"winner"`
	Tied        bool         `json:"tied"`
	TiedPlayers []string     `json:"tiedPlayerIds,omitempty"`
	FinalScores []FinalScore `json:"finalScores"`
}
