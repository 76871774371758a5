package game

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrGameNotFound  = errors.New("game not found")
	ErrRoundNotFound = errors.New("round not found")

	// Authorization: the wrong actor attempted an action. The round keeps its
	// state so the right actor can still proceed.
	ErrNotHost     = errors.New("not host")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotInRoom   = errors.New("player not in room")

	// InvalidState: action attempted in the wrong phase. Known-retryable
	// duplicates degrade to no-op success instead of returning this.
	ErrInvalidState = errors.New("invalid state for action")

	// Contest validation failures, reported only to the contesting player.
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrWindowClosed       = errors.New("contest window closed")
	ErrWindowNotElapsed   = errors.New("contest window not elapsed")
	ErrSameAsOriginal     = errors.New("contest index equals original claim")
	ErrAlreadySubmitted   = errors.New("contest already submitted")

	// DataIntegrity: fatal for the requested operation, surfaced at start time.
	ErrRoomNotWaiting = errors.New("room is not waiting")
	ErrRoomFull       = errors.New("room is full")
	ErrNoPlayers      = errors.New("need at least one player")
	ErrNotEnoughSongs = errors.New("playlist has too few songs")

	// Programmer error: a caller bug, not a game-state condition. Fails loudly.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// ErrorCode maps a core error to the wire code the transport reports.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrGameNotFound), errors.Is(err, ErrRoundNotFound):
		return "not_found"
	case errors.Is(err, ErrNotHost), errors.Is(err, ErrNotYourTurn), errors.Is(err, ErrNotInRoom):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInsufficientTokens):
		return "insufficient_tokens"
	case errors.Is(err, ErrWindowClosed):
		return "window_closed"
	case errors.Is(err, ErrWindowNotElapsed):
		return "window_not_elapsed"
	case errors.Is(err, ErrSameAsOriginal):
		return "same_as_original"
	case errors.Is(err, ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, ErrRoomNotWaiting), errors.Is(err, ErrRoomFull),
		errors.Is(err, ErrNoPlayers), errors.Is(err, ErrNotEnoughSongs):
		return "bad_request"
	case errors.Is(err, ErrIndexOutOfRange):
		return "out_of_range"
	default:
		return "internal"
	}
}
