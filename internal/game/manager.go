package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hitline/internal/catalog"
	"hitline/internal/metrics"
)

// Matcher is the external name-matching collaborator. The engine only ever
// consumes the boolean.
type Matcher interface {
	Match(guess, actual string) bool
}

// Options tunes the engine. Zero values fall back to the defaults below.
type Options struct {
	ContestWindow  time.Duration // how long contesters get to bid
	ContestGrace   time.Duration // clock-skew allowance for late bids
	WinThreshold   int           // timeline length that ends the game
	TurnsPerPlayer int           // default when startGame passes 0
	ClipDuration   int           // default room clip length, seconds
	MaxPlayers     int           // default room capacity
}

const (
	defaultContestWindow  = 15 * time.Second
	defaultContestGrace   = 2 * time.Second
	defaultWinThreshold   = 10
	defaultTurnsPerPlayer = 5
	defaultClipDuration   = 15
	defaultMaxPlayers     = 10
)

func (o Options) withDefaults() Options {
	if o.ContestWindow == 0 {
		o.ContestWindow = defaultContestWindow
	}
	if o.ContestGrace == 0 {
		o.ContestGrace = defaultContestGrace
	}
	if o.WinThreshold == 0 {
		o.WinThreshold = defaultWinThreshold
	}
	if o.TurnsPerPlayer == 0 {
		o.TurnsPerPlayer = defaultTurnsPerPlayer
	}
	if o.ClipDuration == 0 {
		o.ClipDuration = defaultClipDuration
	}
	if o.MaxPlayers == 0 {
		o.MaxPlayers = defaultMaxPlayers
	}
	return o
}

// Room is one lobby. Player order is join order and becomes the turn order.
type Room struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	HostUserID   string     `json:"hostUserId"`
	Status       RoomStatus `json:"status"`
	ClipDuration int        `json:"clipDuration"`
	MaxPlayers   int        `json:"maxPlayers"`
	CreatedAt    time.Time  `json:"createdAt"`
	GameID       string     `json:"gameId,omitempty"`

	players       []*Player
	playersByID   map[string]*Player
	playersByUser map[string]*Player
	mu            sync.Mutex
}

// Manager owns every room and game in the process.
type Manager struct {
	mu        sync.RWMutex
	rooms     map[string]*Room // by code
	roomsByID map[string]*Room
	games     map[string]*Game // by id

	catalog *catalog.Catalog
	matcher Matcher
	emitter Emitter
	rec     *metrics.Recorder
	archive Archiver
	opts    Options
	rng     *rand.Rand
	now     func() time.Time
}

func NewManager(cat *catalog.Catalog, matcher Matcher, opts Options) *Manager {
	return &Manager{
		rooms:     make(map[string]*Room),
		roomsByID: make(map[string]*Room),
		games:     make(map[string]*Game),
		catalog:   cat,
		matcher:   matcher,
		emitter:   NopEmitter{},
		opts:      opts.withDefaults(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// SetEmitter attaches the transport fan-out. Must be called before play starts.
func (m *Manager) SetEmitter(e Emitter) {
	if e != nil {
		m.emitter = e
	}
}

// SetRecorder attaches the metrics recorder (nil is fine).
func (m *Manager) SetRecorder(rec *metrics.Recorder) { m.rec = rec }

// SetArchiver attaches the finished-game archive (nil is fine).
func (m *Manager) SetArchiver(a Archiver) { m.archive = a }

// SetClock overrides the time source, for tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// CreateRoom opens a new lobby with the creator as host.
func (m *Manager) CreateRoom(hostUserID, displayName string, clipDuration, maxPlayers int) (*Room, *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := roomCode(6)
	for m.rooms[code] != nil {
		code = roomCode(6)
	}
	if clipDuration <= 0 {
		clipDuration = m.opts.ClipDuration
	}
	if maxPlayers <= 0 {
		maxPlayers = m.opts.MaxPlayers
	}
	r := &Room{
		ID:            uuid.NewString(),
		Code:          code,
		HostUserID:    hostUserID,
		Status:        RoomWaiting,
		ClipDuration:  clipDuration,
		MaxPlayers:    maxPlayers,
		CreatedAt:     m.now().UTC(),
		playersByID:   make(map[string]*Player),
		playersByUser: make(map[string]*Player),
	}
	host := &Player{
		ID:          uuid.NewString(),
		UserID:      hostUserID,
		DisplayName: displayName,
		IsHost:      true,
		JoinedAt:    m.now().UTC(),
	}
	r.players = append(r.players, host)
	r.playersByID[host.ID] = host
	r.playersByUser[hostUserID] = host

	m.rooms[code] = r
	m.roomsByID[r.ID] = r
	log.Info().Str("code", code).Str("host", hostUserID).Msg("room created")
	return r, host
}

// Room returns the room with the given code.
func (m *Manager) Room(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.rooms[code]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// RoomByID returns the room with the given id.
func (m *Manager) RoomByID(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.roomsByID[id]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Game returns the game with the given id.
func (m *Manager) Game(id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g := m.games[id]
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// JoinRoom adds a player to a waiting room. A user already in the room
// resumes their existing seat, which is how reconnects keep a stable player.
func (m *Manager) JoinRoom(code, userID, displayName string) (*Room, *Player, error) {
	r, err := m.Room(code)
	if err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	if p := r.playersByUser[userID]; p != nil {
		r.mu.Unlock()
		return r, p, nil
	}
	if r.Status != RoomWaiting {
		r.mu.Unlock()
		return nil, nil, ErrRoomNotWaiting
	}
	if len(r.players) >= r.MaxPlayers {
		r.mu.Unlock()
		return nil, nil, ErrRoomFull
	}
	p := &Player{
		ID:          uuid.NewString(),
		UserID:      userID,
		DisplayName: displayName,
		JoinedAt:    m.now().UTC(),
	}
	r.players = append(r.players, p)
	r.playersByID[p.ID] = p
	r.playersByUser[userID] = p
	r.mu.Unlock()

	m.emitter.Emit(roomChannel(code), EventPlayerJoined, PlayerJoinedEvent{Player: *p})
	log.Info().Str("code", code).Str("player", p.ID).Msg("player joined")
	return r, p, nil
}

// LeaveRoom removes a player's seat regardless of room status; a mid-game
// leave is allowed and the turn advance falls back to the first remaining
// seat when the acting player's seat is gone. The host leaving abandons the
// room.
func (m *Manager) LeaveRoom(code, userID string) error {
	r, err := m.Room(code)
	if err != nil {
		return err
	}
	r.mu.Lock()
	p := r.playersByUser[userID]
	if p == nil {
		r.mu.Unlock()
		return ErrNotInRoom
	}
	if p.IsHost {
		r.Status = RoomAbandoned
		r.mu.Unlock()
		m.emitter.Emit(roomChannel(code), EventRoomClosed, RoomClosedEvent{Reason: "host left"})
		log.Info().Str("code", code).Msg("room abandoned")
		return nil
	}
	for i, q := range r.players {
		if q.ID == p.ID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	delete(r.playersByID, p.ID)
	delete(r.playersByUser, userID)
	r.mu.Unlock()

	m.emitter.Emit(roomChannel(code), EventPlayerLeft, PlayerLeftEvent{PlayerID: p.ID})
	return nil
}

// UpdateSettings changes room settings; host only, and only while waiting.
func (m *Manager) UpdateSettings(code, userID string, clipDuration, maxPlayers int) error {
	r, err := m.Room(code)
	if err != nil {
		return err
	}
	r.mu.Lock()
	if r.HostUserID != userID {
		r.mu.Unlock()
		return ErrNotHost
	}
	if r.Status != RoomWaiting {
		r.mu.Unlock()
		return ErrRoomNotWaiting
	}
	if clipDuration > 0 {
		r.ClipDuration = clipDuration
	}
	if maxPlayers > 0 {
		r.MaxPlayers = maxPlayers
	}
	clip, max := r.ClipDuration, r.MaxPlayers
	r.mu.Unlock()

	m.emitter.Emit(roomChannel(code), EventSettingsUpdated, SettingsUpdatedEvent{ClipDuration: clip, MaxPlayers: max})
	return nil
}

// Players returns the room's players in turn order.
func (r *Room) Players() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
	}
	return out
}

// State returns the room's lifecycle status and current game id. Callers
// outside this package must use it instead of reading the fields, which are
// written under the room lock when a game starts or finishes.
func (r *Room) State() (RoomStatus, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Status, r.GameID
}

// PlayerByUser resolves a room seat from a stable user identity.
func (r *Room) PlayerByUser(userID string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.playersByUser[userID]
	return p, p != nil
}

// roomCode generates a join code from an alphabet without the easily
// confused I, O, 0 and 1.
func roomCode(n int) string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
