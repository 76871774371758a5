// Package ws adapts the engine to socket.io: inbound player actions become
// engine calls, and engine events fan out to the matching socket.io room.
package ws

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"hitline/internal/catalog"
	"hitline/internal/game"
	"hitline/internal/session"
)

// ConnCtx is the per-connection identity established by create/join/resume.
type ConnCtx struct {
	RoomCode string
	UserID   string
	PlayerID string
	GameID   string
}

type Server struct {
	manager  *game.Manager
	catalog  *catalog.Catalog
	importer catalog.Importer
	sessions *session.Issuer
	io       *socketio.Server
}

func New(m *game.Manager, cat *catalog.Catalog, imp catalog.Importer, sessions *session.Issuer) *Server {
	return &Server{manager: m, catalog: cat, importer: imp, sessions: sessions}
}

// Emit implements game.Emitter by broadcasting to the socket.io room named
// after the engine channel.
func (srv *Server) Emit(channel, event string, payload any) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom("/", channel, event, payload)
}

// Mount attaches the socket.io server with all handlers to the gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// room:create
	io.OnEvent("/", "room:create", func(s socketio.Conn, payload struct {
		Name         string `json:"name"`
		ClipDuration int    `json:"clipDuration"`
		MaxPlayers   int    `json:"maxPlayers"`
	}) map[string]any {
		userID := uuid.NewString()
		room, host := srv.manager.CreateRoom(userID, payload.Name, payload.ClipDuration, payload.MaxPlayers)
		token, err := srv.sessions.Issue(userID, host.ID, room.Code)
		if err != nil {
			return srv.err(s, "internal", "could not issue session token")
		}
		s.SetContext(&ConnCtx{RoomCode: room.Code, UserID: userID, PlayerID: host.ID})
		s.Join("room-" + room.Code)
		log.Info().Str("sid", s.ID()).Str("code", room.Code).Msg("room:create")
		return map[string]any{
			"roomCode":     room.Code,
			"playerId":     host.ID,
			"sessionToken": token,
		}
	})

	// room:join
	io.OnEvent("/", "room:join", func(s socketio.Conn, payload struct {
		RoomCode string `json:"roomCode"`
		Name     string `json:"name"`
	}) map[string]any {
		userID := uuid.NewString()
		room, player, err := srv.manager.JoinRoom(payload.RoomCode, userID, payload.Name)
		if err != nil {
			return srv.fail(s, err)
		}
		token, err := srv.sessions.Issue(userID, player.ID, room.Code)
		if err != nil {
			return srv.err(s, "internal", "could not issue session token")
		}
		s.SetContext(&ConnCtx{RoomCode: room.Code, UserID: userID, PlayerID: player.ID})
		s.Join("room-" + room.Code)
		log.Info().Str("sid", s.ID()).Str("code", room.Code).Str("playerId", player.ID).Msg("room:join")
		return map[string]any{
			"roomCode":     room.Code,
			"playerId":     player.ID,
			"sessionToken": token,
			"players":      room.Players(),
		}
	})

	// room:resume (reconnection with a previously issued token)
	io.OnEvent("/", "room:resume", func(s socketio.Conn, payload struct {
		SessionToken string `json:"sessionToken"`
	}) map[string]any {
		claims, err := srv.sessions.Parse(payload.SessionToken)
		if err != nil {
			return srv.err(s, "unauthorized", "invalid session token")
		}
		room, err := srv.manager.Room(claims.RoomCode)
		if err != nil {
			return srv.fail(s, err)
		}
		player, ok := room.PlayerByUser(claims.UserID)
		if !ok || player.ID != claims.PlayerID {
			return srv.err(s, "unauthorized", "no such seat in room")
		}
		ctx := &ConnCtx{RoomCode: room.Code, UserID: claims.UserID, PlayerID: player.ID}
		s.SetContext(ctx)
		s.Join("room-" + room.Code)
		status, gameID := room.State()
		out := map[string]any{
			"roomCode": room.Code,
			"playerId": player.ID,
			"players":  room.Players(),
			"status":   status,
		}
		if gameID != "" {
			ctx.GameID = gameID
			s.Join("game-" + gameID)
			out["gameId"] = gameID
			if g, err := srv.manager.Game(gameID); err == nil {
				round, actingID := g.Progress()
				out["timeline"] = g.Timeline(player.ID)
				out["currentPlayerId"] = actingID
				out["currentRound"] = round
			}
		}
		log.Info().Str("sid", s.ID()).Str("code", room.Code).Msg("room:resume")
		return out
	})

	// room:leave
	io.OnEvent("/", "room:leave", func(s socketio.Conn) map[string]any {
		ctx := connCtx(s)
		if err := srv.manager.LeaveRoom(ctx.RoomCode, ctx.UserID); err != nil {
			return srv.fail(s, err)
		}
		s.Leave("room-" + ctx.RoomCode)
		s.SetContext(&ConnCtx{})
		return map[string]any{"ok": true}
	})

	// room:settings (host)
	io.OnEvent("/", "room:settings", func(s socketio.Conn, payload struct {
		ClipDuration int `json:"clipDuration"`
		MaxPlayers   int `json:"maxPlayers"`
	}) map[string]any {
		ctx := connCtx(s)
		if err := srv.manager.UpdateSettings(ctx.RoomCode, ctx.UserID, payload.ClipDuration, payload.MaxPlayers); err != nil {
			return srv.fail(s, err)
		}
		return map[string]any{"ok": true}
	})

	// game:start (host). Imports the playlist if a ref is given, otherwise
	// uses an already-imported playlist id.
	io.OnEvent("/", "game:start", func(s socketio.Conn, payload struct {
		PlaylistID     string `json:"playlistId"`
		PlaylistRef    string `json:"playlistRef"`
		TurnsPerPlayer int    `json:"turnsPerPlayer"`
	}) map[string]any {
		ctx := connCtx(s)
		playlistID := payload.PlaylistID
		if playlistID == "" {
			playlist, err := srv.importer.Import(context.Background(), payload.PlaylistRef)
			if err != nil {
				return srv.err(s, "import_failed", err.Error())
			}
			srv.catalog.Add(playlist)
			playlistID = playlist.ID
		}
		g, err := srv.manager.StartGame(ctx.RoomCode, ctx.UserID, playlistID, payload.TurnsPerPlayer)
		if err != nil {
			return srv.fail(s, err)
		}
		ctx.GameID = g.ID
		s.Join("game-" + g.ID)
		log.Info().Str("code", ctx.RoomCode).Str("game", g.ID).Msg("game:start")
		return map[string]any{"gameId": g.ID, "totalRounds": g.TotalRounds, "playlistId": playlistID}
	})

	// game:subscribe joins the game channel after game-started arrives on the
	// room channel.
	io.OnEvent("/", "game:subscribe", func(s socketio.Conn, payload struct {
		GameID string `json:"gameId"`
	}) map[string]any {
		ctx := connCtx(s)
		room, err := srv.manager.Room(ctx.RoomCode)
		if err != nil {
			return srv.fail(s, err)
		}
		if _, gameID := room.State(); gameID != payload.GameID {
			return srv.err(s, "unauthorized", "game does not belong to your room")
		}
		ctx.GameID = payload.GameID
		s.Join("game-" + payload.GameID)
		g, err := srv.manager.Game(payload.GameID)
		if err != nil {
			return srv.fail(s, err)
		}
		round, actingID := g.Progress()
		return map[string]any{
			"gameId":          g.ID,
			"currentRound":    round,
			"currentPlayerId": actingID,
			"timeline":        g.Timeline(ctx.PlayerID),
		}
	})

	// game:startRound (acting player)
	io.OnEvent("/", "game:startRound", func(s socketio.Conn, payload struct {
		RoundNumber int `json:"roundNumber"`
	}) map[string]any {
		ctx := connCtx(s)
		g, err := srv.manager.Game(ctx.GameID)
		if err != nil {
			return srv.fail(s, err)
		}
		round, err := g.StartRound(ctx.PlayerID, payload.RoundNumber)
		if err != nil {
			return srv.fail(s, err)
		}
		return map[string]any{"roundId": round.ID, "status": round.Status}
	})

	// game:guess (acting player)
	io.OnEvent("/", "game:guess", func(s socketio.Conn, payload struct {
		RoundID string `json:"roundId"`
		Text    string `json:"text"`
	}) map[string]any {
		ctx := connCtx(s)
		g, err := srv.manager.Game(ctx.GameID)
		if err != nil {
			return srv.fail(s, err)
		}
		correct, err := g.SubmitSongGuess(payload.RoundID, ctx.PlayerID, payload.Text)
		if err != nil {
			return srv.fail(s, err)
		}
		return map[string]any{"correct": correct}
	})

	// game:place (acting player)
	io.OnEvent("/", "game:place", func(s socketio.Conn, payload struct {
		RoundID string `json:"roundId"`
		Index   int    `json:"index"`
	}) map[string]any {
		ctx := connCtx(s)
		g, err := srv.manager.Game(ctx.GameID)
		if err != nil {
			return srv.fail(s, err)
		}
		out, err := g.SubmitPlacement(payload.RoundID, ctx.PlayerID, payload.Index)
		if err != nil {
			return srv.fail(s, err)
		}
		return map[string]any{"outcome": out}
	})

	// game:contest (non-acting player)
	io.OnEvent("/", "game:contest", func(s socketio.Conn, payload struct {
		RoundID string `json:"roundId"`
		Index   int    `json:"index"`
	}) map[string]any {
		ctx := connCtx(s)
		g, err := srv.manager.Game(ctx.GameID)
		if err != nil {
			return srv.fail(s, err)
		}
		if err := g.SubmitContestGuess(payload.RoundID, ctx.PlayerID, payload.Index); err != nil {
			return srv.fail(s, err)
		}
		return map[string]any{"ok": true}
	})

	// game:reveal (acting player, after the contest deadline)
	io.OnEvent("/", "game:reveal", func(s socketio.Conn, payload struct {
		RoundID string `json:"roundId"`
	}) map[string]any {
		ctx := connCtx(s)
		g, err := srv.manager.Game(ctx.GameID)
		if err != nil {
			return srv.fail(s, err)
		}
		result, err := g.RevealResults(payload.RoundID, ctx.PlayerID)
		if err != nil {
			return srv.fail(s, err)
		}
		return map[string]any{"result": result}
	})

	// game:continue (acting player, from REVEALING)
	io.OnEvent("/", "game:continue", func(s socketio.Conn, payload struct {
		RoundID string `json:"roundId"`
	}) map[string]any {
		ctx := connCtx(s)
		g, err := srv.manager.Game(ctx.GameID)
		if err != nil {
			return srv.fail(s, err)
		}
		if err := g.ContinueGame(payload.RoundID, ctx.PlayerID); err != nil {
			return srv.fail(s, err)
		}
		return map[string]any{"ok": true}
	})

	// game:timeline returns the caller's own timeline.
	io.OnEvent("/", "game:timeline", func(s socketio.Conn) map[string]any {
		ctx := connCtx(s)
		g, err := srv.manager.Game(ctx.GameID)
		if err != nil {
			return srv.fail(s, err)
		}
		return map[string]any{"timeline": g.Timeline(ctx.PlayerID)}
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	io.OnError("/", func(s socketio.Conn, err error) {
		log.Warn().Err(err).Msg("socket error")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io serve")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	return io
}

func connCtx(s socketio.Conn) *ConnCtx {
	if ctx, ok := s.Context().(*ConnCtx); ok && ctx != nil {
		return ctx
	}
	ctx := &ConnCtx{}
	s.SetContext(ctx)
	return ctx
}

func (srv *Server) fail(s socketio.Conn, err error) map[string]any {
	return srv.err(s, game.ErrorCode(err), err.Error())
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	log.Debug().Str("sid", s.ID()).Str("code", code).Str("msg", message).Msg("request rejected")
	return map[string]any{"error": map[string]any{"code": code, "message": message}}
}
