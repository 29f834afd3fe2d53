package ws

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"azfootball/internal/game"
)

// ConnCtx is the per-connection bookkeeping: which room and player this
// socket belongs to. Set on join, read on disconnect.
type ConnCtx struct {
	RoomID     string
	PlayerName string
}

// Server is the session gateway. It maps inbound Socket.IO events to
// registry/room operations and holds no game logic of its own.
type Server struct {
	reg         *game.Registry
	io          *socketio.Server
	defaultMode string
}

func New(defaultMode string) *Server {
	return &Server{defaultMode: defaultMode}
}

func (srv *Server) SetRegistry(reg *game.Registry) { srv.reg = reg }

// Broadcast implements game.Broadcaster on top of Socket.IO rooms.
func (srv *Server) Broadcast(roomID, event string, payload any) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom("/", roomID, event, payload)
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		s.Emit("connection-confirmed", map[string]any{
			"status": "connected",
			"time":   time.Now().UTC(),
		})
		return nil
	})

	io.OnEvent("/", "join-room", func(s socketio.Conn, payload struct {
		RoomID     string `json:"roomId"`
		PlayerName string `json:"playerName"`
		GameMode   string `json:"gameMode"`
	}) map[string]any {
		roomID := strings.ToUpper(strings.TrimSpace(payload.RoomID))
		name := strings.TrimSpace(payload.PlayerName)
		if roomID == "" || name == "" {
			return srv.err(s, "bad_request", "Room id and player name are required")
		}
		mode := payload.GameMode
		if mode == "" {
			mode = srv.defaultMode
		}
		room, count := srv.reg.Join(roomID, name, s.ID(), mode)
		s.SetContext(&ConnCtx{RoomID: room.ID, PlayerName: name})
		s.Join(room.ID)
		log.Info().Str("sid", s.ID()).Str("room", room.ID).Str("player", name).Msg("join-room")
		s.Emit("join-confirmed", map[string]any{
			"roomId":       room.ID,
			"playerName":   name,
			"playersCount": count,
		})
		srv.Broadcast(room.ID, "game-state-update", room.Snapshot())
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "start-game", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
	}) map[string]any {
		if err := srv.reg.Start(payload.RoomID); err != nil {
			return srv.err(s, "bad_request", startErrorMessage(err))
		}
		log.Info().Str("sid", s.ID()).Str("room", payload.RoomID).Msg("start-game")
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "submit-answer", func(s socketio.Conn, payload struct {
		RoomID        string `json:"roomId"`
		PlayerName    string `json:"playerName"`
		Answer        string `json:"answer"`
		IsValid       bool   `json:"isValid"`
		MatchedPlayer string `json:"matchedPlayer"`
		Points        int    `json:"points"`
	}) map[string]any {
		verdict, err := srv.reg.Submit(payload.RoomID, payload.PlayerName, payload.Answer)
		switch {
		case err == nil:
		case errors.Is(err, game.ErrUnknownPlayer), errors.Is(err, game.ErrAlreadyAnswered):
			// expected races (removed player, client retry); drop silently
			log.Debug().Str("room", payload.RoomID).Str("player", payload.PlayerName).
				Err(err).Msg("submission ignored")
			return map[string]any{"ignored": true}
		default:
			return srv.err(s, "bad_request", "Game not active")
		}
		// The client sends its own validation as a hint; the server verdict
		// is authoritative.
		if payload.IsValid != verdict.Valid {
			log.Warn().Str("room", payload.RoomID).Str("player", payload.PlayerName).
				Bool("clientValid", payload.IsValid).Bool("serverValid", verdict.Valid).
				Str("reason", string(verdict.Reason)).Msg("client validity hint disagrees with server")
		}
		return map[string]any{"valid": verdict.Valid, "reason": string(verdict.Reason)}
	})

	io.OnEvent("/", "ping-room", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
	}) {
		if srv.reg.Touch(payload.RoomID) {
			s.Emit("pong-room", map[string]any{"status": "alive"})
		}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.RoomID != "" {
			srv.reg.Leave(ctx.RoomID, ctx.PlayerName)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(204)
	})

	return io
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error-message", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, game.ErrGameActive):
		return "Game already active"
	case errors.Is(err, game.ErrNotEnoughPlayers):
		return "Need at least 1 player"
	default:
		return fmt.Sprintf("Failed to start game: %v", err)
	}
}
