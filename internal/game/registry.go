package game

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MatcherSource hands out a reference-name matcher per game mode. A nil
// matcher means the mode has no dataset and rooms validate in degraded mode.
type MatcherSource interface {
	MatcherFor(mode string) *Matcher
}

// Registry owns the room table: create-on-first-join, delete-on-empty, and
// the idle sweep. Different rooms mutate concurrently; each room serializes
// its own state.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg         RoomConfig
	source      MatcherSource
	emitter     Broadcaster
	idleTimeout time.Duration
	sweepEvery  time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

func NewRegistry(cfg RoomConfig, source MatcherSource, emitter Broadcaster, idleTimeout, sweepEvery time.Duration) *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		cfg:         cfg,
		source:      source,
		emitter:     emitter,
		idleTimeout: idleTimeout,
		sweepEvery:  sweepEvery,
		done:        make(chan struct{}),
	}
}

// Room ids are short opaque codes, case-insensitive.
func normalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// GetOrCreate returns the room for id, creating it with default state on
// first access. The mode only takes effect at creation.
func (g *Registry) GetOrCreate(id, mode string) *Room {
	key := normalizeRoomID(id)
	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok := g.rooms[key]; ok {
		return room
	}
	var m *Matcher
	if g.source != nil {
		m = g.source.MatcherFor(mode)
	}
	if m == nil {
		log.Warn().Str("room", key).Str("mode", mode).Msg("no reference dataset, validating in degraded mode")
	}
	room := NewRoom(key, mode, m, g.cfg, g.emitter)
	g.rooms[key] = room
	return room
}

func (g *Registry) Get(id string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[normalizeRoomID(id)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Join adds a player to the room, creating the room if needed. Returns the
// room and its player count.
func (g *Registry) Join(id, player, connID, mode string) (*Room, int) {
	room := g.GetOrCreate(id, mode)
	count := room.Join(player, connID)
	log.Info().Str("room", room.ID).Str("player", player).Int("players", count).Msg("player joined")
	return room, count
}

func (g *Registry) Start(id string) error {
	room, err := g.Get(id)
	if err != nil {
		return err
	}
	return room.Start()
}

func (g *Registry) Submit(id, player, answer string) (Verdict, error) {
	room, err := g.Get(id)
	if err != nil {
		return Verdict{}, err
	}
	return room.Submit(player, answer)
}

// Touch refreshes a room's idle clock. Reports whether the room exists.
func (g *Registry) Touch(id string) bool {
	room, err := g.Get(id)
	if err != nil {
		return false
	}
	room.Touch()
	return true
}

// Leave removes the player from their room and deletes the room once empty,
// stopping its timers first.
func (g *Registry) Leave(id, player string) {
	room, err := g.Get(id)
	if err != nil {
		return
	}
	remaining := room.Leave(player)
	log.Info().Str("room", room.ID).Str("player", player).Int("players", remaining).Msg("player left")
	if remaining == 0 {
		g.remove(room.ID)
	}
}

func (g *Registry) remove(key string) {
	g.mu.Lock()
	room, ok := g.rooms[key]
	if ok {
		delete(g.rooms, key)
	}
	g.mu.Unlock()
	if ok {
		room.Close()
	}
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Sweep deletes rooms idle past the timeout. Returns how many were removed.
func (g *Registry) Sweep(now time.Time) int {
	g.mu.RLock()
	stale := make([]string, 0)
	for key, room := range g.rooms {
		if now.Sub(room.LastActivity()) > g.idleTimeout {
			stale = append(stale, key)
		}
	}
	g.mu.RUnlock()
	for _, key := range stale {
		log.Info().Str("room", key).Msg("sweeping idle room")
		g.remove(key)
	}
	return len(stale)
}

// StartSweeper runs the idle sweep on a ticker until Close.
func (g *Registry) StartSweeper() {
	if g.sweepEvery <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(g.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-g.done:
				return
			case now := <-ticker.C:
				g.Sweep(now)
			}
		}
	}()
}

// Close stops the sweeper and every room.
func (g *Registry) Close() {
	g.stopOnce.Do(func() { close(g.done) })
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.rooms = make(map[string]*Room)
	g.mu.Unlock()
	for _, room := range rooms {
		room.Close()
	}
}
