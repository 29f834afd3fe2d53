package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrGameActive       = errors.New("game already active")
	ErrGameNotActive    = errors.New("game not active")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrAlreadyAnswered  = errors.New("already answered this round")
)

// Broadcaster fans an event out to every connection in a room. Delivery is
// fire-and-forget; nothing in the engine waits on it.
type Broadcaster interface {
	Broadcast(roomID, event string, payload any)
}

type PlayerInfo struct {
	ConnID   string    `json:"id"`
	JoinedAt time.Time `json:"joinedAt"`
}

// RoundAnswer records one player's submission for the round in progress.
// Points stays 0 until the round resolves.
type RoundAnswer struct {
	Answer        string    `json:"answer"`
	IsValid       bool      `json:"isValid"`
	Points        int       `json:"points"`
	MatchedPlayer string    `json:"matchedPlayer,omitempty"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Snapshot is the full room state sent in game-state-update events.
type Snapshot struct {
	Players            map[string]PlayerInfo  `json:"players"`
	Scores             map[string]int         `json:"scores"`
	CurrentLetter      string                 `json:"currentLetter"`
	CurrentLetterIndex int                    `json:"currentLetterIndex"`
	UsedPlayers        []string               `json:"usedPlayers"`
	RoundAnswers       map[string]RoundAnswer `json:"roundAnswers"`
	Timer              int                    `json:"timer"`
	IsActive           bool                   `json:"isActive"`
	GameMode           string                 `json:"gameMode"`
	Winner             string                 `json:"winner,omitempty"`
}

type RoomConfig struct {
	RoundSeconds    int
	TickInterval    time.Duration
	InterRoundDelay time.Duration
	MinPlayers      int
	ExportFile      string // empty disables result export
}

// Room is one isolated game session. All state is guarded by mu; timer
// callbacks re-acquire it and check the round generation before touching
// anything, so a stale tick can never mutate a superseded round.
type Room struct {
	ID         string
	instanceID string

	mu           sync.Mutex
	players      map[string]*PlayerInfo
	order        []string // join order, kept across leaves; breaks score ties
	scores       map[string]int
	letterIndex  int
	usedAnswers  []string
	roundAnswers map[string]*RoundAnswer
	timer        int
	active       bool
	winner       string
	mode         string
	matcher      *Matcher
	lastActivity time.Time

	cfg  RoomConfig
	emit Broadcaster

	gen          int // incremented per round start; stale callbacks bail out
	stopTick     chan struct{}
	advanceTimer *time.Timer
	closed       bool
}

func NewRoom(id, mode string, matcher *Matcher, cfg RoomConfig, emit Broadcaster) *Room {
	r := &Room{
		ID:           id,
		instanceID:   uuid.NewString(),
		players:      make(map[string]*PlayerInfo),
		scores:       make(map[string]int),
		roundAnswers: make(map[string]*RoundAnswer),
		timer:        cfg.RoundSeconds,
		mode:         mode,
		matcher:      matcher,
		lastActivity: time.Now(),
		cfg:          cfg,
		emit:         emit,
	}
	log.Info().Str("room", id).Str("instance", r.instanceID).Str("mode", mode).Msg("room created")
	return r
}

// Join adds the player or, for an existing name, takes over its connection
// handle. Two connections joining with the same name collapse into one
// logical player; last join wins. Returns the player count.
func (r *Room) Join(name, connID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[name]; ok {
		p.ConnID = connID
	} else {
		r.players[name] = &PlayerInfo{ConnID: connID, JoinedAt: time.Now()}
	}
	if _, ok := r.scores[name]; !ok {
		r.scores[name] = 0
		r.order = append(r.order, name)
	}
	r.touchLocked()
	return len(r.players)
}

// Leave removes the player and tells the room. Scores and join order are
// kept so a finished game still ranks everyone who played. An in-progress
// round keeps running. Returns the remaining player count.
func (r *Room) Leave(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[name]; !ok {
		return len(r.players)
	}
	delete(r.players, name)
	r.touchLocked()
	r.broadcast("player-left", map[string]any{"playerName": name})
	if len(r.players) > 0 {
		r.broadcast("game-state-update", r.snapshotLocked())
	}
	return len(r.players)
}

// Start begins a game at letter A. Scores survive from a previous game in
// the same room; used answers and round answers do not.
func (r *Room) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.active || r.advanceTimer != nil {
		return ErrGameActive
	}
	if len(r.players) < r.cfg.MinPlayers {
		return ErrNotEnoughPlayers
	}

	r.letterIndex = 0
	r.usedAnswers = nil
	r.roundAnswers = make(map[string]*RoundAnswer)
	r.timer = r.cfg.RoundSeconds
	r.active = true
	r.winner = ""
	r.touchLocked()

	log.Info().Str("room", r.ID).Int("players", len(r.players)).Msg("game started")
	r.broadcast("game-started", map[string]any{
		"message": "Game started!",
		"letter":  string(r.currentLetterLocked()),
		"timer":   r.timer,
	})
	r.broadcast("game-state-update", r.snapshotLocked())
	r.startCountdownLocked()
	return nil
}

// Submit records one answer for the round in progress. Validity is decided
// here, server-side; a second submission from the same player in the same
// round is ignored. When every player has answered the round resolves
// immediately instead of waiting out the countdown.
func (r *Room) Submit(player, answer string) (Verdict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.active {
		return Verdict{}, ErrGameNotActive
	}
	if _, ok := r.players[player]; !ok {
		return Verdict{}, ErrUnknownPlayer
	}
	if _, ok := r.roundAnswers[player]; ok {
		return Verdict{}, ErrAlreadyAnswered
	}

	v := Validate(answer, r.currentLetterLocked(), r.usedAnswers, r.matcher)
	r.roundAnswers[player] = &RoundAnswer{
		Answer:        answer,
		IsValid:       v.Valid,
		MatchedPlayer: v.MatchedEntity,
		SubmittedAt:   time.Now(),
	}
	r.touchLocked()

	log.Debug().Str("room", r.ID).Str("player", player).
		Bool("valid", v.Valid).Str("reason", string(v.Reason)).Msg("answer submitted")
	r.broadcast("player-answered", map[string]any{"playerName": player, "answered": true})

	if len(r.roundAnswers) >= len(r.players) {
		r.resolveLocked()
	}
	return v, nil
}

// Touch refreshes the idle clock (keepalive pings).
func (r *Room) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()
}

func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Close stops every pending timer and marks the room dead. Must be called
// before the room is dropped from the registry so no callback outlives it.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.active = false
	r.stopTickLocked()
	if r.advanceTimer != nil {
		r.advanceTimer.Stop()
		r.advanceTimer = nil
	}
	log.Info().Str("room", r.ID).Str("instance", r.instanceID).Msg("room closed")
}

func (r *Room) touchLocked() {
	r.lastActivity = time.Now()
}

func (r *Room) currentLetterLocked() byte {
	return letterAt(r.letterIndex)
}

func (r *Room) broadcast(event string, payload any) {
	if r.emit != nil {
		r.emit.Broadcast(r.ID, event, payload)
	}
}

func (r *Room) snapshotLocked() Snapshot {
	players := make(map[string]PlayerInfo, len(r.players))
	for name, p := range r.players {
		players[name] = *p
	}
	return Snapshot{
		Players:            players,
		Scores:             r.copyScoresLocked(),
		CurrentLetter:      string(r.currentLetterLocked()),
		CurrentLetterIndex: r.letterIndex,
		UsedPlayers:        r.copyUsedLocked(),
		RoundAnswers:       r.copyAnswersLocked(),
		Timer:              r.timer,
		IsActive:           r.active,
		GameMode:           r.mode,
		Winner:             r.winner,
	}
}

func (r *Room) copyScoresLocked() map[string]int {
	out := make(map[string]int, len(r.scores))
	for name, pts := range r.scores {
		out[name] = pts
	}
	return out
}

func (r *Room) copyUsedLocked() []string {
	return append([]string(nil), r.usedAnswers...)
}

func (r *Room) copyAnswersLocked() map[string]RoundAnswer {
	out := make(map[string]RoundAnswer, len(r.roundAnswers))
	for name, a := range r.roundAnswers {
		out[name] = *a
	}
	return out
}

// startCountdownLocked begins a fresh per-second countdown for the current
// round. Bumping the generation invalidates any callback still in flight
// from a previous round.
func (r *Room) startCountdownLocked() {
	r.stopTickLocked()
	r.gen++
	gen := r.gen
	stop := make(chan struct{})
	r.stopTick = stop
	go r.runCountdown(gen, stop)
}

func (r *Room) stopTickLocked() {
	if r.stopTick != nil {
		close(r.stopTick)
		r.stopTick = nil
	}
}

func (r *Room) runCountdown(gen int, stop chan struct{}) {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.tick(gen) {
				return
			}
		}
	}
}

// tick decrements the countdown by one second. Reports true when the
// countdown is over or the tick no longer applies.
func (r *Room) tick(gen int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.active || gen != r.gen {
		return true
	}
	r.timer--
	r.touchLocked()
	r.broadcast("timer-update", map[string]any{"timer": r.timer})
	if r.timer <= 0 {
		r.resolveLocked()
		return true
	}
	return false
}

// resolveLocked completes the round exactly once: scores the valid answers,
// extends the used-answer history, broadcasts results, and schedules the
// next round.
func (r *Room) resolveLocked() {
	if !r.active {
		return
	}
	r.active = false
	r.stopTickLocked()

	letter := r.currentLetterLocked()
	valid := make([]string, 0, len(r.roundAnswers))
	for _, name := range r.order {
		if a, ok := r.roundAnswers[name]; ok && a.IsValid {
			valid = append(valid, name)
		}
	}
	shares := Distribute(PointsForLetter(letter), valid)
	for name, pts := range shares {
		r.scores[name] += pts
		r.roundAnswers[name].Points = pts
	}
	for _, name := range valid {
		a := r.roundAnswers[name]
		credited := a.MatchedPlayer
		if credited == "" {
			credited = a.Answer
		}
		norm := Normalize(credited)
		if norm == "" || conflictsWithUsed(norm, r.usedAnswers) {
			continue
		}
		r.usedAnswers = append(r.usedAnswers, norm)
	}
	r.touchLocked()

	log.Info().Str("room", r.ID).Str("letter", string(letter)).
		Int("valid", len(valid)).Msg("round complete")
	r.broadcast("round-complete", map[string]any{
		"answers":     r.copyAnswersLocked(),
		"scores":      r.copyScoresLocked(),
		"usedPlayers": r.copyUsedLocked(),
	})

	gen := r.gen
	r.advanceTimer = time.AfterFunc(r.cfg.InterRoundDelay, func() {
		r.advanceRound(gen)
	})
}

// advanceRound fires after the inter-round delay: next letter, or game over
// after Z.
func (r *Room) advanceRound(gen int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.active || gen != r.gen {
		return
	}
	r.advanceTimer = nil

	if r.letterIndex >= len(alphabet)-1 {
		r.finishLocked()
		return
	}

	r.letterIndex++
	r.roundAnswers = make(map[string]*RoundAnswer)
	r.timer = r.cfg.RoundSeconds
	r.active = true
	r.touchLocked()
	r.broadcast("new-round", map[string]any{
		"letter":      string(r.currentLetterLocked()),
		"letterIndex": r.letterIndex,
	})
	r.startCountdownLocked()
}

// finishLocked ends the game: highest score wins, ties go to the earliest
// joiner.
func (r *Room) finishLocked() {
	best := ""
	bestScore := -1
	for _, name := range r.order {
		if pts := r.scores[name]; pts > bestScore {
			best = name
			bestScore = pts
		}
	}
	r.winner = best

	log.Info().Str("room", r.ID).Str("winner", best).Int("points", bestScore).Msg("game complete")
	r.broadcast("game-complete", map[string]any{
		"winner": best,
		"scores": r.copyScoresLocked(),
	})

	if r.cfg.ExportFile != "" {
		res := GameResult{
			RoomID:      r.ID,
			GameID:      r.instanceID,
			Winner:      best,
			UsedAnswers: r.copyUsedLocked(),
			FinishedAt:  time.Now(),
		}
		for _, name := range r.order {
			res.Scores = append(res.Scores, PlayerScore{Name: name, Points: r.scores[name]})
		}
		file := r.cfg.ExportFile
		go func() {
			if err := ExportResult(res, file); err != nil {
				log.Error().Err(err).Str("room", res.RoomID).Msg("failed to export game result")
			}
		}()
	}
}
