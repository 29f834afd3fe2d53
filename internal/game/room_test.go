package game

import (
	"sync"
	"testing"
	"time"
)

type recordedEvent struct {
	Room    string
	Event   string
	Payload any
}

// recorder is a Broadcaster capturing everything the engine emits.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Broadcast(roomID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Room: roomID, Event: event, Payload: payload})
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (r *recorder) ofKind(event string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedEvent, 0)
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) waitFor(t *testing.T, event string, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.count(event) >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %q events, saw %d", want, event, r.count(event))
}

// quietConfig keeps timers effectively frozen so tests drive transitions
// themselves.
func quietConfig() RoomConfig {
	return RoomConfig{
		RoundSeconds:    30,
		TickInterval:    time.Hour,
		InterRoundDelay: time.Hour,
		MinPlayers:      1,
	}
}

func TestStartGuards(t *testing.T) {
	rec := &recorder{}
	r := NewRoom("R1", "modern", nil, quietConfig(), rec)
	defer r.Close()

	if err := r.Start(); err != ErrNotEnoughPlayers {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}

	r.Join("Ana", "c1")
	if err := r.Start(); err != nil {
		t.Fatalf("start should succeed with one player: %v", err)
	}
	if err := r.Start(); err != ErrGameActive {
		t.Fatalf("expected ErrGameActive, got %v", err)
	}

	snap := r.Snapshot()
	if !snap.IsActive || snap.CurrentLetter != "A" || snap.CurrentLetterIndex != 0 || snap.Timer != 30 {
		t.Fatalf("unexpected state after start: %+v", snap)
	}
	if rec.count("game-started") != 1 || rec.count("game-state-update") == 0 {
		t.Fatal("start should broadcast game-started and a state update")
	}
}

func TestSubmitBeforeStart(t *testing.T) {
	r := NewRoom("R1", "modern", nil, quietConfig(), &recorder{})
	defer r.Close()
	r.Join("Ana", "c1")
	if _, err := r.Submit("Ana", "Alan Shearer"); err != ErrGameNotActive {
		t.Fatalf("expected ErrGameNotActive, got %v", err)
	}
}

func TestSubmitIdempotent(t *testing.T) {
	rec := &recorder{}
	r := NewRoom("R1", "modern", nil, quietConfig(), rec)
	defer r.Close()
	r.Join("Ana", "c1")
	r.Join("Bo", "c2")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	v, err := r.Submit("Ana", "Alan Shearer")
	if err != nil || !v.Valid {
		t.Fatalf("first submit should be accepted: %v %+v", err, v)
	}
	if _, err := r.Submit("Ana", "Andrea Pirlo"); err != ErrAlreadyAnswered {
		t.Fatalf("second submit should be ignored, got %v", err)
	}

	snap := r.Snapshot()
	if len(snap.RoundAnswers) != 1 {
		t.Fatalf("expected 1 round answer, got %d", len(snap.RoundAnswers))
	}
	if snap.RoundAnswers["Ana"].Answer != "Alan Shearer" {
		t.Fatal("second submission must not overwrite the first")
	}
}

func TestSubmitUnknownPlayer(t *testing.T) {
	r := NewRoom("R1", "modern", nil, quietConfig(), &recorder{})
	defer r.Close()
	r.Join("Ana", "c1")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Submit("Ghost", "Alan Shearer"); err != ErrUnknownPlayer {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestEarlyCompletionWhenAllAnswered(t *testing.T) {
	rec := &recorder{}
	r := NewRoom("R1", "modern", nil, quietConfig(), rec)
	defer r.Close()
	r.Join("Ana", "c1")
	r.Join("Bo", "c2")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Submit("Ana", "Alan Shearer"); err != nil {
		t.Fatal(err)
	}
	if rec.count("round-complete") != 0 {
		t.Fatal("round must not resolve before every player answered")
	}
	if _, err := r.Submit("Bo", "Andrea Pirlo"); err != nil {
		t.Fatal(err)
	}

	// Both answered, so the round resolves immediately without waiting for
	// the countdown.
	if rec.count("round-complete") != 1 {
		t.Fatalf("expected exactly one round-complete, got %d", rec.count("round-complete"))
	}
	snap := r.Snapshot()
	if snap.IsActive {
		t.Fatal("room should be between rounds")
	}
	// Letter A is worth 1 point; floor(1/2) = 0 each.
	if snap.Scores["Ana"] != 0 || snap.Scores["Bo"] != 0 {
		t.Fatalf("expected zero scores for split of 1, got %v", snap.Scores)
	}
	if len(snap.UsedPlayers) != 2 {
		t.Fatalf("expected both answers in used list, got %v", snap.UsedPlayers)
	}
	if snap.UsedPlayers[0] != "alan shearer" || snap.UsedPlayers[1] != "andrea pirlo" {
		t.Fatalf("unexpected used answers: %v", snap.UsedPlayers)
	}
}

func TestInvalidAnswerScoresNothing(t *testing.T) {
	rec := &recorder{}
	r := NewRoom("R1", "modern", nil, quietConfig(), rec)
	defer r.Close()
	r.Join("Ana", "c1")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	v, err := r.Submit("Ana", "Buffon") // wrong letter for round A
	if err != nil {
		t.Fatal(err)
	}
	if v.Valid || v.Reason != ReasonWrongLetter {
		t.Fatalf("expected wrong_letter verdict, got %+v", v)
	}

	snap := r.Snapshot()
	if snap.Scores["Ana"] != 0 {
		t.Fatalf("invalid answer must not score, got %v", snap.Scores)
	}
	if len(snap.UsedPlayers) != 0 {
		t.Fatalf("invalid answer must not enter used list, got %v", snap.UsedPlayers)
	}
	if a := snap.RoundAnswers["Ana"]; a.IsValid || a.Points != 0 {
		t.Fatalf("unexpected round answer: %+v", a)
	}
}

func TestCountdownForcesResolution(t *testing.T) {
	rec := &recorder{}
	cfg := RoomConfig{
		RoundSeconds:    2,
		TickInterval:    2 * time.Millisecond,
		InterRoundDelay: time.Hour,
		MinPlayers:      1,
	}
	r := NewRoom("R1", "modern", nil, cfg, rec)
	defer r.Close()
	r.Join("Ana", "c1")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	rec.waitFor(t, "round-complete", 1, time.Second)
	rec.waitFor(t, "timer-update", 2, time.Second)

	snap := r.Snapshot()
	if snap.IsActive {
		t.Fatal("round should have force-completed")
	}
	if snap.Scores["Ana"] != 0 || len(snap.UsedPlayers) != 0 {
		t.Fatalf("no submission means no score and no used answers: %+v", snap)
	}
	// The absent player simply has no RoundAnswer entry.
	if _, ok := snap.RoundAnswers["Ana"]; ok {
		t.Fatal("player who never submitted should have no answer recorded")
	}
}

func TestAdvanceToNextLetter(t *testing.T) {
	rec := &recorder{}
	cfg := RoomConfig{
		RoundSeconds:    30,
		TickInterval:    time.Hour,
		InterRoundDelay: 5 * time.Millisecond,
		MinPlayers:      1,
	}
	r := NewRoom("R1", "modern", nil, cfg, rec)
	defer r.Close()
	r.Join("Ana", "c1")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Submit("Ana", "Alan Shearer"); err != nil {
		t.Fatal(err)
	}

	rec.waitFor(t, "new-round", 1, time.Second)
	snap := r.Snapshot()
	if snap.CurrentLetterIndex != 1 || snap.CurrentLetter != "B" {
		t.Fatalf("expected round B, got %+v", snap)
	}
	if !snap.IsActive || snap.Timer != 30 {
		t.Fatalf("next round should be active with a fresh timer: %+v", snap)
	}
	if len(snap.RoundAnswers) != 0 {
		t.Fatal("round answers must be cleared at round start")
	}
	if len(snap.UsedPlayers) != 1 {
		t.Fatal("used answers must survive across rounds")
	}
}

func TestRoundResolvesExactlyOnce(t *testing.T) {
	rec := &recorder{}
	r := NewRoom("R1", "modern", nil, quietConfig(), rec)
	defer r.Close()
	r.Join("Ana", "c1")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	if _, err := r.Submit("Ana", "Alan Shearer"); err != nil {
		t.Fatal(err)
	}
	if rec.count("round-complete") != 1 {
		t.Fatalf("expected one round-complete, got %d", rec.count("round-complete"))
	}

	// A tick left over from the resolved round must be a no-op.
	if done := r.tick(gen); !done {
		t.Fatal("stale tick should report done")
	}
	if rec.count("round-complete") != 1 {
		t.Fatal("stale tick must not resolve the round again")
	}
}

func TestLeaveDuringRoundKeepsRoundRunning(t *testing.T) {
	rec := &recorder{}
	r := NewRoom("R1", "modern", nil, quietConfig(), rec)
	defer r.Close()
	r.Join("Ana", "c1")
	r.Join("Bo", "c2")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Submit("Ana", "Alan Shearer"); err != nil {
		t.Fatal(err)
	}

	if remaining := r.Leave("Bo"); remaining != 1 {
		t.Fatalf("expected 1 remaining player, got %d", remaining)
	}
	if rec.count("player-left") != 1 {
		t.Fatal("leave should broadcast player-left")
	}
	if snap := r.Snapshot(); !snap.IsActive {
		t.Fatal("a departing player must not end the round")
	}
}

func TestSameNameJoinTakesOverConnection(t *testing.T) {
	r := NewRoom("R1", "modern", nil, quietConfig(), &recorder{})
	defer r.Close()
	if count := r.Join("Ana", "c1"); count != 1 {
		t.Fatalf("expected 1 player, got %d", count)
	}
	if count := r.Join("Ana", "c2"); count != 1 {
		t.Fatalf("same name should collapse to one player, got %d", count)
	}
	snap := r.Snapshot()
	if snap.Players["Ana"].ConnID != "c2" {
		t.Fatal("last join should win the connection handle")
	}
	if len(snap.Scores) != 1 {
		t.Fatalf("score entry should be initialized once, got %v", snap.Scores)
	}
}

func TestWinnerTieBreakByJoinOrder(t *testing.T) {
	rec := &recorder{}
	r := NewRoom("R1", "modern", nil, quietConfig(), rec)
	defer r.Close()
	r.Join("Alice", "c1")
	r.Join("Bob", "c2")
	r.Join("Cara", "c3")

	r.mu.Lock()
	r.scores["Alice"] = 12
	r.scores["Bob"] = 15
	r.scores["Cara"] = 15
	r.letterIndex = 25
	r.finishLocked()
	r.mu.Unlock()

	snap := r.Snapshot()
	if snap.Winner != "Bob" {
		t.Fatalf("tie should go to the earlier joiner, got %q", snap.Winner)
	}
	if rec.count("game-complete") != 1 {
		t.Fatal("finishing should broadcast game-complete once")
	}
}

func TestFullGameAdvancesThroughAlphabet(t *testing.T) {
	rec := &recorder{}
	cfg := RoomConfig{
		RoundSeconds:    1,
		TickInterval:    time.Millisecond,
		InterRoundDelay: time.Millisecond,
		MinPlayers:      1,
	}
	r := NewRoom("R1", "modern", nil, cfg, rec)
	defer r.Close()
	r.Join("Ana", "c1")
	r.Join("Bo", "c2")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	rec.waitFor(t, "game-complete", 1, 10*time.Second)

	if got := rec.count("round-complete"); got != 26 {
		t.Fatalf("expected 26 round completions, got %d", got)
	}
	rounds := rec.ofKind("new-round")
	if len(rounds) != 25 {
		t.Fatalf("expected 25 new-round events, got %d", len(rounds))
	}
	for i, e := range rounds {
		payload := e.Payload.(map[string]any)
		if payload["letterIndex"] != i+1 {
			t.Fatalf("round %d advanced to index %v, want %d", i, payload["letterIndex"], i+1)
		}
	}
	// Everyone at zero: the first joiner takes the tie.
	if snap := r.Snapshot(); snap.Winner != "Ana" {
		t.Fatalf("expected Ana to win the tie, got %q", snap.Winner)
	}
	if rec.count("game-complete") != 1 {
		t.Fatal("game-complete must fire exactly once")
	}
}

func TestCloseCancelsTimers(t *testing.T) {
	rec := &recorder{}
	cfg := RoomConfig{
		RoundSeconds:    5,
		TickInterval:    2 * time.Millisecond,
		InterRoundDelay: 2 * time.Millisecond,
		MinPlayers:      1,
	}
	r := NewRoom("R1", "modern", nil, cfg, rec)
	r.Join("Ana", "c1")
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, "timer-update", 1, time.Second)

	r.Close()
	before := rec.count("timer-update") + rec.count("round-complete") + rec.count("new-round")
	time.Sleep(30 * time.Millisecond)
	after := rec.count("timer-update") + rec.count("round-complete") + rec.count("new-round")
	if before != after {
		t.Fatalf("events after close: %d -> %d", before, after)
	}
}

func TestRestartAfterGameComplete(t *testing.T) {
	rec := &recorder{}
	r := NewRoom("R1", "modern", nil, quietConfig(), rec)
	defer r.Close()
	r.Join("Ana", "c1")

	r.mu.Lock()
	r.scores["Ana"] = 7
	r.letterIndex = 25
	r.usedAnswers = []string{"zico"}
	r.finishLocked()
	r.mu.Unlock()

	if err := r.Start(); err != nil {
		t.Fatalf("restart after completion should be allowed: %v", err)
	}
	snap := r.Snapshot()
	if snap.CurrentLetterIndex != 0 || snap.Winner != "" || len(snap.UsedPlayers) != 0 {
		t.Fatalf("restart should reset round state: %+v", snap)
	}
	if snap.Scores["Ana"] != 7 {
		t.Fatal("restart keeps accumulated scores")
	}
}
