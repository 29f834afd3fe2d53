package game

// Distribute splits a round's point pool evenly among the players who
// answered validly. Integer division; the remainder is deliberately dropped,
// so the total awarded can be less than the pool. An empty player list yields
// an empty map.
func Distribute(pool int, players []string) map[string]int {
	out := make(map[string]int, len(players))
	if len(players) == 0 {
		return out
	}
	share := pool / len(players)
	for _, name := range players {
		out[name] = share
	}
	return out
}
