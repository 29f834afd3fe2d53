package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type PlayerScore struct {
	Name   string
	Points int
}

// GameResult is the summary written out when a game reaches Z.
type GameResult struct {
	RoomID      string
	GameID      string
	Winner      string
	Scores      []PlayerScore
	UsedAnswers []string
	FinishedAt  time.Time
}

// ExportResult appends a finished game's report to a text file.
func ExportResult(res GameResult, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Game %s (room %s)\n", res.GameID, res.RoomID))
	sb.WriteString(fmt.Sprintf("Finished: %s\n", res.FinishedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n")
	sb.WriteString(fmt.Sprintf("Winner: %s\n\n", res.Winner))

	sb.WriteString("Scores:\n")
	for _, s := range res.Scores {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", s.Name, s.Points))
	}

	if len(res.UsedAnswers) > 0 {
		sb.WriteString("\nNames played:\n")
		for _, name := range res.UsedAnswers {
			sb.WriteString(fmt.Sprintf("- %s\n", name))
		}
	}
	sb.WriteString("\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
