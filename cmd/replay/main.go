// cmd/replay rebuilds a match from an operation log and prints the resulting state and digest.
// Two parties that hold the same log must print the same digest.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/jason-s-yu/linot/internal/game"
	"github.com/pterm/pterm"
)

func main() {
	logPath := flag.String("log", "", "path to a replay log JSON file")
	expect := flag.String("digest", "", "fail unless the final digest equals this value")
	flag.Parse()

	if *logPath == "" {
		pterm.Error.Println("missing -log")
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*logPath, *expect); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(path, expect string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	var log game.ReplayLog
	if err := json.Unmarshal(data, &log); err != nil {
		return fmt.Errorf("parse log: %w", err)
	}

	pterm.Info.Printfln("Replaying %d operations for match %s", len(log.Entries), log.MatchID)
	m, replayErr := log.Run()
	if err := render(m); err != nil {
		return err
	}
	if replayErr != nil {
		return replayErr
	}

	digest, err := m.Digest()
	if err != nil {
		return err
	}
	pterm.Info.Printfln("Digest: %s", digest)
	if expect != "" && expect != digest {
		return fmt.Errorf("digest mismatch: want %s", expect)
	}
	pterm.Success.Println("Replay is consistent")
	return nil
}

// render prints the match summary and the per-player table.
func render(m *game.Match) error {
	summary := pterm.Sprintfln("Status: %s", m.Status) +
		pterm.Sprintfln("Ply: %d", m.Ply) +
		pterm.Sprintfln("Deck: %d  Discard: %d  Round: %d", len(m.Deck), len(m.DiscardPile), m.RoundNumber)
	if top, ok := m.TopCard(); ok {
		summary += pterm.Sprintfln("Top card: %s", top)
	}
	if m.ActiveShapeDemand != nil {
		summary += pterm.Sprintfln("Demand: %s", *m.ActiveShapeDemand)
	}
	if m.PendingPenalty > 0 {
		summary += pterm.Sprintfln("Pending penalty: %d", m.PendingPenalty)
	}
	if w := m.Winner(); w != nil {
		summary += pterm.Sprintf("Winner: %s", pterm.LightGreen(w.Nickname+" ("+w.Owner.String()+")"))
	}
	pterm.DefaultBox.WithTitle(pterm.LightYellow("|MATCH|")).WithTitleTopCenter().
		WithHorizontalPadding(4).Println(summary)

	table := pterm.TableData{{"#", "Player", "Cards", "Active", "Last card"}}
	for i, p := range m.Players {
		name := p.Nickname
		if i == m.CurrentPlayerIndex && m.Status == game.StatusInProgress {
			name = pterm.Cyan(name + " *")
		}
		table = append(table, []string{
			strconv.Itoa(i),
			name,
			strconv.Itoa(p.CardCount),
			strconv.FormatBool(p.IsActive),
			strconv.FormatBool(p.CalledLastCard),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}
