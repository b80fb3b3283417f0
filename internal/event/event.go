// Package event holds the immutable event configuration and the per-team
// progress model, plus the answer-checking rules that advance a team.
package event

import "time"

type Mode string

const (
	// ModeShared runs every team through the event's common level sequence.
	ModeShared Mode = "shared"
	// ModeIndividual gives each pre-declared team slot its own sequence.
	ModeIndividual Mode = "individual"
)

type Level struct {
	Index  int    `json:"index"`
	Prompt string `json:"prompt"`
	Code   string `json:"code"`
}

// TeamLevelConfig is one pre-declared team slot in individual mode.
type TeamLevelConfig struct {
	TeamID    string  `json:"teamId"`
	TeamName  string  `json:"teamName"`
	Levels    []Level `json:"levels"`
	FinalCode string  `json:"finalCode"`
}

// Event is created once by an admin and never edited afterwards.
type Event struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	LogoURL         string            `json:"logoUrl,omitempty"`
	CountdownSec    int               `json:"countdownSec"`
	Mode            Mode              `json:"mode"`
	Levels          []Level           `json:"levels"`
	TeamLevels      []TeamLevelConfig `json:"teamLevels"`
	FinalCode       string            `json:"finalCode"`
	FinishMediaURL  string            `json:"finishMediaUrl,omitempty"`
	CaseInsensitive bool              `json:"caseInsensitive"`
	CreatedAtMs     int64             `json:"createdAt"`
}

// Config is the create_event payload.
type Config struct {
	Name            string            `json:"name"`
	LogoURL         string            `json:"logoUrl"`
	CountdownSec    int               `json:"countdownSec"`
	Mode            Mode              `json:"mode"`
	Levels          []Level           `json:"levels"`
	TeamLevels      []TeamLevelConfig `json:"teamLevels"`
	FinalCode       string            `json:"finalCode"`
	FinishMediaURL  string            `json:"finishMediaUrl"`
	CaseInsensitive bool              `json:"caseInsensitive"`
}

// New builds an Event from a create_event payload, applying defaults:
// mode falls back to shared, level sequences to empty, final code to "".
func New(id string, cfg Config, now time.Time) Event {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeShared
	}
	levels := cfg.Levels
	if levels == nil {
		levels = []Level{}
	}
	teamLevels := cfg.TeamLevels
	if teamLevels == nil {
		teamLevels = []TeamLevelConfig{}
	}
	return Event{
		ID:              id,
		Name:            cfg.Name,
		LogoURL:         cfg.LogoURL,
		CountdownSec:    cfg.CountdownSec,
		Mode:            mode,
		Levels:          levels,
		TeamLevels:      teamLevels,
		FinalCode:       cfg.FinalCode,
		FinishMediaURL:  cfg.FinishMediaURL,
		CaseInsensitive: cfg.CaseInsensitive,
		CreatedAtMs:     now.UnixMilli(),
	}
}

// Team is a joined participant group. Progress fields only move on accepted
// answer submissions.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CurrentLevel int    `json:"currentLevel"`
	SolvedCount  int    `json:"solvedCount"`
	Finished     bool   `json:"finished"`
	ElapsedMs    int64  `json:"elapsedMs"`
	JoinedAtMs   int64  `json:"joinedAt"`
}

func NewTeam(id, name string, now time.Time) Team {
	return Team{
		ID:         id,
		Name:       name,
		JoinedAtMs: now.UnixMilli(),
	}
}

// track resolves the level sequence and final code applicable to a team. In
// individual mode a team without a matching TeamLevelConfig has no track, so
// no submission of theirs can be correct.
func (e *Event) track(teamID string) ([]Level, string, bool) {
	if e.Mode == ModeShared {
		return e.Levels, e.FinalCode, true
	}
	for i := range e.TeamLevels {
		if e.TeamLevels[i].TeamID == teamID {
			return e.TeamLevels[i].Levels, e.TeamLevels[i].FinalCode, true
		}
	}
	return nil, "", false
}

// Submit checks code against the team's current level (or the final code once
// the sequence is exhausted) and advances the team on a match. It reports
// whether the submission was accepted. A finished team advances no further.
func (e *Event) Submit(team *Team, code string, now time.Time) bool {
	if team.Finished {
		return false
	}
	levels, finalCode, ok := e.track(team.ID)
	if !ok {
		return false
	}

	expected := finalCode
	if team.CurrentLevel < len(levels) {
		expected = levels[team.CurrentLevel].Code
	}
	if !CodesMatch(code, expected, e.CaseInsensitive) {
		return false
	}

	team.CurrentLevel++
	team.SolvedCount++
	if team.CurrentLevel >= len(levels)+1 {
		team.Finished = true
		team.ElapsedMs = now.UnixMilli() - team.JoinedAtMs
	}
	return true
}
