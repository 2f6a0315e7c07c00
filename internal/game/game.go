package game

import (
	"errors"
	"math/rand"
	"slices"
	"time"

	"github.com/mickey7hi/audience-arena-backend/internal/emoji"
)

var ErrNotActive = errors.New("team game not active")
var ErrNotOnTeam = errors.New("participant not on a team")
var ErrWrongTurn = errors.New("not this team's turn")
var ErrSequenceShowing = errors.New("sequence still showing")
var ErrNotAwaitingGuess = errors.New("guess window not open")

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

const (
	MaxSequenceLength = 5

	// Timer durations owned by the hub; kept here because they are
	// part of the round contract.
	ShowDuration    = 3000 * time.Millisecond
	GuessWindow     = 5000 * time.Millisecond
	InterRoundDelay = 3000 * time.Millisecond
)

// TeamState holds one team's membership, score and the guesses pending
// for the current round window.
type TeamState struct {
	Members map[string]bool
	Score   int
	Guesses []Guess
}

// State is the team round state machine. All fields are mutated only
// from the hub's serialized handler path; the hub owns every timer and
// invokes the transition methods when one fires.
type State struct {
	Active            bool
	CurrentTurn       Team
	RoundNumber       int
	SequenceLength    int
	Sequence          []string
	ShowingSequence   bool
	WaitingForGuess   bool
	GuessWindowActive bool
	Teams             map[Team]*TeamState

	rng *rand.Rand
}

func NewState(rng *rand.Rand) *State {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &State{
		CurrentTurn: TeamA,
		Teams: map[Team]*TeamState{
			TeamA: {Members: make(map[string]bool)},
			TeamB: {Members: make(map[string]bool)},
		},
		rng: rng,
	}
}

// Join moves a participant onto the given team. Membership is
// exclusive: the participant is removed from the other team first.
func (s *State) Join(user string, team Team) {
	delete(s.Teams[TeamA].Members, user)
	delete(s.Teams[TeamB].Members, user)
	s.Teams[team].Members[user] = true
}

// TeamOf returns the team a participant currently belongs to.
func (s *State) TeamOf(user string) (Team, bool) {
	for _, t := range []Team{TeamA, TeamB} {
		if s.Teams[t].Members[user] {
			return t, true
		}
	}
	return "", false
}

// Members returns a team's membership in stable sorted order.
func (s *State) Members(team Team) []string {
	members := make([]string, 0, len(s.Teams[team].Members))
	for m := range s.Teams[team].Members {
		members = append(members, m)
	}
	slices.Sort(members)
	return members
}

// Start resets scores and round bookkeeping and activates the game.
// Membership is preserved.
func (s *State) Start() {
	s.Active = true
	s.CurrentTurn = TeamA
	s.RoundNumber = 1
	s.SequenceLength = 1
	s.Sequence = nil
	s.ShowingSequence = false
	s.WaitingForGuess = false
	s.GuessWindowActive = false
	for _, t := range s.Teams {
		t.Score = 0
		t.Guesses = nil
	}
}

// BeginRound draws a fresh secret sequence from the face pool, clears
// both teams' pending guesses and opens the sequence display phase.
func (s *State) BeginRound() bool {
	if !s.Active {
		return false
	}
	s.Sequence = make([]string, s.SequenceLength)
	for i := range s.Sequence {
		s.Sequence[i] = emoji.Faces[s.rng.Intn(len(emoji.Faces))]
	}
	for _, t := range s.Teams {
		t.Guesses = nil
	}
	s.ShowingSequence = true
	s.WaitingForGuess = false
	return true
}

// RevealDone closes the display phase and opens guess admission.
// Invoked by the hub when the show timer fires.
func (s *State) RevealDone() {
	if !s.Active || !s.ShowingSequence {
		return
	}
	s.ShowingSequence = false
	s.WaitingForGuess = true
}

// AdmitGuess applies the admission rule: the participant must be on
// the turn team, the sequence must not be showing and the guess window
// must be open. armWindow is true when this guess should arm the
// round-closing timer (first accepted guess while none is pending).
func (s *State) AdmitGuess(user, em string) (team Team, armWindow bool, err error) {
	if !s.Active {
		return "", false, ErrNotActive
	}
	team, ok := s.TeamOf(user)
	if !ok {
		return "", false, ErrNotOnTeam
	}
	if team != s.CurrentTurn {
		return "", false, ErrWrongTurn
	}
	if s.ShowingSequence {
		return "", false, ErrSequenceShowing
	}
	if !s.WaitingForGuess {
		return "", false, ErrNotAwaitingGuess
	}
	s.Teams[team].Guesses = append(s.Teams[team].Guesses, Guess{Emoji: em, User: user})
	if !s.GuessWindowActive {
		s.GuessWindowActive = true
		armWindow = true
	}
	return team, armWindow, nil
}

// TeamRoundResult is one team's slice of a round-end broadcast.
type TeamRoundResult struct {
	Score   int     `json:"score"`
	Guesses []Guess `json:"guesses"`
}

// RoundOutcome is what EndRound hands the hub for broadcasting.
type RoundOutcome struct {
	Teams           map[Team]TeamRoundResult
	CorrectSequence []string
}

// EndRound tallies each team's pending guesses, applies scoring,
// advances the turn and round counters and grows the sequence length
// up to its cap. Returns false when the game is not active.
func (s *State) EndRound() (RoundOutcome, bool) {
	if !s.Active {
		return RoundOutcome{}, false
	}
	out := RoundOutcome{
		Teams:           make(map[Team]TeamRoundResult, 2),
		CorrectSequence: slices.Clone(s.Sequence),
	}
	for _, team := range []Team{TeamA, TeamB} {
		ts := s.Teams[team]
		if len(ts.Guesses) > 0 {
			if winner, _ := Tally(ts.Guesses); winner == s.expectedFor(team) {
				ts.Score++
			}
		}
		out.Teams[team] = TeamRoundResult{Score: ts.Score, Guesses: slices.Clone(ts.Guesses)}
		ts.Guesses = nil
	}
	s.ShowingSequence = false
	s.WaitingForGuess = false
	s.GuessWindowActive = false
	if s.CurrentTurn == TeamA {
		s.CurrentTurn = TeamB
	} else {
		s.CurrentTurn = TeamA
	}
	s.RoundNumber++
	if s.SequenceLength < MaxSequenceLength {
		s.SequenceLength++
	}
	return out, true
}

// expectedFor is the emoji a team must reach by majority to score.
// The non-turn branch is unreachable under the admission rule but kept
// for robustness against direct injection.
func (s *State) expectedFor(team Team) string {
	if len(s.Sequence) == 0 {
		return ""
	}
	if team == s.CurrentTurn || len(s.Sequence) < 2 {
		return s.Sequence[0]
	}
	return s.Sequence[1]
}

// Stop deactivates the game. Returns the final scores and whether this
// call performed the transition; a second Stop is a no-op.
func (s *State) Stop() (map[Team]int, bool) {
	if !s.Active {
		return nil, false
	}
	s.Active = false
	s.ShowingSequence = false
	s.WaitingForGuess = false
	s.GuessWindowActive = false
	return map[Team]int{
		TeamA: s.Teams[TeamA].Score,
		TeamB: s.Teams[TeamB].Score,
	}, true
}
