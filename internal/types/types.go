package types

import "github.com/mickey7hi/audience-arena-backend/internal/game"

// Inbound is the envelope decoded from every message a connection
// sends. Fields are a superset; handlers read only what their type
// needs. Payloads that fail to decode into this are dropped.
type Inbound struct {
	Type    string `json:"type"`
	Mode    string `json:"mode,omitempty"`
	User    string `json:"user,omitempty"`
	Team    string `json:"team,omitempty"`
	Emoji   string `json:"emoji,omitempty"`
	Comment string `json:"comment,omitempty"`
	Action  string `json:"action,omitempty"`

	// SEQUENCE_STATE only; pointers so an absent field is not
	// mistaken for false.
	ShowingSequence *bool `json:"showingSequence,omitempty"`
	GameStarted     *bool `json:"gameStarted,omitempty"`
}

type Connected struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ModeChanged struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

type ChatMessage struct {
	Type    string `json:"type"`
	User    string `json:"user"`
	Comment string `json:"comment"`
}

type AudienceEmoji struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
	Pack  string `json:"pack"`
	User  string `json:"user"`
}

type AudienceSpeed struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	User   string `json:"user"`
}

type AudienceTheme struct {
	Type  string `json:"type"`
	Theme string `json:"theme"`
	User  string `json:"user"`
}

type AudiencePack struct {
	Type string `json:"type"`
	Pack string `json:"pack"`
	User string `json:"user"`
}

type AudienceFollow struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// TeamInfo is one team's slice of a TEAM_STATE or TEAM_GAME_START
// broadcast.
type TeamInfo struct {
	Members []string `json:"members"`
	Score   int      `json:"score"`
}

type TeamState struct {
	Type  string              `json:"type"`
	Teams map[string]TeamInfo `json:"teams"`
}

type TeamGameStart struct {
	Type  string              `json:"type"`
	Teams map[string]TeamInfo `json:"teams"`
}

type TeamRoundStart struct {
	Type        string   `json:"type"`
	Round       int      `json:"round"`
	Sequence    []string `json:"sequence"`
	CurrentTurn string   `json:"currentTurn"`
}

type TeamRoundEnd struct {
	Type            string                          `json:"type"`
	Teams           map[string]game.TeamRoundResult `json:"teams"`
	CorrectSequence []string                        `json:"correctSequence"`
}

type TeamEmojiResult struct {
	Type  string `json:"type"`
	Team  string `json:"team"`
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

type TeamGameEnd struct {
	Type        string         `json:"type"`
	FinalScores map[string]int `json:"finalScores"`
}
