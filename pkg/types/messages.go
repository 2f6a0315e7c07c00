package types

// Client -> Server
// CHANGE_MODE:
//   mode: "STREAMER_PLAY" | "AUDIENCE_VS_COMPUTER" | "STREAMER_VS_AUDIENCE" | "AUDIENCE_VS_AUDIENCE"
//
// TEAM_JOIN:
//   user: string
//   team: "A" | "B"
//
// TEAM_EMOJI_GUESS:
//   user: string
//   emoji: string
//
// TEAM_GAME_CONTROL:
//   action: "START" | "STOP"
//
// SEQUENCE_STATE (sender-reported display state):
//   showingSequence: boolean
//   gameStarted: boolean
//
// chat (ingestion adapter only):
//   user: string
//   comment: string
//
// follow (ingestion adapter only):
//   user: string
//
// Anything else is relayed verbatim to every other connection.

// Server -> Client
// connected:
//   message: string
//
// MODE_CHANGED:
//   mode: string
//
// chat_message:
//   user: string
//   comment: string
//
// audience_emoji: { emoji, pack, user }
// audience_speed: { action: "speed_up" | "slow_down", user }
// audience_theme: { theme: "light" | "dark" | "neon", user }
// audience_pack:  { pack, user }
// audience_follow: { user }
//
// TEAM_STATE:
//   teams: { A: { members: string[], score: number }, B: { ... } }
//
// TEAM_GAME_START:
//   teams: as TEAM_STATE
//
// TEAM_ROUND_START:
//   round: number
//   sequence: string[]
//   currentTurn: "A" | "B"
//
// TEAM_EMOJI_RESULT:
//   team: "A" | "B"
//   emoji: string
//   count: number
//
// TEAM_ROUND_END:
//   teams: { A: { score, guesses: [{emoji,user}] }, B: { ... } }
//   correctSequence: string[]
//
// TEAM_GAME_END:
//   finalScores: { A: number, B: number }
