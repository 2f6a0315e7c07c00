package classify

import (
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/mickey7hi/audience-arena-backend/internal/emoji"
)

// DedupWindow is how long an identical (user, comment) pair is
// suppressed after being accepted.
const DedupWindow = 3000 * time.Millisecond

// Themes cycled by the !theme command, in order.
var Themes = []string{"light", "dark", "neon"}

type CommandType string

const (
	CmdChatMessage   CommandType = "chat_message"
	CmdAudienceEmoji CommandType = "audience_emoji"
	CmdAudienceSpeed CommandType = "audience_speed"
	CmdAudienceTheme CommandType = "audience_theme"
	CmdAudiencePack  CommandType = "audience_pack"
	CmdTeamJoin      CommandType = "TEAM_JOIN"
	CmdTeamGuess     CommandType = "TEAM_EMOJI_GUESS"
)

// Command is a structured command extracted from a chat comment.
// Only the fields relevant to Type are set.
type Command struct {
	Type    CommandType
	User    string
	Comment string
	Emoji   string
	Pack    string
	Action  string
	Theme   string
	Team    string
}

// Result of classifying one chat event.
type Result struct {
	Accepted bool
	Commands []Command
}

var (
	teamJoinRe = regexp.MustCompile(`^(?i:t|team)\s+([abAB])$`)
	guessRe    = regexp.MustCompile(`^(?i:guess)\s+`)
	wPrefixRe  = regexp.MustCompile(`^[wW]\s+`)
)

// Classifier suppresses near-duplicate chat events and extracts
// structured commands from comment text. It owns the dedup cache, the
// process-scoped theme cursor and its own randomness; callers are
// expected to invoke it from a single goroutine.
type Classifier struct {
	seen     map[string]time.Time
	themeIdx int
	rng      *rand.Rand
}

func New(rng *rand.Rand) *Classifier {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Classifier{
		seen: make(map[string]time.Time),
		rng:  rng,
	}
}

// Classify runs one chat event through dedup and command extraction.
// A duplicate within the dedup window yields Accepted=false and no
// commands; an accepted event always yields at least the chat_message
// command carrying the raw text.
func (c *Classifier) Classify(user, comment string, now time.Time) Result {
	key := user + ":" + comment

	// Lazy purge: entries older than the window are dropped on every
	// lookup pass so the cache stays bounded by recent traffic.
	for k, ts := range c.seen {
		if now.Sub(ts) > DedupWindow {
			delete(c.seen, k)
		}
	}

	if _, dup := c.seen[key]; dup {
		return Result{}
	}
	c.seen[key] = now

	cmds := []Command{{Type: CmdChatMessage, User: user, Comment: comment}}

	// Exact emoji from the catalog.
	if pack, ok := emoji.PackOf(comment); ok {
		cmds = append(cmds, Command{Type: CmdAudienceEmoji, User: user, Emoji: comment, Pack: pack})
	}

	// "!<emoji> <anything>" fires independently of the exact match.
	if strings.HasPrefix(comment, "!") {
		token, _, _ := strings.Cut(comment[1:], " ")
		if pack, ok := emoji.PackOf(token); ok {
			cmds = append(cmds, Command{Type: CmdAudienceEmoji, User: user, Emoji: token, Pack: pack})
		}
	}

	// "w <emoji>" / "W <emoji>".
	if loc := wPrefixRe.FindStringIndex(comment); loc != nil {
		if run := emoji.Run(comment[loc[1]:]); run != "" {
			if pack, ok := emoji.PackOf(run); ok {
				cmds = append(cmds, Command{Type: CmdAudienceEmoji, User: user, Emoji: run, Pack: pack})
			}
		}
	}

	lower := strings.ToLower(comment)
	if strings.Contains(lower, "!speed") {
		cmds = append(cmds, Command{Type: CmdAudienceSpeed, User: user, Action: "speed_up"})
	}
	if strings.Contains(lower, "!slow") {
		cmds = append(cmds, Command{Type: CmdAudienceSpeed, User: user, Action: "slow_down"})
	}
	if strings.Contains(lower, "!theme") {
		c.themeIdx = (c.themeIdx + 1) % len(Themes)
		cmds = append(cmds, Command{Type: CmdAudienceTheme, User: user, Theme: Themes[c.themeIdx]})
	}
	if strings.Contains(lower, "!pack") {
		pack := emoji.PackNames[c.rng.Intn(len(emoji.PackNames))]
		cmds = append(cmds, Command{Type: CmdAudiencePack, User: user, Pack: pack})
	}

	trimmed := strings.TrimSpace(comment)

	// "T A" / "TEAM B": whole-comment command, stops further rules.
	if m := teamJoinRe.FindStringSubmatch(trimmed); m != nil {
		cmds = append(cmds, Command{Type: CmdTeamJoin, User: user, Team: strings.ToUpper(m[1])})
		return Result{Accepted: true, Commands: cmds}
	}

	// "GUESS <emoji>": whole-comment command.
	if loc := guessRe.FindStringIndex(trimmed); loc != nil {
		if run := emoji.Run(trimmed[loc[1]:]); run != "" {
			cmds = append(cmds, Command{Type: CmdTeamGuess, User: user, Emoji: run})
		}
	}

	return Result{Accepted: true, Commands: cmds}
}
