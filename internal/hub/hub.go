package hub

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/mickey7hi/audience-arena-backend/internal/classify"
	"github.com/mickey7hi/audience-arena-backend/internal/game"
	"github.com/mickey7hi/audience-arena-backend/internal/types"
)

// Mode is the active game mode; exactly one at a time.
type Mode string

const (
	ModeStreamerPlay       Mode = "STREAMER_PLAY"
	ModeAudienceVsComputer Mode = "AUDIENCE_VS_COMPUTER"
	ModeStreamerVsAudience Mode = "STREAMER_VS_AUDIENCE"
	ModeAudienceVsAudience Mode = "AUDIENCE_VS_AUDIENCE"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeStreamerPlay, ModeAudienceVsComputer, ModeStreamerVsAudience, ModeAudienceVsAudience:
		return Mode(s), true
	}
	return "", false
}

// AggregationWindow is the generic vote window: it opens on the first
// accepted guess and produces TEAM_EMOJI_RESULT when it closes.
const AggregationWindow = 3000 * time.Millisecond

type Msg interface{ isHubMsg() }

// Join registers a connection; the hub takes ownership of the outbox
// and closes it when the connection is removed.
type Join struct {
	ClientID string
	Outbox   chan []byte
}

type Leave struct{ ClientID string }

// FromClient is a raw frame received on a connection.
type FromClient struct {
	ClientID string
	Data     []byte
}

// FromChat is a raw chat event from the ingestion adapter.
type FromChat struct {
	User    string
	Comment string
}

// FromFollow is a follow event from the ingestion adapter.
type FromFollow struct{ User string }

type timerFired struct {
	kind timerKind
	gen  uint64
}

// GetState reflects internal state without data races; used by the
// /state endpoint and tests.
type GetState struct{ Reply chan View }

type Shutdown struct{}

func (Join) isHubMsg()       {}
func (Leave) isHubMsg()      {}
func (FromClient) isHubMsg() {}
func (FromChat) isHubMsg()   {}
func (FromFollow) isHubMsg() {}
func (timerFired) isHubMsg() {}
func (GetState) isHubMsg()   {}
func (Shutdown) isHubMsg()   {}

// TeamView is one team's slice of a state View.
type TeamView struct {
	Members []string `json:"members"`
	Score   int      `json:"score"`
}

// View is a read-only snapshot of the hub.
type View struct {
	Mode        Mode                `json:"mode"`
	NumClients  int                 `json:"clients"`
	GameActive  bool                `json:"teamGameActive"`
	Round       int                 `json:"round"`
	CurrentTurn string              `json:"currentTurn"`
	Teams       map[string]TeamView `json:"teams"`
}

// Hub owns the connection set, the current game mode and the team
// round state machine. Every inbound event (new connections, frames,
// chat events, timer firings) is serialized through one inbox channel
// and handled to completion by a single goroutine, so no handler ever
// observes a partial mutation and no locking is needed.
type Hub struct {
	inbox      chan Msg
	clients    map[string]chan []byte
	mode       Mode
	game       *game.State
	classifier *classify.Classifier

	// Session-level gate mirrored from SEQUENCE_STATE reports.
	seqShowing  bool
	gameStarted bool

	timers *timerSet
	t      timings
	log    *zap.SugaredLogger
	ctx    context.Context
	cancel context.CancelFunc
}

// timings collects every scheduled delay so tests can shrink them.
type timings struct {
	show        time.Duration
	guessWindow time.Duration
	interRound  time.Duration
	aggregation time.Duration
}

func defaultTimings() timings {
	return timings{
		show:        game.ShowDuration,
		guessWindow: game.GuessWindow,
		interRound:  game.InterRoundDelay,
		aggregation: AggregationWindow,
	}
}

func NewHub(parent context.Context, log *zap.SugaredLogger) *Hub {
	return newHub(parent, log, nil, defaultTimings())
}

// newHub takes an explicit rand source and timings so tests can pin
// sequences and run rounds quickly.
func newHub(parent context.Context, log *zap.SugaredLogger, rng *rand.Rand, t timings) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:      make(chan Msg, 64),
		clients:    make(map[string]chan []byte),
		mode:       ModeStreamerPlay,
		game:       game.NewState(rng),
		classifier: classify.New(rng),
		t:          t,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
	h.timers = newTimerSet(h.inbox)
	go h.loop()
	return h
}

// Inbox exposes the hub's serialized event queue.
func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = msg.Outbox
				h.sendObj(msg.ClientID, types.Connected{Type: "connected", Message: "Connected to audience arena"})
				h.sendObj(msg.ClientID, types.ModeChanged{Type: "MODE_CHANGED", Mode: string(h.mode)})
				if h.mode == ModeAudienceVsAudience {
					h.sendObj(msg.ClientID, h.teamStateMsg())
				}

			case Leave:
				h.removeClient(msg.ClientID)

			case FromClient:
				h.route(msg.ClientID, msg.Data)

			case FromChat:
				h.handleChat("", msg.User, msg.Comment)

			case FromFollow:
				h.relayObj("", types.AudienceFollow{Type: "audience_follow", User: msg.User})

			case timerFired:
				if !h.timers.take(msg) {
					break // stale: cancelled or re-armed since scheduling
				}
				h.handleTimer(msg.kind)

			case GetState:
				msg.Reply <- h.view()

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

// route dispatches one inbound frame. First matching rule wins;
// unmatched types fall through to the generic relay. Malformed frames
// are dropped with no broadcast.
func (h *Hub) route(sender string, raw []byte) {
	var in types.Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		h.log.Debugw("dropping malformed payload", "client", sender, "err", err)
		return
	}

	switch in.Type {
	case "CHANGE_MODE":
		mode, ok := ParseMode(in.Mode)
		if !ok {
			h.log.Debugw("unknown mode", "mode", in.Mode)
			return
		}
		h.setMode(mode)

	case "TEAM_JOIN":
		if (in.Team != "A" && in.Team != "B") || in.User == "" {
			return
		}
		h.teamJoin(in.User, game.Team(in.Team))

	case "TEAM_EMOJI_GUESS":
		if in.User == "" || in.Emoji == "" {
			return
		}
		h.teamGuess(in.User, in.Emoji)

	case "SEQUENCE_STATE":
		if in.ShowingSequence != nil {
			h.seqShowing = *in.ShowingSequence
		}
		if in.GameStarted != nil {
			h.gameStarted = *in.GameStarted
		}

	case "TEAM_GAME_CONTROL":
		switch in.Action {
		case "START":
			if h.mode != ModeAudienceVsAudience {
				h.log.Debugw("ignoring team game start outside AUDIENCE_VS_AUDIENCE", "mode", h.mode)
				return
			}
			if !h.game.Active {
				h.startTeamGame()
			}
		case "STOP":
			h.stopTeamGame()
		}

	case "audience_emoji":
		if h.seqShowing || !h.gameStarted {
			return
		}
		h.relayRaw(sender, raw)

	case "chat":
		h.handleChat(sender, in.User, in.Comment)

	case "follow":
		h.relayObj(sender, types.AudienceFollow{Type: "audience_follow", User: in.User})

	default:
		h.relayRaw(sender, raw)
	}
}

// handleChat runs a raw chat event through dedup and classification
// and routes each extracted command. Chat-derived commands carry the
// ingestion connection as sender, so relays reach every game client.
func (h *Hub) handleChat(sender, user, comment string) {
	res := h.classifier.Classify(user, comment, time.Now())
	if !res.Accepted {
		return
	}
	for _, cmd := range res.Commands {
		switch cmd.Type {
		case classify.CmdChatMessage:
			h.relayObj(sender, types.ChatMessage{Type: "chat_message", User: cmd.User, Comment: cmd.Comment})
		case classify.CmdAudienceEmoji:
			if h.seqShowing || !h.gameStarted {
				continue
			}
			h.relayObj(sender, types.AudienceEmoji{Type: "audience_emoji", Emoji: cmd.Emoji, Pack: cmd.Pack, User: cmd.User})
		case classify.CmdAudienceSpeed:
			h.relayObj(sender, types.AudienceSpeed{Type: "audience_speed", Action: cmd.Action, User: cmd.User})
		case classify.CmdAudienceTheme:
			h.relayObj(sender, types.AudienceTheme{Type: "audience_theme", Theme: cmd.Theme, User: cmd.User})
		case classify.CmdAudiencePack:
			h.relayObj(sender, types.AudiencePack{Type: "audience_pack", Pack: cmd.Pack, User: cmd.User})
		case classify.CmdTeamJoin:
			h.teamJoin(cmd.User, game.Team(cmd.Team))
		case classify.CmdTeamGuess:
			h.teamGuess(cmd.User, cmd.Emoji)
		}
	}
}

func (h *Hub) setMode(mode Mode) {
	h.mode = mode
	h.broadcastObj(types.ModeChanged{Type: "MODE_CHANGED", Mode: string(mode)})
	if mode == ModeAudienceVsAudience && !h.game.Active {
		h.startTeamGame()
	} else if mode != ModeAudienceVsAudience && h.game.Active {
		h.stopTeamGame()
	}
}

func (h *Hub) teamJoin(user string, team game.Team) {
	h.game.Join(user, team)
	h.log.Infow("team join", "user", user, "team", team)
	h.broadcastObj(h.teamStateMsg())
}

func (h *Hub) teamGuess(user, em string) {
	team, armWindow, err := h.game.AdmitGuess(user, em)
	if err != nil {
		h.log.Debugw("guess rejected", "user", user, "emoji", em, "reason", err)
		return
	}
	h.log.Debugw("guess admitted", "user", user, "team", team, "emoji", em)
	if armWindow {
		h.timers.arm(timerGuessWindow, h.t.guessWindow)
	}
	if !h.timers.armed(timerAggregation) {
		h.timers.arm(timerAggregation, h.t.aggregation)
	}
}

func (h *Hub) startTeamGame() {
	h.game.Start()
	h.log.Infow("team game started")
	h.broadcastObj(types.TeamGameStart{Type: "TEAM_GAME_START", Teams: h.teamInfos()})
	h.beginRound()
}

func (h *Hub) beginRound() {
	if !h.game.BeginRound() {
		return
	}
	h.log.Infow("round started", "round", h.game.RoundNumber, "turn", h.game.CurrentTurn)
	h.broadcastObj(types.TeamRoundStart{
		Type:        "TEAM_ROUND_START",
		Round:       h.game.RoundNumber,
		Sequence:    h.game.Sequence,
		CurrentTurn: string(h.game.CurrentTurn),
	})
	h.timers.arm(timerReveal, h.t.show)
}

func (h *Hub) endRound() {
	out, ok := h.game.EndRound()
	if !ok {
		return
	}
	h.timers.cancel(timerGuessWindow)
	h.broadcastObj(types.TeamRoundEnd{
		Type: "TEAM_ROUND_END",
		Teams: map[string]game.TeamRoundResult{
			string(game.TeamA): out.Teams[game.TeamA],
			string(game.TeamB): out.Teams[game.TeamB],
		},
		CorrectSequence: out.CorrectSequence,
	})
	h.timers.arm(timerNextRound, h.t.interRound)
}

func (h *Hub) stopTeamGame() {
	scores, stopped := h.game.Stop()
	if !stopped {
		return
	}
	h.timers.cancel(timerReveal)
	h.timers.cancel(timerGuessWindow)
	h.timers.cancel(timerNextRound)
	h.log.Infow("team game stopped", "scores", scores)
	h.broadcastObj(types.TeamGameEnd{
		Type: "TEAM_GAME_END",
		FinalScores: map[string]int{
			string(game.TeamA): scores[game.TeamA],
			string(game.TeamB): scores[game.TeamB],
		},
	})
}

func (h *Hub) handleTimer(kind timerKind) {
	switch kind {
	case timerReveal:
		h.game.RevealDone()
	case timerGuessWindow:
		h.endRound()
	case timerNextRound:
		h.beginRound()
	case timerAggregation:
		h.aggregateGuesses()
	}
}

// aggregateGuesses closes the generic vote window: each team with at
// least one pending guess gets a TEAM_EMOJI_RESULT. Pending guesses
// stay put; round boundaries clear them.
func (h *Hub) aggregateGuesses() {
	for _, team := range []game.Team{game.TeamA, game.TeamB} {
		guesses := h.game.Teams[team].Guesses
		if len(guesses) == 0 {
			continue
		}
		em, count := game.Tally(guesses)
		h.broadcastObj(types.TeamEmojiResult{Type: "TEAM_EMOJI_RESULT", Team: string(team), Emoji: em, Count: count})
	}
}

func (h *Hub) teamInfos() map[string]types.TeamInfo {
	infos := make(map[string]types.TeamInfo, 2)
	for _, team := range []game.Team{game.TeamA, game.TeamB} {
		infos[string(team)] = types.TeamInfo{
			Members: h.game.Members(team),
			Score:   h.game.Teams[team].Score,
		}
	}
	return infos
}

func (h *Hub) teamStateMsg() types.TeamState {
	return types.TeamState{Type: "TEAM_STATE", Teams: h.teamInfos()}
}

func (h *Hub) view() View {
	teams := make(map[string]TeamView, 2)
	for _, team := range []game.Team{game.TeamA, game.TeamB} {
		teams[string(team)] = TeamView{
			Members: h.game.Members(team),
			Score:   h.game.Teams[team].Score,
		}
	}
	return View{
		Mode:        h.mode,
		NumClients:  len(h.clients),
		GameActive:  h.game.Active,
		Round:       h.game.RoundNumber,
		CurrentTurn: string(h.game.CurrentTurn),
		Teams:       teams,
	}
}

// relayRaw forwards the exact received payload to every other open
// connection; the sender never receives its own message back.
func (h *Hub) relayRaw(sender string, payload []byte) {
	for id, ch := range h.clients {
		if id == sender {
			continue
		}
		h.send(id, ch, payload)
	}
}

func (h *Hub) relayObj(sender string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.relayRaw(sender, payload)
}

func (h *Hub) broadcastObj(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	for id, ch := range h.clients {
		h.send(id, ch, payload)
	}
}

func (h *Hub) sendObj(id string, v any) {
	ch, ok := h.clients[id]
	if !ok {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.send(id, ch, payload)
}

// send never blocks the loop: a slow/full client is dropped, and one
// failed delivery does not abort delivery to the rest.
func (h *Hub) send(id string, ch chan []byte, payload []byte) {
	select {
	case ch <- payload:
	default:
		h.log.Warnw("dropping slow client", "client", id)
		h.removeClient(id)
	}
}

func (h *Hub) removeClient(id string) {
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
	}
}

func (h *Hub) shutdown() {
	h.timers.cancelAll()
	for id := range h.clients {
		h.removeClient(id)
	}
	h.cancel()
}
