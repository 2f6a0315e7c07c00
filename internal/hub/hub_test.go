package hub

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"
)

func fastTimings() timings {
	return timings{
		show:        40 * time.Millisecond,
		guessWindow: 150 * time.Millisecond,
		interRound:  50 * time.Millisecond,
		aggregation: 60 * time.Millisecond,
	}
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return newHub(ctx, nil, rand.New(rand.NewSource(1)), fastTimings())
}

func join(t *testing.T, h *Hub, id string) chan []byte {
	t.Helper()
	out := make(chan []byte, 32)
	h.Inbox() <- Join{ClientID: id, Outbox: out}
	return out
}

// recvMsg receives one message with a timeout so tests never hang.
func recvMsg(t *testing.T, ch <-chan []byte, within time.Duration) map[string]any {
	t.Helper()
	select {
	case raw, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("undecodable broadcast %q: %v", raw, err)
		}
		return m
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return nil // unreachable
	}
}

// waitForType drains messages until one with the given type arrives.
func waitForType(t *testing.T, ch <-chan []byte, typ string, within time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(within)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timed out waiting for %q", typ)
		}
		m := recvMsg(t, ch, remaining)
		if m["type"] == typ {
			return m
		}
	}
}

// expectNoType drains messages for the window and fails if one of the
// given type shows up.
func expectNoType(t *testing.T, ch <-chan []byte, typ string, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case raw, ok := <-ch:
			if !ok {
				return
			}
			var m map[string]any
			if err := json.Unmarshal(raw, &m); err == nil && m["type"] == typ {
				t.Fatalf("expected no %q within %v, got %s", typ, within, raw)
			}
		case <-deadline:
			return
		}
	}
}

func send(h *Hub, clientID, payload string) {
	h.Inbox() <- FromClient{ClientID: clientID, Data: []byte(payload)}
}

func getView(t *testing.T, h *Hub) View {
	t.Helper()
	reply := make(chan View, 1)
	h.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func teamMembers(t *testing.T, m map[string]any, team string) []any {
	t.Helper()
	teams, ok := m["teams"].(map[string]any)
	if !ok {
		t.Fatalf("message has no teams object: %v", m)
	}
	info, ok := teams[team].(map[string]any)
	if !ok {
		t.Fatalf("no team %s in %v", team, teams)
	}
	members, _ := info["members"].([]any)
	return members
}

func TestHub_JoinReceivesSnapshot(t *testing.T) {
	h := newTestHub(t)
	out := join(t, h, "c1")

	first := recvMsg(t, out, time.Second)
	if first["type"] != "connected" {
		t.Fatalf("want connected first, got %v", first)
	}
	second := recvMsg(t, out, time.Second)
	if second["type"] != "MODE_CHANGED" || second["mode"] != "STREAMER_PLAY" {
		t.Fatalf("want MODE_CHANGED STREAMER_PLAY, got %v", second)
	}
	// Default mode: no TEAM_STATE snapshot on join.
	expectNoType(t, out, "TEAM_STATE", 50*time.Millisecond)
}

func TestHub_GenericRelaySkipsSender(t *testing.T) {
	h := newTestHub(t)
	sender := join(t, h, "c1")
	receiver := join(t, h, "c2")
	waitForType(t, sender, "MODE_CHANGED", time.Second)
	waitForType(t, receiver, "MODE_CHANGED", time.Second)

	payload := `{"type":"custom_event","x":1}`
	send(h, "c1", payload)

	select {
	case raw := <-receiver:
		if string(raw) != payload {
			t.Fatalf("relay must forward the payload verbatim: %s", raw)
		}
	case <-time.After(time.Second):
		t.Fatalf("receiver never got the relayed payload")
	}
	expectNoType(t, sender, "custom_event", 50*time.Millisecond)
}

func TestHub_MalformedPayloadDropped(t *testing.T) {
	h := newTestHub(t)
	sender := join(t, h, "c1")
	receiver := join(t, h, "c2")
	waitForType(t, sender, "MODE_CHANGED", time.Second)
	waitForType(t, receiver, "MODE_CHANGED", time.Second)

	send(h, "c1", `{not json`)

	select {
	case raw := <-receiver:
		t.Fatalf("malformed payload must not be relayed, got %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
	// Hub still serves requests afterwards.
	if v := getView(t, h); v.NumClients != 2 {
		t.Fatalf("want 2 clients, got %d", v.NumClients)
	}
}

func TestHub_TeamJoinIsExclusive(t *testing.T) {
	h := newTestHub(t)
	out := join(t, h, "c1")
	waitForType(t, out, "MODE_CHANGED", time.Second)

	send(h, "c1", `{"type":"TEAM_JOIN","user":"alice","team":"A"}`)
	state := waitForType(t, out, "TEAM_STATE", time.Second)
	if got := teamMembers(t, state, "A"); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("want team A [alice], got %v", got)
	}

	send(h, "c1", `{"type":"TEAM_JOIN","user":"alice","team":"B"}`)
	state = waitForType(t, out, "TEAM_STATE", time.Second)
	if got := teamMembers(t, state, "A"); len(got) != 0 {
		t.Fatalf("alice must leave team A on switch, got %v", got)
	}
	if got := teamMembers(t, state, "B"); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("want team B [alice], got %v", got)
	}
}

func TestHub_AudienceVsAudienceRound(t *testing.T) {
	h := newTestHub(t)
	out := join(t, h, "c1")
	waitForType(t, out, "MODE_CHANGED", time.Second)

	send(h, "c1", `{"type":"TEAM_JOIN","user":"alice","team":"A"}`)
	send(h, "c1", `{"type":"TEAM_JOIN","user":"bob","team":"B"}`)
	waitForType(t, out, "TEAM_STATE", time.Second)
	waitForType(t, out, "TEAM_STATE", time.Second)

	// Entering the mode auto-starts the team game.
	send(h, "c1", `{"type":"CHANGE_MODE","mode":"AUDIENCE_VS_AUDIENCE"}`)
	waitForType(t, out, "TEAM_GAME_START", time.Second)

	roundStart := waitForType(t, out, "TEAM_ROUND_START", time.Second)
	seq, _ := roundStart["sequence"].([]any)
	if len(seq) != 1 {
		t.Fatalf("first round must show a 1-emoji sequence, got %v", seq)
	}
	if roundStart["currentTurn"] != "A" {
		t.Fatalf("first turn must be A, got %v", roundStart["currentTurn"])
	}
	correct := seq[0].(string)

	// Wait out the display phase, then guess. Bob's guess is rejected
	// silently: team B is not on turn.
	time.Sleep(80 * time.Millisecond)
	send(h, "c1", `{"type":"TEAM_EMOJI_GUESS","user":"bob","emoji":"`+correct+`"}`)
	send(h, "c1", `{"type":"TEAM_EMOJI_GUESS","user":"alice","emoji":"`+correct+`"}`)

	result := waitForType(t, out, "TEAM_EMOJI_RESULT", time.Second)
	if result["team"] != "A" || result["emoji"] != correct || result["count"] != float64(1) {
		t.Fatalf("unexpected aggregation result: %v", result)
	}

	roundEnd := waitForType(t, out, "TEAM_ROUND_END", time.Second)
	teams := roundEnd["teams"].(map[string]any)
	teamA := teams["A"].(map[string]any)
	teamB := teams["B"].(map[string]any)
	if teamA["score"] != float64(1) {
		t.Fatalf("team A score: want 1, got %v", teamA["score"])
	}
	bGuesses, _ := teamB["guesses"].([]any)
	if teamB["score"] != float64(0) || len(bGuesses) != 0 {
		t.Fatalf("team B must have no score and no admitted guesses: %v", teamB)
	}

	next := waitForType(t, out, "TEAM_ROUND_START", time.Second)
	if next["round"] != float64(2) || next["currentTurn"] != "B" {
		t.Fatalf("want round 2 turn B, got %v", next)
	}
	if seq, _ := next["sequence"].([]any); len(seq) != 2 {
		t.Fatalf("round 2 must show a 2-emoji sequence, got %v", seq)
	}
}

func TestHub_LeavingModeStopsGameAndTimers(t *testing.T) {
	h := newTestHub(t)
	out := join(t, h, "c1")
	waitForType(t, out, "MODE_CHANGED", time.Second)

	send(h, "c1", `{"type":"CHANGE_MODE","mode":"AUDIENCE_VS_AUDIENCE"}`)
	waitForType(t, out, "TEAM_ROUND_START", time.Second)

	send(h, "c1", `{"type":"CHANGE_MODE","mode":"STREAMER_PLAY"}`)
	end := waitForType(t, out, "TEAM_GAME_END", time.Second)
	scores := end["finalScores"].(map[string]any)
	if scores["A"] != float64(0) || scores["B"] != float64(0) {
		t.Fatalf("unexpected final scores: %v", scores)
	}

	// Cancelled round timers must not fire into the stopped game.
	expectNoType(t, out, "TEAM_ROUND_START", 200*time.Millisecond)
}

func TestHub_TeamGameControl(t *testing.T) {
	h := newTestHub(t)
	out := join(t, h, "c1")
	waitForType(t, out, "MODE_CHANGED", time.Second)

	// START outside AUDIENCE_VS_AUDIENCE is refused.
	send(h, "c1", `{"type":"TEAM_GAME_CONTROL","action":"START"}`)
	expectNoType(t, out, "TEAM_GAME_START", 50*time.Millisecond)

	send(h, "c1", `{"type":"CHANGE_MODE","mode":"AUDIENCE_VS_AUDIENCE"}`)
	waitForType(t, out, "TEAM_GAME_START", time.Second)

	send(h, "c1", `{"type":"TEAM_GAME_CONTROL","action":"STOP"}`)
	waitForType(t, out, "TEAM_GAME_END", time.Second)

	send(h, "c1", `{"type":"TEAM_GAME_CONTROL","action":"START"}`)
	waitForType(t, out, "TEAM_GAME_START", time.Second)
}

func TestHub_ChatClassificationAndDedup(t *testing.T) {
	h := newTestHub(t)
	adapter := join(t, h, "bot")
	client := join(t, h, "c1")
	waitForType(t, adapter, "MODE_CHANGED", time.Second)
	waitForType(t, client, "MODE_CHANGED", time.Second)

	send(h, "bot", `{"type":"chat","user":"viewer1","comment":"hello"}`)
	msg := waitForType(t, client, "chat_message", time.Second)
	if msg["user"] != "viewer1" || msg["comment"] != "hello" {
		t.Fatalf("unexpected chat_message: %v", msg)
	}
	// The sending connection is excluded from the relay.
	expectNoType(t, adapter, "chat_message", 50*time.Millisecond)

	// Identical comment within the dedup window is suppressed.
	send(h, "bot", `{"type":"chat","user":"viewer1","comment":"hello"}`)
	expectNoType(t, client, "chat_message", 50*time.Millisecond)

	// Team join via chat mutates membership and broadcasts state.
	send(h, "bot", `{"type":"chat","user":"viewer1","comment":"T A"}`)
	state := waitForType(t, client, "TEAM_STATE", time.Second)
	if got := teamMembers(t, state, "A"); len(got) != 1 || got[0] != "viewer1" {
		t.Fatalf("want team A [viewer1], got %v", got)
	}
}

func TestHub_AudienceEmojiGate(t *testing.T) {
	h := newTestHub(t)
	sender := join(t, h, "c1")
	receiver := join(t, h, "c2")
	waitForType(t, sender, "MODE_CHANGED", time.Second)
	waitForType(t, receiver, "MODE_CHANGED", time.Second)

	emojiMsg := `{"type":"audience_emoji","emoji":"😀","pack":"faces","user":"viewer1"}`

	// Dropped until a client reports the game as started.
	send(h, "c1", emojiMsg)
	expectNoType(t, receiver, "audience_emoji", 50*time.Millisecond)

	send(h, "c1", `{"type":"SEQUENCE_STATE","showingSequence":false,"gameStarted":true}`)
	send(h, "c1", emojiMsg)
	waitForType(t, receiver, "audience_emoji", time.Second)

	// Dropped again while the sequence is showing.
	send(h, "c1", `{"type":"SEQUENCE_STATE","showingSequence":true,"gameStarted":true}`)
	send(h, "c1", emojiMsg)
	expectNoType(t, receiver, "audience_emoji", 50*time.Millisecond)
}

func TestHub_MembershipSurvivesDisconnect(t *testing.T) {
	h := newTestHub(t)
	c1 := join(t, h, "c1")
	c2 := join(t, h, "c2")
	waitForType(t, c1, "MODE_CHANGED", time.Second)
	waitForType(t, c2, "MODE_CHANGED", time.Second)

	send(h, "c2", `{"type":"TEAM_JOIN","user":"alice","team":"A"}`)
	waitForType(t, c1, "TEAM_STATE", time.Second)

	h.Inbox() <- Leave{ClientID: "c2"}

	// Membership is keyed by participant id, not connection.
	send(h, "c1", `{"type":"TEAM_JOIN","user":"bob","team":"B"}`)
	state := waitForType(t, c1, "TEAM_STATE", time.Second)
	if got := teamMembers(t, state, "A"); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("alice's membership must survive her socket, got %v", got)
	}

	v := getView(t, h)
	if v.NumClients != 1 {
		t.Fatalf("want 1 client after leave, got %d", v.NumClients)
	}
}

func TestHub_FollowRelaysToOthers(t *testing.T) {
	h := newTestHub(t)
	adapter := join(t, h, "bot")
	client := join(t, h, "c1")
	waitForType(t, adapter, "MODE_CHANGED", time.Second)
	waitForType(t, client, "MODE_CHANGED", time.Second)

	send(h, "bot", `{"type":"follow","user":"viewer1"}`)
	msg := waitForType(t, client, "audience_follow", time.Second)
	if msg["user"] != "viewer1" {
		t.Fatalf("unexpected follow payload: %v", msg)
	}
}
