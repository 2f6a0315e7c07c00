package hub

import "time"

type timerKind int

const (
	timerReveal timerKind = iota
	timerGuessWindow
	timerNextRound
	timerAggregation
)

func (k timerKind) String() string {
	switch k {
	case timerReveal:
		return "reveal"
	case timerGuessWindow:
		return "guess_window"
	case timerNextRound:
		return "next_round"
	case timerAggregation:
		return "aggregation"
	}
	return "unknown"
}

// timerSet owns the hub's scheduled transitions. A firing is posted
// back into the hub inbox, so it is serialized with every other event.
// Each kind carries a generation counter; re-arming or cancelling bumps
// the generation, which makes an already in-flight firing stale.
type timerSet struct {
	inbox  chan<- Msg
	gens   map[timerKind]uint64
	timers map[timerKind]*time.Timer
	active map[timerKind]bool
}

func newTimerSet(inbox chan<- Msg) *timerSet {
	return &timerSet{
		inbox:  inbox,
		gens:   make(map[timerKind]uint64),
		timers: make(map[timerKind]*time.Timer),
		active: make(map[timerKind]bool),
	}
}

func (ts *timerSet) arm(kind timerKind, d time.Duration) {
	if ts.active[kind] {
		ts.cancel(kind)
	}
	ts.gens[kind]++
	gen := ts.gens[kind]
	ts.active[kind] = true
	ts.timers[kind] = time.AfterFunc(d, func() {
		ts.inbox <- timerFired{kind: kind, gen: gen}
	})
}

func (ts *timerSet) cancel(kind timerKind) {
	if t := ts.timers[kind]; t != nil {
		t.Stop()
	}
	ts.gens[kind]++
	ts.active[kind] = false
	delete(ts.timers, kind)
}

func (ts *timerSet) armed(kind timerKind) bool {
	return ts.active[kind]
}

// take validates a firing against the current generation and, when
// current, clears the armed flag. Stale firings report false and must
// be ignored by the caller.
func (ts *timerSet) take(f timerFired) bool {
	if f.gen != ts.gens[f.kind] {
		return false
	}
	ts.active[f.kind] = false
	delete(ts.timers, f.kind)
	return true
}

func (ts *timerSet) cancelAll() {
	for kind := range ts.active {
		ts.cancel(kind)
	}
}
